package unlock

import "community-milestones/models"

// NormalizeLocale maps an untrusted ambient locale onto the closed set of site locales.
// Anything other than an exact "de" or "en" becomes the fallback.
func NormalizeLocale(locale string) models.Locale {
	switch models.Locale(locale) {
	case models.LocaleDE, models.LocaleEN:
		return models.Locale(locale)
	default:
		return models.FallbackLocale
	}
}
