package models

import "golang.org/x/text/language"

// Locale is one of the closed set of site languages.
type Locale string

const (
	LocaleDE Locale = "de"
	LocaleEN Locale = "en"

	// FallbackLocale is used whenever an ambient locale is not recognized.
	FallbackLocale = LocaleDE
)

// Tag maps the locale to its language tag (used by message printers).
func (l Locale) Tag() language.Tag {
	if l == LocaleEN {
		return language.English
	}
	return language.German
}
