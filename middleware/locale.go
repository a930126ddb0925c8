// middleware/locale.go
package middleware

import (
	"community-milestones/models"
	"community-milestones/unlock"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

const localeKey = "locale"

var localeMatcher = language.NewMatcher([]language.Tag{language.German, language.English})

// LocaleMiddleware resolves the request locale from X-Locale (exact "de"/"en") or,
// failing that, Accept-Language. Anything else is the fallback locale.
func LocaleMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localeKey, resolveLocale(c.Get("X-Locale"), c.Get(fiber.HeaderAcceptLanguage)))
		return c.Next()
	}
}

func resolveLocale(explicit, acceptLanguage string) models.Locale {
	if explicit != "" {
		return unlock.NormalizeLocale(explicit)
	}
	if acceptLanguage == "" {
		return models.FallbackLocale
	}
	_, idx := language.MatchStrings(localeMatcher, acceptLanguage)
	if idx == 1 {
		return models.LocaleEN
	}
	return models.LocaleDE
}

// RequestLocale returns the locale stored by LocaleMiddleware.
func RequestLocale(c *fiber.Ctx) models.Locale {
	if l, ok := c.Locals(localeKey).(models.Locale); ok {
		return l
	}
	return models.FallbackLocale
}
