package panel

import (
	"community-milestones/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys
const (
	KeySave      = "achievements.save"
	KeyRefresh   = "achievements.refresh"
	KeySaved     = "achievements.saved"
	KeySaveError = "achievements.save_error"
	KeyInvalidID = "achievements.invalid_id"
	KeyTitle     = "achievements.title"
)

// Translator is the host's translation function t(key). An empty result or the key
// itself means "no translation" and falls back to the built-in catalog.
type Translator interface {
	T(key string) string
}

var builtin = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.German))
	entries := map[language.Tag]map[string]string{
		language.German: {
			KeySave:      "Speichern",
			KeyRefresh:   "Aktualisieren",
			KeySaved:     "Deine Erfolge wurden gespeichert!",
			KeySaveError: "Speichern fehlgeschlagen. Bitte versuche es erneut.",
			KeyInvalidID: "Ungültige Discord-ID (17-20 Ziffern)",
			KeyTitle:     "Erfolge",
		},
		language.English: {
			KeySave:      "Save",
			KeyRefresh:   "Refresh",
			KeySaved:     "Your achievements have been saved!",
			KeySaveError: "Saving failed. Please try again.",
			KeyInvalidID: "Invalid Discord ID (17-20 digits)",
			KeyTitle:     "Achievements",
		},
	}
	for tag, msgs := range entries {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}()

// Messages resolves panel strings for one locale.
type Messages struct {
	printer  *message.Printer
	override Translator
}

func NewMessages(locale models.Locale, override Translator) *Messages {
	return &Messages{
		printer:  message.NewPrinter(locale.Tag(), message.Catalog(builtin)),
		override: override,
	}
}

// Text returns the string for key.
func (m *Messages) Text(key string) string {
	if m.override != nil {
		if s := m.override.T(key); s != "" && s != key {
			return s
		}
	}
	return m.printer.Sprintf(key)
}
