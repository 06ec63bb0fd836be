// Package notice renders user-facing notices in the user's own language.
package notice

import (
	"embed"

	"github.com/ZaguanLabs/chatlai"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

//go:embed active.*.toml
var localeFS embed.FS

// Message IDs.
const (
	PreferenceSaved        = "PreferenceSaved"
	PreferenceSavedChat    = "PreferenceSavedChat"
	PreferenceCleared      = "PreferenceCleared"
	PreferenceMissing      = "PreferenceMissing"
	TranslationUnavailable = "TranslationUnavailable"
	CachedEntries          = "CachedEntries"
)

var localeFiles = []string{"active.en.toml", "active.es.toml", "active.fr.toml", "active.de.toml"}

// Notices is a thin wrapper around a go-i18n bundle.
type Notices struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	logger          *zap.Logger
}

// New loads the embedded catalogs. Unknown locales fall back to
// defaultLocale, then English.
func New(defaultLocale string, logger *zap.Logger) *Notices {
	if logger == nil {
		logger = zap.NewNop()
	}

	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range localeFiles {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			logger.Warn("failed to load notice catalog", zap.String("file", file), zap.Error(err))
		}
	}

	return &Notices{
		bundle:          bundle,
		defaultLanguage: tag,
		logger:          logger,
	}
}

// Message renders id for locale. It returns id itself when no catalog has it.
func (n *Notices) Message(locale, id string, data map[string]any) string {
	return n.localize(locale, &i18n.LocalizeConfig{MessageID: id, TemplateData: data})
}

// Count renders a pluralized message.
func (n *Notices) Count(locale, id string, count int) string {
	return n.localize(locale, &i18n.LocalizeConfig{
		MessageID:    id,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

// Saved confirms a stored preference in its own target language.
func (n *Notices) Saved(pref chatlai.UserLanguage) string {
	id := PreferenceSaved
	if pref.ChatID.IsSet() {
		id = PreferenceSavedChat
	}
	return n.Message(pref.TargetLanguage, id, map[string]any{
		"Language": LanguageName(pref.TargetLanguage),
	})
}

func (n *Notices) localize(locale string, cfg *i18n.LocalizeConfig) string {
	if cfg.MessageID == "" {
		return ""
	}

	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, n.defaultLanguage.String())

	localizer := i18n.NewLocalizer(n.bundle, languages...)
	msg, err := localizer.Localize(cfg)
	if err != nil {
		n.logger.Debug("localize failed",
			zap.String("id", cfg.MessageID),
			zap.Strings("locales", languages),
			zap.Error(err),
		)
		return cfg.MessageID
	}
	return msg
}

// LanguageName returns the name of a language in that language
// ("es" -> "español"), falling back to the English name.
func LanguageName(code string) string {
	tag, err := language.Parse(chatlai.NormalizeLocale(code))
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return chatlai.GetLanguageName(code)
}
