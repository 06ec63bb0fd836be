package chatlai

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ParseLanguageCode validates a BCP 47 language tag and returns its canonical
// form ("es_es" -> "es-ES"). Empty, malformed, unknown and undetermined
// ("und") tags are rejected with an *InvalidLanguageCodeError.
func ParseLanguageCode(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", &InvalidLanguageCodeError{Code: code}
	}

	tag, err := language.Parse(NormalizeLocale(trimmed))
	if err != nil {
		return "", &InvalidLanguageCodeError{Code: code, Cause: err}
	}
	if tag == language.Und {
		return "", &InvalidLanguageCodeError{Code: code}
	}

	return tag.String(), nil
}

// ParseSourceLang validates a set source language and leaves an unset one
// untouched.
func ParseSourceLang(l Lang) (Lang, error) {
	code, ok := l.Get()
	if !ok {
		return l, nil
	}
	canonical, err := ParseLanguageCode(code)
	if err != nil {
		return Lang{}, err
	}
	return LangCode(canonical), nil
}

// GetLanguageName returns the English name of a language code for prompts
// and notices. Falls back to the code itself if it cannot be parsed.
func GetLanguageName(langCode string) string {
	tag, err := language.Parse(NormalizeLocale(langCode))
	if err != nil {
		return langCode
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return langCode
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(langCode string) string {
	if RTLLanguages[BaseLanguage(langCode)] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(langCode string) bool {
	return GetDirection(langCode) == "rtl"
}

// BaseLanguage extracts the lowercase base language ("pt" from "pt-BR" or "pt_BR").
func BaseLanguage(langCode string) string {
	if tag, err := language.Parse(NormalizeLocale(langCode)); err == nil {
		base, _ := tag.Base()
		return base.String()
	}
	parts := strings.Split(NormalizeLocale(langCode), "-")
	return strings.ToLower(parts[0])
}

// SameBaseLanguage reports whether two codes share a base language.
func SameBaseLanguage(a, b string) bool {
	return BaseLanguage(a) == BaseLanguage(b)
}

// SameWrittenLanguage reports whether two codes share both base language and
// script, so text in one needs no translation to be read in the other.
// Regional variants match ("en" and "en-GB"); script variants do not
// ("zh-Hans" and "zh-Hant", "sr-Latn" and "sr").
func SameWrittenLanguage(a, b string) bool {
	ta, errA := language.Parse(NormalizeLocale(a))
	tb, errB := language.Parse(NormalizeLocale(b))
	if errA != nil || errB != nil {
		return strings.EqualFold(NormalizeLocale(a), NormalizeLocale(b))
	}

	baseA, _ := ta.Base()
	baseB, _ := tb.Base()
	if baseA != baseB {
		return false
	}
	scriptA, _ := ta.Script()
	scriptB, _ := tb.Script()
	return scriptA == scriptB
}

// NormalizeLocale converts a locale to BCP 47 separators ("es_ES" -> "es-ES").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(strings.TrimSpace(langCode), "_", "-")
}
