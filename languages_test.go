package chatlai

import (
	"errors"
	"testing"
)

func TestParseLanguageCode(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"es_ES", "es-ES"},
		{"pt-br", "pt-BR"},
		{" fr ", "fr"},
		{"zh-Hant", "zh-Hant"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result, err := ParseLanguageCode(tt.code)
			if err != nil {
				t.Fatalf("ParseLanguageCode(%q) failed: %v", tt.code, err)
			}
			if result != tt.expected {
				t.Errorf("ParseLanguageCode(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}
}

func TestParseLanguageCode_Invalid(t *testing.T) {
	for _, code := range []string{"", "   ", "und", "en--US", "not a code!"} {
		t.Run(code, func(t *testing.T) {
			_, err := ParseLanguageCode(code)
			if err == nil {
				t.Fatalf("ParseLanguageCode(%q) should fail", code)
			}
			if !errors.Is(err, ErrInvalidLanguageCode) {
				t.Errorf("expected ErrInvalidLanguageCode, got %v", err)
			}
		})
	}
}

func TestParseSourceLang(t *testing.T) {
	unset, err := ParseSourceLang(AutoDetect())
	if err != nil || unset.IsSet() {
		t.Errorf("unset source should pass through, got %v, %v", unset, err)
	}

	set, err := ParseSourceLang(LangCode("de_at"))
	if err != nil {
		t.Fatalf("ParseSourceLang failed: %v", err)
	}
	if code, _ := set.Get(); code != "de-AT" {
		t.Errorf("expected de-AT, got %q", code)
	}

	if _, err := ParseSourceLang(LangCode("")); !errors.Is(err, ErrInvalidLanguageCode) {
		t.Errorf("set empty source should be rejected, got %v", err)
	}
}

func TestGetLanguageName(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"ja", "Japanese"},
		{"es", "Spanish"},
		{"not a code!", "not a code!"}, // fallback
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result := GetLanguageName(tt.code)
			if result != tt.expected {
				t.Errorf("GetLanguageName(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}
}

func TestGetDirection(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"ar-SA", "rtl"},
		{"he_IL", "rtl"},
		{"fa", "rtl"},
		{"ur-PK", "rtl"},
		{"es-ES", "ltr"},
		{"en", "ltr"},
		{"ja_JP", "ltr"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if result := GetDirection(tt.code); result != tt.expected {
				t.Errorf("GetDirection(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}

	if !IsRTL("ar") {
		t.Error("IsRTL(ar) should be true")
	}
}

func TestSameBaseLanguage(t *testing.T) {
	if !SameBaseLanguage("en-US", "en_GB") {
		t.Error("en-US and en_GB share a base language")
	}
	if SameBaseLanguage("pt-BR", "es") {
		t.Error("pt-BR and es do not share a base language")
	}
}

func TestSameWrittenLanguage(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"en", "en-GB", true},
		{"en_US", "en-GB", true},
		{"pt-BR", "pt-PT", true},
		{"zh-Hans", "zh-Hant", false},
		{"zh", "zh-TW", false},
		{"zh", "zh-Hans", true},
		{"sr-Latn", "sr-Cyrl", false},
		{"sr", "sr-Latn", false},
		{"en", "es", false},
	}

	for _, tt := range tests {
		if got := SameWrittenLanguage(tt.a, tt.b); got != tt.want {
			t.Errorf("SameWrittenLanguage(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalizeLocale(t *testing.T) {
	if got := NormalizeLocale("es_ES"); got != "es-ES" {
		t.Errorf("NormalizeLocale(es_ES) = %q, want es-ES", got)
	}
}
