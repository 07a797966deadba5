package emotion

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Language is a two-letter code selecting the label translation table.
// It never influences inference.
type Language string

const DefaultLanguage Language = "en"

// Languages lists the supported codes in display order.
var Languages = [...]Language{"en", "es", "fr", "de", "it", "pt", "ja", "zh", "ko", "ru", "ar", "hi"}

type translation struct {
	Name   string           `yaml:"name"`
	Labels map[Label]string `yaml:"labels"`
}

//go:embed translations.yaml
var translationsYAML []byte

var translations = mustLoadTranslations(translationsYAML)

func mustLoadTranslations(b []byte) map[Language]translation {
	var out map[Language]translation
	if err := yaml.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("emotion: decode translations: %v", err))
	}
	for _, lang := range Languages {
		t, ok := out[lang]
		if !ok {
			panic(fmt.Sprintf("emotion: no translation table for %q", lang))
		}
		for _, l := range Labels {
			if t.Labels[l] == "" {
				panic(fmt.Sprintf("emotion: %q has no name for %s", lang, l))
			}
		}
	}
	return out
}

func ParseLanguage(s string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	if lang == "" {
		return DefaultLanguage, nil
	}
	if !lang.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
	return lang, nil
}

func (lang Language) Valid() bool {
	for _, x := range Languages {
		if x == lang {
			return true
		}
	}
	return false
}

// Name is the language's English display name.
func (lang Language) Name() string {
	return translations[lang].Name
}

// Translate returns the display name of l in lang, falling back to English.
func (lang Language) Translate(l Label) string {
	if s, ok := translations[lang].Labels[l]; ok {
		return s
	}
	if s, ok := translations[DefaultLanguage].Labels[l]; ok {
		return s
	}
	return string(l)
}
