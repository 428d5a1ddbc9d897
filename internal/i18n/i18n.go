// Package i18n holds the Spanish and English string tables.
package i18n

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// Language is a supported interface language
type Language string

const (
	Spanish Language = "es"
	English Language = "en"
)

// Default is used when nothing else can be determined
const Default = Spanish

var supported = []language.Tag{language.Spanish, language.English}

var matcher = language.NewMatcher(supported)

// Parse validates a language code
func Parse(code string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case Spanish:
		return Spanish, nil
	case English:
		return English, nil
	}
	return "", fmt.Errorf("unsupported language %q (supported: es, en)", code)
}

// Detect maps locale strings (e.g. "es_ES.UTF-8", "en-US") onto a supported
// language. Spanish wins for any "es" variant, everything else is English.
// An empty or unparseable input yields English, matching browser behaviour.
func Detect(locales ...string) Language {
	var tags []language.Tag
	for _, l := range locales {
		l = strings.TrimSpace(l)
		if l == "" || l == "C" || l == "POSIX" {
			continue
		}
		if i := strings.IndexAny(l, ".@"); i >= 0 {
			l = l[:i]
		}
		tag, err := language.Parse(strings.ReplaceAll(l, "_", "-"))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return English
	}

	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}
	if supported[idx] == language.Spanish {
		return Spanish
	}
	return English
}

// Translator resolves keys for one language
type Translator struct {
	lang Language
	log  zerolog.Logger
}

// NewTranslator creates a translator; unknown languages fall back to Default
func NewTranslator(lang Language, log zerolog.Logger) *Translator {
	if _, ok := tables[lang]; !ok {
		lang = Default
	}
	return &Translator{lang: lang, log: log}
}

// Language returns the active language
func (t *Translator) Language() Language {
	return t.lang
}

// T returns the translation for key, or the key itself when missing
func (t *Translator) T(key string) string {
	if s, ok := tables[t.lang][key]; ok {
		return s
	}
	t.log.Warn().Str("key", key).Str("language", string(t.lang)).Msg("missing translation")
	return key
}

// Tf formats a translated template
func (t *Translator) Tf(key string, args ...any) string {
	return fmt.Sprintf(t.T(key), args...)
}

// Keys returns every key defined for the language
func Keys(lang Language) []string {
	keys := make([]string, 0, len(tables[lang]))
	for k := range tables[lang] {
		keys = append(keys, k)
	}
	return keys
}

// Examples returns the sample questions for a language, in display order
func Examples(lang Language) []string {
	t := tables[lang]
	if t == nil {
		t = tables[Default]
	}
	out := make([]string, 0, len(exampleKeys))
	for _, k := range exampleKeys {
		out = append(out, t[k])
	}
	return out
}

var exampleKeys = []string{
	"examples.female_breast_cancer",
	"examples.paget_disease",
	"examples.adenosquamous_carcinoma",
	"examples.lumpectomy",
}
