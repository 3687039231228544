package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the value that asks the backend to detect the language itself.
const Auto = "auto"

var supported = []language.Tag{
	language.English, language.Spanish, language.French, language.German,
	language.Italian, language.Portuguese, language.Japanese, language.Korean,
	language.Chinese, language.Russian, language.Arabic, language.Hindi,
	language.Dutch, language.Polish, language.Swedish, language.Danish,
	language.Norwegian, language.Finnish, language.Turkish, language.Ukrainian,
}

var byName = func() map[string]string {
	names := display.English.Languages()
	out := make(map[string]string, len(supported))
	for _, tag := range supported {
		base, _ := tag.Base()
		out[strings.ToLower(names.Name(tag))] = base.String()
	}
	return out
}()

// Normalize returns the ISO 639-1 code for value, or "" for auto-detection.
func Normalize(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == Auto {
		return "", nil
	}
	if code, ok := byName[value]; ok {
		return code, nil
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", fmt.Errorf("unknown language %q", value)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", fmt.Errorf("unknown language %q", value)
	}
	return base.String(), nil
}

// DisplayName returns the English name for code.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "auto-detect"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	return display.English.Tags().Name(tag)
}
