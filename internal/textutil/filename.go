package textutil

import (
	"strings"
	"unicode"
)

const maxFileNameRunes = 120

// FileName turns a story title or requested output name into a file name
// safe on common filesystems. Path separators, colons, asterisks and pipes
// become dashes; quotes, question marks, angle brackets and control
// characters are removed; whitespace runs collapse to one space; trailing
// dots are trimmed. Long names are cut at maxFileNameRunes.
func FileName(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '|':
			r = '-'
		case r == '?' || r == '"' || r == '<' || r == '>' || unicode.IsControl(r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	out := []rune(b.String())
	if len(out) > maxFileNameRunes {
		out = out[:maxFileNameRunes]
	}
	return strings.TrimRight(strings.TrimSpace(string(out)), ". ")
}

// Slug lowercases value into letters, digits and single dashes, as used
// for clip prefixes. It returns "clip" when nothing usable remains.
func Slug(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "clip"
	}
	return b.String()
}
