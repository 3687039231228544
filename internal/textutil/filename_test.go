package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"Hello world":           "Hello world",
		"  Why/How:  a story  ": "Why-How- a story",
		`what? "really" <yes>`:  "what really yes",
		"tabs\tand\nnewlines":   "tabs and newlines",
		"ends with dots...":     "ends with dots",
		"pipe|star*back\\slash": "pipe-star-back-slash",
		"":                      "",
		"???":                   "",
	}
	for in, want := range cases {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileNameCapsLength(t *testing.T) {
	got := FileName(strings.Repeat("é", 300))
	if n := utf8.RuneCountInString(got); n != maxFileNameRunes {
		t.Fatalf("length = %d, want %d", n, maxFileNameRunes)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Minecraft Parkour (4K)": "minecraft-parkour-4k",
		"drive":                  "drive",
		"__subway--surfers__":    "subway-surfers",
		"!!!":                    "clip",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
