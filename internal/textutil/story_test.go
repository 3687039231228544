package textutil

import (
	"slices"
	"strings"
	"testing"
)

func TestCleanStoryStripsRedditMarkup(t *testing.T) {
	body := "So **my roommate** keeps eating my [lasagna](https://imgur.com/abc) &amp; pasta.\n" +
		"I posted this on r/AmItheAsshole and u/someone said see https://example.com/x too.\n" +
		"> quoted text stays\n" +
		"EDIT: thanks for the gold, kind stranger!\n" +
		"**Update 2:** we talked it out."

	got := CleanStory(body)
	for _, gone := range []string{"**", "http", "imgur", "r/", "u/", "&amp;", "gold", "talked", ">"} {
		if strings.Contains(got, gone) {
			t.Errorf("cleaned story still contains %q: %q", gone, got)
		}
	}
	for _, kept := range []string{"my roommate", "lasagna", "& pasta", "quoted text stays"} {
		if !strings.Contains(got, kept) {
			t.Errorf("cleaned story lost %q: %q", kept, got)
		}
	}
}

func TestCleanStoryKeepsWordsThatOnlyStartLikeMarkers(t *testing.T) {
	body := "Updated my resume yesterday.\nPsychology class was weird."
	if got := CleanStory(body); got != body {
		t.Fatalf("CleanStory(%q) = %q", body, got)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"stopwords and short words", "The cat's lasagna was GONE again!", []string{"cats", "lasagna", "gone", "again"}},
		{"curly apostrophes", "My sister’s wedding", []string{"sisters", "wedding"}},
		{"reddit boilerplate", "AITA throwaway because mobile formatting", []string{}},
		{"non ascii letters", "Café naïve résumé", []string{"café", "naïve", "résumé"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Tokenize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
