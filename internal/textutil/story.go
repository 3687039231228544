package textutil

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	markdownLink = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	bareURL      = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	redditRef    = regexp.MustCompile(`(?i)(^|[\s(])/?[ru]/[a-z0-9_-]+`)
	editLine     = regexp.MustCompile(`(?i)^[\s*_#>]*(edit|update|eta|ps|tl;?dr)\s*\d*\s*[:.\-]`)
	markdownMark = regexp.MustCompile("[*_~`#>|]+")
)

// CleanStory strips reddit formatting from a post body: markdown syntax,
// links (keeping link text), bare URLs, r/ and u/ mentions, HTML entities,
// and whole lines that start with an edit, update or tl;dr marker.
func CleanStory(text string) string {
	text = norm.NFKC.String(html.UnescapeString(text))
	var kept []string
	for line := range strings.SplitSeq(text, "\n") {
		if editLine.MatchString(line) {
			continue
		}
		line = markdownLink.ReplaceAllString(line, "$1")
		line = bareURL.ReplaceAllString(line, " ")
		line = redditRef.ReplaceAllString(line, "$1")
		line = markdownMark.ReplaceAllString(line, " ")
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Tokenize lowercases text and splits it into words. Apostrophes are folded
// into the word ("don't" becomes "dont"), and words shorter than three
// letters, stopwords and reddit boilerplate are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !isApostrophe(r)
	})
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		term := strings.Map(func(r rune) rune {
			if isApostrophe(r) {
				return -1
			}
			return r
		}, field)
		if len([]rune(term)) < 3 {
			continue
		}
		if _, skip := stopwords[term]; skip {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`
		the and for are but not you all any can had her was one our out has
		him his how its who did get got she they them then than that this
		with have from were been what when where which would could should
		about just like into some there their because really even also very
		will your yours mine myself dont didnt doesnt isnt wasnt cant wont
		ive youre theyre thats whats said says told know think going still
		after before over only much more most other such these those here
		aita wibta aitah tifu throwaway edit update thanks thank everyone
		gold award upvote upvotes downvote comments comment post reddit
		mobile formatting sorry kind stranger
	`)
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}()
