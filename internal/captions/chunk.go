package captions

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTitleGap is the minimum silence separating title captions from body
// captions.
const DefaultTitleGap = 0.99

// timeEpsilon absorbs float error in gap comparisons; word times carry
// centisecond precision.
const timeEpsilon = 1e-9

// ChunkOptions controls how words are grouped into segments.
type ChunkOptions struct {
	// MaxWords caps the words per segment. Values below 1 are treated as 1.
	MaxWords int
	// MaxGap splits a segment when the silence before a word is strictly
	// greater than this many seconds.
	MaxGap float64
	// Capitalize upper-cases segment text. Source words are never modified.
	Capitalize bool
}

// Chunk groups words, in order, into caption segments.
func Chunk(words []WordTimestamp, opts ChunkOptions) []Segment {
	if len(words) == 0 {
		return []Segment{}
	}
	maxWords := max(opts.MaxWords, 1)
	upper := cases.Upper(language.Und)

	segments := make([]Segment, 0, len(words)/maxWords+1)
	group := make([]WordTimestamp, 0, maxWords)

	flush := func() {
		if len(group) == 0 {
			return
		}
		parts := make([]string, len(group))
		for i, w := range group {
			parts[i] = strings.TrimSpace(w.Word)
		}
		text := strings.Join(parts, " ")
		if opts.Capitalize {
			text = upper.String(text)
		}
		segments = append(segments, Segment{
			Text:  text,
			Start: group[0].Start,
			End:   group[len(group)-1].End,
		})
		group = group[:0]
	}

	for _, word := range words {
		if len(group) > 0 {
			prev := group[len(group)-1]
			if len(group) >= maxWords || word.Start-prev.End > opts.MaxGap+timeEpsilon {
				flush()
			}
		}
		group = append(group, word)
	}
	flush()
	return segments
}

// StripLeadingTitle removes the title captions: every segment before the first
// pair separated by at least minGap seconds. Input with fewer than two segments
// or no such gap is returned unchanged.
func StripLeadingTitle(segments []Segment, minGap float64) []Segment {
	if len(segments) < 2 {
		return segments
	}
	for i := 0; i < len(segments)-1; i++ {
		if segments[i+1].Start-segments[i].End >= minGap-timeEpsilon {
			return segments[i+1:]
		}
	}
	return segments
}
