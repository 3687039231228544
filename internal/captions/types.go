package captions

import "math"

// WordTimestamp is one transcribed word with its start and end in seconds.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a timed caption built from consecutive words.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the on-screen time of the segment.
func (s Segment) Duration() float64 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// RoundWords rounds word times to centiseconds, the precision transcription
// backends report reliably.
func RoundWords(words []WordTimestamp) []WordTimestamp {
	out := make([]WordTimestamp, len(words))
	for i, w := range words {
		out[i] = WordTimestamp{
			Word:  w.Word,
			Start: math.Round(w.Start*100) / 100,
			End:   math.Round(w.End*100) / 100,
		}
	}
	return out
}
