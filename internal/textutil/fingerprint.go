package textutil

import "math"

// Fingerprint is a weighted term vector of a cleaned story body.
type Fingerprint struct {
	terms map[string]float64
	norm  float64
}

// NewFingerprint cleans and tokenizes a story body. Term weights are
// 1+ln(count) so a single word repeated through a long rant does not
// dominate. It returns nil when no terms survive.
func NewFingerprint(text string) *Fingerprint {
	counts := make(map[string]int)
	for _, term := range Tokenize(CleanStory(text)) {
		counts[term]++
	}
	if len(counts) == 0 {
		return nil
	}
	fp := &Fingerprint{terms: make(map[string]float64, len(counts))}
	var sum float64
	for term, count := range counts {
		weight := 1 + math.Log(float64(count))
		fp.terms[term] = weight
		sum += weight * weight
	}
	fp.norm = math.Sqrt(sum)
	return fp
}

// Terms is the number of distinct terms.
func (f *Fingerprint) Terms() int {
	if f == nil {
		return 0
	}
	return len(f.terms)
}

// Similarity is the cosine similarity of f and other, in [0, 1].
func (f *Fingerprint) Similarity(other *Fingerprint) float64 {
	if f == nil || other == nil || f.norm == 0 || other.norm == 0 {
		return 0
	}
	small, large := f, other
	if len(small.terms) > len(large.terms) {
		small, large = large, small
	}
	var dot float64
	for term, weight := range small.terms {
		dot += weight * large.terms[term]
	}
	return min(dot/(f.norm*other.norm), 1)
}
