package captions

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// AnchorKind says how an Anchor value is interpreted.
type AnchorKind int

const (
	// AnchorKeyword is a named alignment such as "center" or "bottom".
	AnchorKeyword AnchorKind = iota
	// AnchorFraction places the box edge at a fraction of the frame.
	AnchorFraction
	// AnchorPixels places the box edge at an absolute offset.
	AnchorPixels
)

// Anchor is one axis of a caption position.
type Anchor struct {
	Kind    AnchorKind
	Keyword string
	Value   float64
}

// Position anchors the caption box on both axes.
type Position struct {
	X Anchor
	Y Anchor
}

// ParseAnchor reads a keyword ("left", "center", "right", "top", "bottom"),
// a fraction in [0, 1] such as "0.85", or a pixel offset such as "120".
func ParseAnchor(value string) (Anchor, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "left", "center", "right", "top", "bottom":
		return Anchor{Kind: AnchorKeyword, Keyword: value}, nil
	case "":
		return Anchor{Kind: AnchorKeyword, Keyword: "center"}, nil
	}
	number, err := strconv.ParseFloat(value, 64)
	if err != nil || number < 0 {
		return Anchor{}, fmt.Errorf("invalid caption anchor %q", value)
	}
	if number <= 1 {
		return Anchor{Kind: AnchorFraction, Value: number}, nil
	}
	return Anchor{Kind: AnchorPixels, Value: number}, nil
}

// ParsePosition parses both axes of a caption position.
func ParsePosition(x, y string) (Position, error) {
	ax, err := ParseAnchor(x)
	if err != nil {
		return Position{}, err
	}
	ay, err := ParseAnchor(y)
	if err != nil {
		return Position{}, err
	}
	return Position{X: ax, Y: ay}, nil
}

// glyphWidthRatio approximates the average advance of a bold sans glyph
// relative to the font size.
const glyphWidthRatio = 0.55

// Wrap breaks text into lines that fit a box of boxWidth pixels at fontSize.
// Words longer than a line are kept whole on their own line.
func Wrap(text string, boxWidth, fontSize int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	maxChars := 0
	if boxWidth > 0 && fontSize > 0 {
		maxChars = int(float64(boxWidth) / (float64(fontSize) * glyphWidthRatio))
	}
	if maxChars <= 0 {
		return []string{strings.Join(words, " ")}
	}

	lines := make([]string, 0, 2)
	current := words[0]
	for _, word := range words[1:] {
		if utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) > maxChars {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
