package compose

import (
	"fmt"

	"storyreel/internal/captions"
	"storyreel/internal/config"
)

// Style controls how caption overlays look and where they sit.
type Style struct {
	FontFile   string
	FontSize   int
	Color      string
	BoxColor   string
	Position   captions.Position
	BoxWidth   int
	Capitalize bool
}

// StyleFromConfig resolves caption styling defaults.
func StyleFromConfig(cfg config.Captions) (Style, error) {
	position, err := captions.ParsePosition(cfg.PositionX, cfg.PositionY)
	if err != nil {
		return Style{}, err
	}
	return Style{
		FontFile:   cfg.FontPath,
		FontSize:   cfg.FontSize,
		Color:      cfg.Color,
		BoxColor:   cfg.BackgroundColor,
		Position:   position,
		BoxWidth:   cfg.BoxWidth,
		Capitalize: cfg.Capitalize,
	}, nil
}

// xExpression converts a horizontal anchor into a drawtext x expression.
func xExpression(anchor captions.Anchor) string {
	switch anchor.Kind {
	case captions.AnchorFraction:
		return fmt.Sprintf("w*%.3f", anchor.Value)
	case captions.AnchorPixels:
		return fmt.Sprintf("%.0f", anchor.Value)
	}
	switch anchor.Keyword {
	case "left":
		return "0"
	case "right":
		return "w-text_w"
	default:
		return "(w-text_w)/2"
	}
}

// yExpression converts a vertical anchor into a drawtext y expression.
// Fractions and pixels place the top edge of the text block.
func yExpression(anchor captions.Anchor) string {
	switch anchor.Kind {
	case captions.AnchorFraction:
		return fmt.Sprintf("h*%.3f", anchor.Value)
	case captions.AnchorPixels:
		return fmt.Sprintf("%.0f", anchor.Value)
	}
	switch anchor.Keyword {
	case "top":
		return "0"
	case "bottom":
		return "h-text_h"
	default:
		return "(h-text_h)/2"
	}
}
