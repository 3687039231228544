// Package label renders the title card shown over the opening of a story
// video: a white canvas with the channel avatar, username, a verified
// marker, the wrapped story title and engagement counts.
package label

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"storyreel/internal/captions"
	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/media/engine"
	"storyreel/internal/services"
)

const (
	DefaultWidth  = 660
	DefaultHeight = 220

	avatarSize   = 72
	margin       = 24
	usernameSize = 26
	titleSize    = 30
	countSize    = 22
	rowGap       = 6
	countGap     = 10
	maxTitleRows = 3

	verifiedMark = "✓"
	likeMark     = "♥"
	shareMark    = "↻"
)

// Renderer draws a label spec to an image file.
type Renderer interface {
	RenderLabel(ctx context.Context, spec engine.LabelSpec) error
}

// Metadata is the per-label content besides the title.
type Metadata struct {
	Username   string
	Verified   bool
	AvatarPath string
	Likes      string
	Shares     string
}

// Generator builds label images.
type Generator struct {
	renderer  Renderer
	fontFile  string
	glyphFont string
	width     int
	height    int
	meta      Metadata
	logger    *slog.Logger
}

// NewGenerator returns a generator using the label config section. A
// relative avatar path is resolved against assetsDir.
func NewGenerator(renderer Renderer, cfg config.Label, assetsDir string, logger *slog.Logger) *Generator {
	avatar := strings.TrimSpace(cfg.AvatarPath)
	if avatar != "" && !filepath.IsAbs(avatar) && assetsDir != "" {
		avatar = filepath.Join(assetsDir, avatar)
	}
	g := &Generator{
		renderer:  renderer,
		fontFile:  cfg.FontPath,
		glyphFont: cfg.GlyphFontPath,
		width:     cfg.Width,
		height:    cfg.Height,
		meta: Metadata{
			Username:   cfg.Username,
			Verified:   true,
			AvatarPath: avatar,
			Likes:      cfg.LikeCount,
			Shares:     cfg.ShareCount,
		},
		logger: logging.NewComponentLogger(logger, "label"),
	}
	if g.width <= 0 {
		g.width = DefaultWidth
	}
	if g.height <= 0 {
		g.height = DefaultHeight
	}
	if g.glyphFont == "" {
		g.glyphFont = g.fontFile
	}
	return g
}

// Render writes label-<id>.png into dir using the configured metadata.
func (g *Generator) Render(ctx context.Context, dir, id, title string) (string, error) {
	return g.RenderWith(ctx, dir, id, title, g.meta)
}

// RenderWith writes label-<id>.png into dir using meta.
func (g *Generator) RenderWith(ctx context.Context, dir, id, title string, meta Metadata) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", services.Wrap(services.ErrValidation, "label", "render", "title is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrFileSystem, "label", "render", "create label directory", err)
	}
	if meta.AvatarPath != "" {
		if _, err := os.Stat(meta.AvatarPath); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, g.logger), "avatar image unavailable", "label_avatar_missing",
				logging.String("avatar_path", meta.AvatarPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set label.avatar_path to an existing image"),
				logging.String(logging.FieldImpact, "label rendered without avatar"),
			)
			meta.AvatarPath = ""
		}
	}

	lines, height := g.layout(title, meta)
	spec := engine.LabelSpec{
		Width:      g.width,
		Height:     height,
		Background: "white",
		AvatarPath: meta.AvatarPath,
		AvatarSize: avatarSize,
		AvatarX:    margin,
		AvatarY:    margin,
		Output:     filepath.Join(dir, "label-"+id+".png"),
	}
	for i, line := range lines {
		textFile := filepath.Join(dir, fmt.Sprintf("label-%s-%d.txt", id, i))
		if err := os.WriteFile(textFile, []byte(line.text), 0o644); err != nil {
			return "", services.Wrap(services.ErrFileSystem, "label", "render", "write label text", err)
		}
		spec.Texts = append(spec.Texts, engine.LabelText{
			TextFile: textFile,
			X:        line.x,
			Y:        line.y,
			FontFile: fontFor(line.glyph, g.glyphFont, g.fontFile),
			FontSize: line.size,
			Color:    line.color,
		})
	}
	if err := g.renderer.RenderLabel(ctx, spec); err != nil {
		return "", err
	}
	return spec.Output, nil
}

type textLine struct {
	text  string
	x, y  int
	size  int
	color string
	glyph bool
}

// bottom is the lowest pixel row the line occupies.
func (l textLine) bottom() int { return l.y + l.size }

// layout positions every text element and returns the canvas height. The
// counts row sits below the last title row; the canvas grows past the
// configured height when the title needs the room.
func (g *Generator) layout(title string, meta Metadata) ([]textLine, int) {
	textX := margin
	if meta.AvatarPath != "" {
		textX = margin + avatarSize + 14
	}
	var lines []textLine
	if username := strings.TrimSpace(meta.Username); username != "" {
		lines = append(lines, textLine{text: username, x: textX, y: margin + 8, size: usernameSize, color: "black"})
		if meta.Verified {
			markX := textX + textWidth(username, usernameSize) + 8
			lines = append(lines, textLine{text: verifiedMark, x: markX, y: margin + 8, size: usernameSize, color: "0x1d9bf0", glyph: true})
		}
	}

	rows := captions.Wrap(title, g.width-2*margin, titleSize)
	if len(rows) > maxTitleRows {
		rows = rows[:maxTitleRows]
		rows[maxTitleRows-1] = strings.TrimRight(rows[maxTitleRows-1], ".,;: ") + "..."
	}
	y := margin + avatarSize + 10
	bottom := y
	for _, row := range rows {
		line := textLine{text: row, x: margin, y: y, size: titleSize, color: "black"}
		lines = append(lines, line)
		bottom = line.bottom()
		y += titleSize + rowGap
	}

	height := g.height
	counts := countItems(meta)
	if len(counts) > 0 {
		countY := max(g.height-margin-countSize, bottom+countGap)
		x := margin
		for _, item := range counts {
			lines = append(lines, textLine{text: item.mark, x: x, y: countY, size: countSize, color: "0x536471", glyph: true})
			x += textWidth(item.mark, countSize) + 8
			lines = append(lines, textLine{text: item.value, x: x, y: countY, size: countSize, color: "0x536471"})
			x += textWidth(item.value, countSize) + 28
		}
		height = max(height, countY+countSize+margin)
	} else {
		height = max(height, bottom+margin)
	}
	return lines, height
}

type countItem struct {
	mark  string
	value string
}

func countItems(meta Metadata) []countItem {
	var items []countItem
	if meta.Likes != "" {
		items = append(items, countItem{mark: likeMark, value: meta.Likes})
	}
	if meta.Shares != "" {
		items = append(items, countItem{mark: shareMark, value: meta.Shares})
	}
	return items
}

func fontFor(glyph bool, glyphFont, textFont string) string {
	if glyph {
		return glyphFont
	}
	return textFont
}

func textWidth(text string, size int) int {
	return int(float64(utf8.RuneCountInString(text)*size) * 0.55)
}

// FormatCount renders n, capped as "<limit>+" once n exceeds limit.
func FormatCount(n, limit int) string {
	if n < 0 {
		n = 0
	}
	if limit > 0 && n > limit {
		return strconv.Itoa(limit) + "+"
	}
	return strconv.Itoa(n)
}
