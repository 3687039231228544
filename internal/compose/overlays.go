package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storyreel/internal/captions"
	"storyreel/internal/media/engine"
	"storyreel/internal/services"
	"storyreel/internal/workpool"
)

// BuildOverlays turns caption segments into drawtext overlays. Text files are
// written into dir concurrently; the returned overlays keep segment order.
// Segments with no visible text or no on-screen time are dropped. Text is used
// as given; upper-casing happens when segments are chunked.
func BuildOverlays(ctx context.Context, pool *workpool.Pool, segments []captions.Segment, style Style, dir string) ([]engine.TextOverlay, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "compose", "caption overlays", "create caption directory", err)
	}
	x := xExpression(style.Position.X)
	y := yExpression(style.Position.Y)

	built, err := workpool.Map(ctx, pool, segments, func(_ context.Context, index int, segment captions.Segment) (*engine.TextOverlay, error) {
		text := strings.TrimSpace(segment.Text)
		if text == "" || segment.Duration() <= 0 {
			return nil, nil
		}
		lines := captions.Wrap(text, style.BoxWidth, style.FontSize)
		path := filepath.Join(dir, fmt.Sprintf("%04d.txt", index))
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return nil, services.Wrap(services.ErrFileSystem, "compose", "caption overlays", "write caption text", err)
		}
		return &engine.TextOverlay{
			TextFile: path,
			Start:    segment.Start,
			End:      segment.End,
			X:        x,
			Y:        y,
			FontFile: style.FontFile,
			FontSize: style.FontSize,
			Color:    style.Color,
			BoxColor: style.BoxColor,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	overlays := make([]engine.TextOverlay, 0, len(built))
	for _, overlay := range built {
		if overlay != nil {
			overlays = append(overlays, *overlay)
		}
	}
	return overlays, nil
}
