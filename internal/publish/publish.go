package publish

import (
	"context"
	"log/slog"

	"storyreel/internal/config"
	"storyreel/internal/render"
)

// New returns the configured publisher, or nil when publishing is disabled.
func New(ctx context.Context, cfg config.Publish, logger *slog.Logger) (render.Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Target == "youtube" {
		yt, err := NewYouTube(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return yt, nil
	}
	s3p, err := NewS3(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s3p, nil
}
