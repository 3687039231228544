package backgrounds

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"storyreel/internal/logging"
	"storyreel/internal/services"
)

// Downloader fetches a remote video into dir and returns the local file.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

// YtDlp downloads with the yt-dlp binary.
type YtDlp struct {
	binary string
	logger *slog.Logger
}

// NewYtDlp returns a downloader using binary, or the yt-dlp found on PATH
// when binary is empty.
func NewYtDlp(binary string, logger *slog.Logger) *YtDlp {
	return &YtDlp{
		binary: strings.TrimSpace(binary),
		logger: logging.NewComponentLogger(logger, "backgrounds"),
	}
}

// Download saves the best mp4 rendition of url as <dir>/source-<id>.mp4.
func (y *YtDlp) Download(ctx context.Context, url, dir string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", services.Wrap(services.ErrValidation, "backgrounds", "download", "url is empty", nil)
	}
	dl := ytdlp.New().
		FormatSort("res,ext:mp4:m4a").
		RecodeVideo("mp4").
		NoPlaylist().
		ForceOverwrites().
		Output(filepath.Join(dir, "source-%(id)s.%(ext)s"))
	if y.binary != "" {
		dl = dl.SetExecutable(y.binary)
	}

	var downloaded string
	lastLogged := -1
	dl = dl.ProgressFunc(time.Second, func(prog ytdlp.ProgressUpdate) {
		if prog.Status == ytdlp.ProgressStatusFinished && prog.Filename != "" {
			downloaded = prog.Filename
		}
		if pct := int(prog.Percent()) / 25; pct > lastLogged {
			lastLogged = pct
			y.logger.Info("download progress",
				logging.String("status", string(prog.Status)),
				logging.Float64("percent", prog.Percent()),
			)
		}
	})

	if _, err := dl.Run(ctx, url); err != nil {
		return "", services.Wrap(services.ErrExternalService, "backgrounds", "download", url, err)
	}
	if downloaded == "" {
		return "", services.Wrap(services.ErrExternalService, "backgrounds", "download", fmt.Sprintf("yt-dlp reported no file for %s", url), nil)
	}
	return downloaded, nil
}
