package backgrounds

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"storyreel/internal/logging"
	"storyreel/internal/media/engine"
	"storyreel/internal/services"
	"storyreel/internal/textutil"
	"storyreel/internal/timeline"
)

// Splitter cuts a video into fixed-length clips.
type Splitter interface {
	Split(ctx context.Context, spec engine.SplitSpec) error
}

// Folder summarizes one background folder.
type Folder struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Clips int    `json:"clips"`
}

// ImportResult describes the clips produced from one source video.
type ImportResult struct {
	Folder string   `json:"folder"`
	Source string   `json:"source"`
	Clips  []string `json:"clips"`
}

// Library manages the background directory tree.
type Library struct {
	root        string
	clipSeconds float64
	splitter    Splitter
	downloader  Downloader
	logger      *slog.Logger
}

// NewLibrary returns a library rooted at root. downloader may be nil when
// only local files are split.
func NewLibrary(root string, clipSeconds float64, splitter Splitter, downloader Downloader, logger *slog.Logger) *Library {
	if clipSeconds <= 0 {
		clipSeconds = 10
	}
	return &Library{
		root:        root,
		clipSeconds: clipSeconds,
		splitter:    splitter,
		downloader:  downloader,
		logger:      logging.NewComponentLogger(logger, "backgrounds"),
	}
}

// Folders lists the background folders and how many usable clips each holds.
func (l *Library) Folders() ([]Folder, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrFileSystem, "backgrounds", "list folders", l.root, err)
	}
	var folders []Folder
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(l.root, entry.Name())
		clips, err := timeline.ListClips(dir)
		if err != nil {
			return nil, err
		}
		folders = append(folders, Folder{Name: entry.Name(), Path: dir, Clips: len(clips)})
	}
	return folders, nil
}

// Import downloads url and splits it into folder. The downloaded source is
// removed once the clips exist.
func (l *Library) Import(ctx context.Context, url, folder string) (ImportResult, error) {
	if l.downloader == nil {
		return ImportResult{}, services.Wrap(services.ErrConfiguration, "backgrounds", "import", "no downloader configured", nil)
	}
	dir, err := l.folderPath(folder)
	if err != nil {
		return ImportResult{}, err
	}
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return ImportResult{}, services.Wrap(services.ErrFileSystem, "backgrounds", "import", "create background root", err)
	}
	staging, err := os.MkdirTemp(l.root, ".import-")
	if err != nil {
		return ImportResult{}, services.Wrap(services.ErrFileSystem, "backgrounds", "import", "create staging dir", err)
	}
	defer os.RemoveAll(staging)

	source, err := l.downloader.Download(ctx, url, staging)
	if err != nil {
		return ImportResult{}, err
	}
	result, err := l.split(ctx, source, dir)
	if err != nil {
		return ImportResult{}, err
	}
	result.Source = url
	return result, nil
}

// Split cuts a local video into folder, keeping the source file.
func (l *Library) Split(ctx context.Context, input, folder string) (ImportResult, error) {
	if _, err := os.Stat(input); err != nil {
		return ImportResult{}, services.Wrap(services.ErrValidation, "backgrounds", "split", "input video not found: "+input, err)
	}
	dir, err := l.folderPath(folder)
	if err != nil {
		return ImportResult{}, err
	}
	return l.split(ctx, input, dir)
}

func (l *Library) split(ctx context.Context, input, dir string) (ImportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ImportResult{}, services.Wrap(services.ErrFileSystem, "backgrounds", "split", "create folder", err)
	}
	prefix := ClipPrefix(input)
	before, err := timeline.ListClips(dir)
	if err != nil {
		return ImportResult{}, err
	}
	spec := engine.SplitSpec{
		Input:          input,
		SegmentSeconds: l.clipSeconds,
		Pattern:        filepath.Join(dir, prefix+"-%03d.mp4"),
	}
	if err := l.splitter.Split(ctx, spec); err != nil {
		return ImportResult{}, err
	}
	after, err := timeline.ListClips(dir)
	if err != nil {
		return ImportResult{}, err
	}
	var created []string
	for _, clip := range after {
		if !slices.Contains(before, clip) && strings.HasPrefix(filepath.Base(clip), prefix+"-") {
			created = append(created, clip)
		}
	}
	if len(created) == 0 {
		return ImportResult{}, services.Wrap(services.ErrEncoding, "backgrounds", "split", fmt.Sprintf("no clips produced from %s", input), nil)
	}
	l.logger.Info("background clips created",
		logging.String(logging.FieldEventType, "backgrounds_split"),
		logging.String("folder", dir),
		logging.Int("clips", len(created)),
	)
	return ImportResult{Folder: filepath.Base(dir), Source: input, Clips: created}, nil
}

func (l *Library) folderPath(folder string) (string, error) {
	folder = strings.TrimSpace(folder)
	if folder == "" || folder != filepath.Base(folder) || strings.HasPrefix(folder, ".") {
		return "", services.Wrap(services.ErrValidation, "backgrounds", "folder", fmt.Sprintf("invalid folder name %q", folder), nil)
	}
	return filepath.Join(l.root, folder), nil
}

// ClipPrefix derives a clip name prefix from a source file name.
func ClipPrefix(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return textutil.Slug(base)
}
