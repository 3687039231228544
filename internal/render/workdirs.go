package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storyreel/internal/config"
	"storyreel/internal/services"
	"storyreel/internal/textutil"
)

// WorkingDirectories are the locations a job reads from and writes to.
// Jobs receive them explicitly; nothing is taken from process environment.
type WorkingDirectories struct {
	// Root holds per-job directories (job-<id>).
	Root string
	// Quarantine receives stray artifacts found by sweeps.
	Quarantine string
	// Output is where finished videos land when a job names no directory.
	Output string
	// VoiceCache holds synthesized narration shared across jobs.
	VoiceCache string
	// Labels holds label assets such as the avatar image.
	Labels string
}

// DirectoriesFromConfig maps configured paths onto WorkingDirectories.
func DirectoriesFromConfig(cfg *config.Config) WorkingDirectories {
	return WorkingDirectories{
		Root:       cfg.Paths.WorkDir,
		Quarantine: cfg.Paths.QuarantineDir,
		Output:     cfg.Paths.OutputDir,
		VoiceCache: cfg.Paths.VoiceCacheDir,
		Labels:     cfg.Paths.AssetsDir,
	}
}

// Ensure validates and creates the directories.
func (d WorkingDirectories) Ensure() error {
	required := map[string]string{"root": d.Root, "quarantine": d.Quarantine, "output": d.Output}
	for name, dir := range required {
		if strings.TrimSpace(dir) == "" {
			return services.Wrap(services.ErrValidation, "render", "working directories", name+" directory is not set", nil)
		}
	}
	for _, dir := range []string{d.Root, d.Quarantine, d.Output, d.VoiceCache} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrFileSystem, "render", "working directories", "create "+dir, err)
		}
	}
	return nil
}

// JobDir returns the namespaced directory for a job.
func (d WorkingDirectories) JobDir(jobID string) string {
	return filepath.Join(d.Root, jobDirPrefix+jobID)
}

const jobDirPrefix = "job-"

// CanonicalOutputPath resolves where a job's video is written: absolute,
// with a sanitized file name and an .mp4 extension. An empty request uses
// fallbackName inside the output directory.
func (d WorkingDirectories) CanonicalOutputPath(requested, fallbackName string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		name := textutil.FileName(fallbackName)
		if name == "" {
			return "", services.Wrap(services.ErrValidation, "render", "output path", "no output path or name", nil)
		}
		requested = name
	}
	if strings.HasPrefix(requested, "~") {
		expanded, err := config.ExpandPath(requested)
		if err != nil {
			return "", services.Wrap(services.ErrValidation, "render", "output path", requested, err)
		}
		requested = expanded
	}

	dir, base := filepath.Split(requested)
	if dir == "" {
		dir = d.Output
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = textutil.FileName(base)
	if base == "" {
		return "", services.Wrap(services.ErrValidation, "render", "output path", fmt.Sprintf("invalid output name %q", requested), nil)
	}
	abs, err := filepath.Abs(filepath.Join(dir, base+".mp4"))
	if err != nil {
		return "", services.Wrap(services.ErrFileSystem, "render", "output path", requested, err)
	}
	return abs, nil
}
