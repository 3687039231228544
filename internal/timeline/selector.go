package timeline

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"storyreel/internal/services"
)

// Selector lists the usable clips of a folder and decides the order in which
// they are tried.
type Selector interface {
	Candidates(ctx context.Context, folder string) ([]string, error)
}

var mediaExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".m4v":  {},
	".avi":  {},
}

var systemFiles = map[string]struct{}{
	"thumbs.db":   {},
	"desktop.ini": {},
	".ds_store":   {},
}

// IsUsableClip reports whether a directory entry name looks like background
// media rather than a hidden or system file.
func IsUsableClip(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	lower := strings.ToLower(name)
	if _, ok := systemFiles[lower]; ok {
		return false
	}
	_, ok := mediaExtensions[filepath.Ext(lower)]
	return ok
}

// ListClips returns the usable media files directly inside folder, sorted by
// name.
func ListClips(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrResourceExhausted, "timeline", "list clips", "background folder does not exist: "+folder, err)
		}
		return nil, services.Wrap(services.ErrFileSystem, "timeline", "list clips", folder, err)
	}
	var clips []string
	for _, entry := range entries {
		if entry.IsDir() || !IsUsableClip(entry.Name()) {
			continue
		}
		clips = append(clips, filepath.Join(folder, entry.Name()))
	}
	slices.Sort(clips)
	return clips, nil
}

// RandomSelector shuffles the folder listing with an unseeded source.
type RandomSelector struct{}

// Candidates implements Selector.
func (RandomSelector) Candidates(_ context.Context, folder string) ([]string, error) {
	clips, err := ListClips(folder)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(clips), func(i, j int) {
		clips[i], clips[j] = clips[j], clips[i]
	})
	return clips, nil
}

// OrderedSelector returns the folder listing sorted by name.
type OrderedSelector struct{}

// Candidates implements Selector.
func (OrderedSelector) Candidates(_ context.Context, folder string) ([]string, error) {
	return ListClips(folder)
}

// SeededSelector shuffles deterministically from Seed. Useful for
// reproducing a particular run.
type SeededSelector struct {
	Seed uint64
}

// Candidates implements Selector.
func (s SeededSelector) Candidates(_ context.Context, folder string) ([]string, error) {
	clips, err := ListClips(folder)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(clips), func(i, j int) {
		clips[i], clips[j] = clips[j], clips[i]
	})
	return clips, nil
}
