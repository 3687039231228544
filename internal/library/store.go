package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/services"
)

// Record is a type a Store can hold.
type Record interface {
	Story | VideoConfig
}

// Entry pairs a record with its name.
type Entry[T Record] struct {
	Name   string `json:"name"`
	Record T      `json:"config"`
}

// Store keeps records of one kind as JSON files in a directory.
type Store[T Record] struct {
	dir    string
	kind   string
	logger *slog.Logger
}

// NewStore returns a store rooted at dir. kind names the records in errors.
func NewStore[T Record](dir, kind string, logger *slog.Logger) *Store[T] {
	return &Store[T]{dir: dir, kind: kind, logger: logging.NewComponentLogger(logger, "library")}
}

// Dir returns the backing directory.
func (s *Store[T]) Dir() string { return s.dir }

// NormalizeName validates a record name and strips a trailing .json.
// Names may not contain path separators or start with a dot.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".json")
	switch {
	case name == "":
		return "", errors.New("name is empty")
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("name %q must not contain path separators", name)
	case strings.HasPrefix(name, "."):
		return "", fmt.Errorf("name %q must not start with a dot", name)
	}
	return name, nil
}

func (s *Store[T]) path(name string) (string, string, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "library", s.kind, "", err)
	}
	return normalized, filepath.Join(s.dir, normalized+".json"), nil
}

// List returns every readable record sorted by name. Unreadable files are
// skipped with a warning.
func (s *Store[T]) List() ([]Entry[T], error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrFileSystem, "library", "list "+s.kind, s.dir, err)
	}
	out := make([]Entry[T], 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		record, err := s.read(filepath.Join(s.dir, name))
		if err != nil {
			logging.WarnWithContext(s.logger, "skipping unreadable record", "library_record_invalid",
				logging.String("kind", s.kind),
				logging.String("file", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix or delete the JSON file"),
				logging.String(logging.FieldImpact, "record hidden from listings"),
			)
			continue
		}
		out = append(out, Entry[T]{Name: strings.TrimSuffix(name, ".json"), Record: record})
	}
	slices.SortFunc(out, func(a, b Entry[T]) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Get reads one record.
func (s *Store[T]) Get(name string) (T, error) {
	var zero T
	normalized, path, err := s.path(name)
	if err != nil {
		return zero, err
	}
	record, err := s.read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return zero, services.Wrap(services.ErrNotFound, "library", s.kind, normalized, nil)
		}
		return zero, services.Wrap(services.ErrValidation, "library", s.kind, normalized, err)
	}
	return record, nil
}

// Put writes a record, replacing any existing one.
func (s *Store[T]) Put(name string, record T) (string, error) {
	normalized, path, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := validate(record); err != nil {
		return "", services.Wrap(services.ErrValidation, "library", s.kind, normalized, err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "library", s.kind, "encode", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrFileSystem, "library", s.kind, "create directory", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", services.Wrap(services.ErrFileSystem, "library", s.kind, "write "+normalized, err)
	}
	return normalized, nil
}

// Delete removes a record.
func (s *Store[T]) Delete(name string) error {
	normalized, path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrNotFound, "library", s.kind, normalized, nil)
		}
		return services.Wrap(services.ErrFileSystem, "library", s.kind, "delete "+normalized, err)
	}
	return nil
}

func (s *Store[T]) read(path string) (T, error) {
	var record T
	data, err := os.ReadFile(path)
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return record, nil
}

func validate(record any) error {
	if v, ok := record.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// Library bundles the story and video config stores.
type Library struct {
	Stories *Store[Story]
	Videos  *Store[VideoConfig]
}

// New returns a library over the two directories.
func New(storiesDir, videosDir string, logger *slog.Logger) *Library {
	return &Library{
		Stories: NewStore[Story](storiesDir, "story", logger),
		Videos:  NewStore[VideoConfig](videosDir, "video config", logger),
	}
}
