// Package storage manages generated audio files and their metadata sidecar.
//
// Every generated file lives in one output directory next to a JSON sidecar
// (.metadata.json) that maps filename to Metadata. The sidecar is rewritten
// whole on every change with no locking: concurrent writers may lose each
// other's updates and the last writer wins. Listings tolerate this because
// files without an entry get a record built from filesystem stat data.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/readaloud/internal/config"
	"github.com/nadzzz/readaloud/internal/tts"
)

// MetadataFile is the sidecar's name inside the output directory.
const MetadataFile = ".metadata.json"

// UnknownText is the originalText of files that have no sidecar entry.
const UnknownText = "unknown"

// timestampLayout is filesystem-safe: no colons, millisecond resolution.
const timestampLayout = "2006-01-02_15-04-05.000"

// Metadata describes one generated audio file.
type Metadata struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	Duration     *float64  `json:"duration,omitempty"`
	OriginalText string    `json:"originalText"`
	Format       string    `json:"format"`
}

// Name returns the file's base name, the sidecar key.
func (m *Metadata) Name() string { return filepath.Base(m.Path) }

// Store is the audio output directory plus its retention policy.
type Store struct {
	dir      string
	maxAge   time.Duration
	maxFiles int

	// now is replaceable for tests.
	now func() time.Time
}

// New creates the output directory if needed and returns a Store for it.
func New(cfg config.StorageConfig) (*Store, error) {
	dir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &Store{
		dir:      dir,
		maxAge:   cfg.MaxAge,
		maxFiles: cfg.MaxFiles,
		now:      time.Now,
	}, nil
}

// Dir returns the absolute output directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the absolute path of filename inside the store.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// GenerateFilename returns a new name like 2024-01-15_14-30-25-123_1a2b3c4d.wav.
// The random suffix keeps calls within the same millisecond apart.
func (s *Store) GenerateFilename(format tts.Format) string {
	stamp := strings.ReplaceAll(s.now().Format(timestampLayout), ".", "-")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return stamp + "_" + suffix + format.Ext()
}

// SaveMetadata inserts or replaces the entry for md's file. A missing or
// corrupt sidecar is treated as empty; only write failures are returned.
func (s *Store) SaveMetadata(md *Metadata) error {
	all := s.load()
	all[md.Name()] = md
	return s.write(all)
}

// GetMetadata looks up the entry for filename.
func (s *Store) GetMetadata(filename string) (*Metadata, bool) {
	md, ok := s.load()[filepath.Base(filename)]
	return md, ok
}

// ListAudioFiles returns every audio file in the store, newest first.
// Files without a sidecar entry are described from stat data.
func (s *Store) ListAudioFiles() ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading output dir: %w", err)
	}
	all := s.load()

	files := make([]Metadata, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		format, ok := audioFormat(name)
		if !ok || entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if md, ok := all[name]; ok {
			files = append(files, *md)
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, Metadata{
			Path:         s.Path(name),
			Size:         info.Size(),
			CreatedAt:    info.ModTime(),
			OriginalText: UnknownText,
			Format:       string(format),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].Name() > files[j].Name()
	})
	return files, nil
}

// Cleanup deletes files older than the maximum age and files beyond the
// maximum count (oldest first), together with their sidecar entries, and
// prunes entries whose file has disappeared. Individual failures are logged
// and skipped. It returns the number of files removed.
func (s *Store) Cleanup(ctx context.Context) int {
	files, err := s.ListAudioFiles()
	if err != nil {
		slog.Warn("cleanup: listing audio files", "error", err)
		return 0
	}

	cutoff := s.now().Add(-s.maxAge)
	dropped := make(map[string]bool)
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		expired := s.maxAge > 0 && f.CreatedAt.Before(cutoff)
		excess := s.maxFiles > 0 && i >= s.maxFiles
		if !expired && !excess {
			continue
		}
		if err := os.Remove(s.Path(f.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("cleanup: removing audio file", "file", f.Name(), "error", err)
			continue
		}
		dropped[f.Name()] = true
		slog.Debug("cleanup: removed audio file", "file", f.Name(), "expired", expired, "excess", excess)
	}

	all := s.load()
	changed := false
	for name := range all {
		if dropped[name] {
			delete(all, name)
			changed = true
			continue
		}
		if _, err := os.Stat(s.Path(name)); errors.Is(err, os.ErrNotExist) {
			delete(all, name)
			changed = true
		}
	}
	if changed {
		if err := s.write(all); err != nil {
			slog.Warn("cleanup: writing metadata", "error", err)
		}
	}

	if len(dropped) > 0 {
		slog.Info("cleanup complete", "removed", len(dropped), "remaining", len(files)-len(dropped))
	}
	return len(dropped)
}

// load reads the sidecar. Missing or unreadable documents yield an empty map.
func (s *Store) load() map[string]*Metadata {
	all := make(map[string]*Metadata)
	data, err := os.ReadFile(filepath.Join(s.dir, MetadataFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("reading metadata sidecar", "error", err)
		}
		return all
	}
	if err := json.Unmarshal(data, &all); err != nil {
		slog.Warn("metadata sidecar is corrupt, starting fresh", "error", err)
		return make(map[string]*Metadata)
	}
	for name, md := range all {
		if md == nil {
			delete(all, name)
		}
	}
	return all
}

// write replaces the sidecar via a temporary file and rename, so readers
// never see a partial document. It does not serialize writers.
func (s *Store) write(all map[string]*Metadata) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, MetadataFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, MetadataFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// audioFormat infers the format from a file extension.
func audioFormat(name string) (tts.Format, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, f := range tts.Formats {
		if string(f) == ext {
			return f, true
		}
	}
	return "", false
}
