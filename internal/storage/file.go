package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileStorage stores each artifact as a plain file at <root>/<team>/<id>,
// with both path elements escaped. Access goes through a base-path view of
// the root, so no key can reach a file outside of it.
type FileStorage struct {
	fs   afero.Fs
	root string
}

// NewFileStorage creates <cachePath>/<bucket> if needed and returns a storage
// rooted there.
func NewFileStorage(cachePath, bucket string) (*FileStorage, error) {
	root := filepath.Join(cachePath, bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %q: %w", root, err)
	}

	return &FileStorage{
		fs:   afero.NewBasePathFs(afero.NewOsFs(), root),
		root: root,
	}, nil
}

// NewFileStorageWithFs returns a FileStorage on top of an arbitrary afero
// filesystem, typically an in-memory one in tests.
func NewFileStorageWithFs(fsys afero.Fs) *FileStorage {
	return &FileStorage{fs: fsys}
}

// Root returns the directory artifacts are written to.
func (s *FileStorage) Root() string {
	return s.root
}

// filePath maps a "<team>/<id>" key onto "/<team>/<id>" relative to the
// storage root. Team and id are escaped separately, so every pair gets its
// own path and neither can name a parent or the team directory itself.
func filePath(key string) string {
	team, id, ok := cutLast(key, "/")
	if !ok {
		return string(filepath.Separator) + escapeSegment(key)
	}
	return filepath.Join(string(filepath.Separator), escapeSegment(team), escapeSegment(id))
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

// escapeSegment turns s into a single path element. url.PathEscape handles
// "/" and "%"; the names it would leave special are spelled out, and no
// escaped name can produce them.
func escapeSegment(s string) string {
	switch s {
	case "":
		return "%"
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return url.PathEscape(s)
}

func (s *FileStorage) Put(_ context.Context, key string, data []byte) error {
	name := filePath(key)
	dir := filepath.Dir(name)

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	// Write next to the final file and rename, so readers never see a
	// partially written artifact.
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close artifact: %w", err)
	}

	if err := s.fs.Rename(tmpName, name); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

func (s *FileStorage) Get(_ context.Context, key string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, filePath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

func (s *FileStorage) Exists(_ context.Context, key string) bool {
	info, err := s.fs.Stat(filePath(key))
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func (s *FileStorage) Ping(context.Context) error {
	if _, err := s.fs.Stat(string(filepath.Separator)); err != nil {
		return fmt.Errorf("cache directory unavailable: %w", err)
	}
	return nil
}
