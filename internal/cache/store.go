package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

// ErrNotFound is returned by a Store when a slot holds no response.
var ErrNotFound = errors.New("cache: slot not found")

// Store persists one response per slot. Save overwrites.
type Store interface {
	// Load returns the response stored in slot, or ErrNotFound.
	Load(ctx context.Context, slot string) (*models.CachedResponse, error)

	// Save replaces the response stored in slot. Readers must never see a
	// partially written response.
	Save(ctx context.Context, slot string, resp *models.CachedResponse) error
}

// FileStore keeps each slot as <dir>/<slot>.xml. The file's modification
// time is the fetch time.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is created
// on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing slot.
func (s *FileStore) Path(slot string) string {
	return filepath.Join(s.dir, slot+".xml")
}

func (s *FileStore) Load(_ context.Context, slot string) (*models.CachedResponse, error) {
	path := s.Path(slot)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &models.CachedResponse{Body: body, FetchedAt: info.ModTime()}, nil
}

// Save writes to a temporary file and renames it over the slot file.
func (s *FileStore) Save(_ context.Context, slot string, resp *models.CachedResponse) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chtimes(tmpName, resp.FetchedAt, resp.FetchedAt); err != nil {
		return fmt.Errorf("set fetch time: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(slot)); err != nil {
		return fmt.Errorf("replace %s: %w", s.Path(slot), err)
	}
	return nil
}
