package filecache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cnb-rates/internal/entity"

	"github.com/sirupsen/logrus"
)

const DefaultFilename = "_cnb_cache_.json"

// DefaultPath is the well-known fallback file in the OS temp directory.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultFilename)
}

// Store keeps the fallback map as one JSON object in a file.
type Store struct {
	path   string
	logger *logrus.Logger
}

func NewStore(path string, logger *logrus.Logger) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{
		path:   path,
		logger: logger,
	}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) (map[string]entity.FallbackEntry, error) {
	s.logger.WithField("path", s.path).Debug("Loading fallback rates file")

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read fallback file: %w", err)
	}

	entries := make(map[string]entity.FallbackEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode fallback file: %w", err)
	}

	s.logger.WithField("path", s.path).Debugf("Loaded %d fallback rates", len(entries))
	return entries, nil
}

// Save replaces the file content. The write goes through a temp file in the
// same directory so a reader never sees a partial object.
func (s *Store) Save(ctx context.Context, entries map[string]entity.FallbackEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode fallback rates: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename fallback file: %w", err)
	}

	s.logger.WithField("path", s.path).Debugf("Stored %d fallback rates", len(entries))
	return nil
}
