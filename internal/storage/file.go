package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
	"github.com/gdgc-dbit/leaderboard-sync/internal/versions"
)

// fileDocument is the on-disk layout of the file store
type fileDocument struct {
	// WrittenBy is the release that last wrote the document
	WrittenBy string                                 `json:"writtenBy,omitempty"`
	Records   map[string]leaderboard.PersistedRecord `json:"records"`
}

// FileStore keeps all records in one JSON document. Writes go to a temporary
// file that is renamed over the document, so a crash leaves either the old or
// the new document in place.
type FileStore struct {
	path   string
	rename func(oldpath, newpath string) error

	mu sync.Mutex
	*fileLeaser
}

var _ StoreLeaser = (*FileStore)(nil)

// NewFileStore creates a file store at path, creating its directory
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{
		path:       path,
		rename:     os.Rename,
		fileLeaser: newFileLeaser(path + ".lock"),
	}, nil
}

// ListAll reads every record from the document, ordered by name
func (s *FileStore) ListAll(_ context.Context) ([]leaderboard.PersistedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	records := make([]leaderboard.PersistedRecord, 0, len(doc.Records))
	for _, rec := range doc.Records {
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b leaderboard.PersistedRecord) int {
		return strings.Compare(a.Name, b.Name)
	})
	return records, nil
}

// BatchWrite merges the records into the document and replaces it atomically
func (s *FileStore) BatchWrite(ctx context.Context, records []leaderboard.PersistedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for _, rec := range records {
		doc.Records[rec.Name] = rec
	}
	doc.WrittenBy = versions.Version

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary store file: %w", err)
	}
	if err := s.rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename store file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store
func (*FileStore) Close() error {
	return nil
}

func (s *FileStore) load() (*fileDocument, error) {
	doc := &fileDocument{Records: map[string]leaderboard.PersistedRecord{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read store file %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", s.path, err)
	}
	if doc.Records == nil {
		doc.Records = map[string]leaderboard.PersistedRecord{}
	}
	if versions.IsNewerRelease(doc.WrittenBy, versions.Version) {
		slog.Warn("Store file was written by a newer release", "path", s.path,
			"writtenBy", doc.WrittenBy, "running", versions.Version)
	}
	return doc, nil
}
