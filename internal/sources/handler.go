package sources

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/normalize"
)

// fetcher retrieves the raw snapshot bytes for one source type
type fetcher interface {
	validate(src *config.SourceConfig) error

	// fetch returns the raw bytes and a name whose extension hints at the format
	fetch(ctx context.Context, src *config.SourceConfig) ([]byte, string, error)
}

// snapshotHandler implements SourceHandler on top of a fetcher
type snapshotHandler struct {
	fetcher fetcher
}

var _ SourceHandler = (*snapshotHandler)(nil)

// Validate validates the source configuration
func (h *snapshotHandler) Validate(src *config.SourceConfig) error {
	if src == nil {
		return fmt.Errorf("source configuration cannot be nil")
	}
	return h.fetcher.validate(src)
}

// FetchSnapshot fetches, decodes and normalizes the snapshot
func (h *snapshotHandler) FetchSnapshot(ctx context.Context, src *config.SourceConfig) (*FetchResult, error) {
	data, name, hash, err := h.fetchData(ctx, src)
	if err != nil {
		return nil, err
	}

	table, err := DecodeTable(data, src.GetFormat(), src.Sheet, name)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}

	res, err := normalize.Table(table.Headers, table.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize snapshot %s: %w", name, err)
	}

	return &FetchResult{
		Participants: res.Participants,
		Hash:         hash,
		RowCount:     len(table.Rows),
		Skipped:      res.Skipped,
		Duplicates:   res.Duplicates,
		Format:       table.Format,
	}, nil
}

// CurrentHash returns the hash of the raw snapshot bytes
func (h *snapshotHandler) CurrentHash(ctx context.Context, src *config.SourceConfig) (string, error) {
	_, _, hash, err := h.fetchData(ctx, src)
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (h *snapshotHandler) fetchData(ctx context.Context, src *config.SourceConfig) ([]byte, string, string, error) {
	if err := h.Validate(src); err != nil {
		return nil, "", "", fmt.Errorf("source validation failed: %w", err)
	}

	data, name, err := h.fetcher.fetch(ctx, src)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, "", "", fmt.Errorf("snapshot %s is empty", name)
	}
	if int64(len(data)) > src.GetMaxSize() {
		return nil, "", "", fmt.Errorf("snapshot %s is %d bytes, above the limit of %d bytes", name, len(data), src.GetMaxSize())
	}

	return data, name, fmt.Sprintf("%x", sha256.Sum256(data)), nil
}
