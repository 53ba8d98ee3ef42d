package sources

import (
	"context"
	"fmt"
	"os"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
)

// fileFetcher reads snapshots from local files
type fileFetcher struct{}

// NewFileSourceHandler creates a new file source handler
func NewFileSourceHandler() SourceHandler {
	return &snapshotHandler{fetcher: fileFetcher{}}
}

func (fileFetcher) validate(src *config.SourceConfig) error {
	if src.File == nil {
		return fmt.Errorf("file configuration is required")
	}
	if src.File.Path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	return nil
}

func (fileFetcher) fetch(_ context.Context, src *config.SourceConfig) ([]byte, string, error) {
	filePath := src.File.Path

	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("file not found: %s", filePath)
		}
		return nil, "", fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return data, filePath, nil
}
