package sources

import (
	"context"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

//go:generate mockgen -destination=mocks/mock_source_handler.go -package=mocks -source=types.go SourceHandler,SourceHandlerFactory

// SourceHandler is an interface with methods to fetch snapshots from external data sources
type SourceHandler interface {
	// FetchSnapshot retrieves and normalizes the snapshot
	FetchSnapshot(ctx context.Context, src *config.SourceConfig) (*FetchResult, error)

	// Validate validates the source configuration
	Validate(src *config.SourceConfig) error

	// CurrentHash returns the current hash of the snapshot without normalizing it
	CurrentHash(ctx context.Context, src *config.SourceConfig) (string, error)
}

// FetchResult contains the result of a fetch operation
type FetchResult struct {
	// Participants in snapshot row order with unique names
	Participants []leaderboard.Participant

	// Hash is the SHA256 hash of the raw snapshot bytes
	Hash string

	// RowCount is the number of data rows in the table, including skipped ones
	RowCount int

	// Skipped counts rows without a usable name
	Skipped int

	// Duplicates lists names dropped because an earlier row used them
	Duplicates []string

	// Format is the decoded format, xlsx or csv
	Format string
}

// SourceHandlerFactory creates source handlers based on source type
type SourceHandlerFactory interface {
	// CreateHandler creates a source handler for the given source type
	CreateHandler(sourceType string) (SourceHandler, error)
}
