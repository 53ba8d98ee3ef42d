// Package service provides the read side of the leaderboard: listing, search, stats and stale detection.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

var (
	// ErrEntryNotFound is returned when no record exists for a participant name
	ErrEntryNotFound = errors.New("participant not found")
	// ErrInvalidCursor is returned when a pagination cursor cannot be decoded
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrInvalidOption is returned when a list option is rejected
	ErrInvalidOption = errors.New("invalid list option")
)

const (
	// DefaultLimit is the page size used when no limit is requested
	DefaultLimit = 100
	// MaxLimit caps the page size
	MaxLimit = 1000
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go LeaderboardService

// LeaderboardService defines the read operations over persisted leaderboard records.
// It never runs reconciliation.
type LeaderboardService interface {
	// CheckReadiness checks if the underlying store can be read
	CheckReadiness(ctx context.Context) error

	// ListEntries returns the leaderboard ordered by stored rank
	ListEntries(ctx context.Context, opts ...Option) (*EntryList, error)

	// GetEntry returns the record of a single participant
	GetEntry(ctx context.Context, name string) (*Entry, error)

	// Stats returns aggregate counts over the current leaderboard
	Stats(ctx context.Context) (*Stats, error)
}

// Invalidator is implemented by services that cache records and can be told
// that a run has just rewritten the store
type Invalidator interface {
	Invalidate()
}

// Entry is a persisted record as shown on the dashboard
type Entry struct {
	leaderboard.PersistedRecord

	// Badge is the rendered arcade status: Yes, No or -
	Badge string `json:"badge"`
	// Stale marks a record that the latest run did not rewrite
	Stale bool `json:"stale"`
}

// EntryList is one page of the leaderboard
type EntryList struct {
	Entries    []Entry `json:"entries"`
	Total      int     `json:"total"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

// Stats aggregates the current (non-stale) leaderboard
type Stats struct {
	Participants       int        `json:"participants"`
	Finished           int        `json:"finished"`
	EligibleForGoodies int        `json:"eligibleForGoodies"`
	Locked             int        `json:"locked"`
	Stale              int        `json:"stale"`
	LastUpdated        *time.Time `json:"lastUpdated,omitempty"`
}

// ListOptions is the options for the ListEntries operation
type ListOptions struct {
	Search       string
	IncludeStale bool
	Limit        int
	Cursor       string
}

// Option is a function that sets an option for the ListEntries operation
type Option func(*ListOptions) error

// WithSearch filters entries by a case-insensitive name substring
func WithSearch(search string) Option {
	return func(o *ListOptions) error {
		if search == "" {
			return fmt.Errorf("invalid search: %s", search)
		}
		o.Search = search
		return nil
	}
}

// WithIncludeStale returns records the latest run did not rewrite
func WithIncludeStale(include bool) Option {
	return func(o *ListOptions) error {
		o.IncludeStale = include
		return nil
	}
}

// WithLimit sets the page size
func WithLimit(limit int) Option {
	return func(o *ListOptions) error {
		if limit <= 0 {
			return fmt.Errorf("invalid limit: %d", limit)
		}
		if limit > MaxLimit {
			return fmt.Errorf("limit %d exceeds maximum of %d", limit, MaxLimit)
		}
		o.Limit = limit
		return nil
	}
}

// WithCursor continues a listing after the entry the cursor points at
func WithCursor(cursor string) Option {
	return func(o *ListOptions) error {
		if cursor == "" {
			return fmt.Errorf("invalid cursor: %s", cursor)
		}
		o.Cursor = cursor
		return nil
	}
}
