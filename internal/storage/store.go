// Package storage persists leaderboard records between reconciliation runs.
//
// Three backends are provided: a JSON document on local disk, a SQLite database
// and PostgreSQL. Every backend applies a batch write atomically, so readers
// never observe a partially written run, and every backend offers a lease that
// serializes runs across processes sharing the same store.
package storage

import (
	"context"
	"errors"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store,Leaser,StoreLeaser

// ErrLeaseHeld is returned by Acquire when another run holds the lease
var ErrLeaseHeld = errors.New("store lease is held by another run")

// Store is the persisted mapping from participant name to its last written record
type Store interface {
	// ListAll returns every persisted record, in no particular order
	ListAll(ctx context.Context) ([]leaderboard.PersistedRecord, error)

	// BatchWrite upserts the records keyed by name. Either all records are
	// applied or none are. Records not in the batch are left untouched.
	BatchWrite(ctx context.Context, records []leaderboard.PersistedRecord) error

	// Close releases the resources held by the store
	Close() error
}

// Leaser serializes reconciliation runs against one store
type Leaser interface {
	// Acquire takes the lease without blocking. It returns ErrLeaseHeld when
	// another holder has it. The returned release func is safe to call once.
	Acquire(ctx context.Context) (func(), error)
}

// StoreLeaser is a store that also provides its own lease
type StoreLeaser interface {
	Store
	Leaser
}
