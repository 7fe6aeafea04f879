package inventory

import (
	"context"
	"time"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
)

// Repository defines persistence operations for inventory levels.
// No other component may write the quantity counters outside this contract.
type Repository interface {
	// CreateLevel inserts a new level. Returns a Duplicate error when the
	// (item, warehouse) pair already has one - levels are created exactly
	// once, never implicitly on first movement.
	CreateLevel(ctx context.Context, level *Level) error

	// GetLevel returns the level for the pair, or a NotFound error.
	GetLevel(ctx context.Context, itemID, warehouseID id.ID) (*Level, error)

	// UpdateLevel writes the level conditioned on its version being
	// unchanged, bumping the version on success. Returns a Conflict error
	// when another writer committed in between (lost-update detection).
	UpdateLevel(ctx context.Context, level *Level) error

	// AppendMovement records a committed movement. Called inside the same
	// transaction as the level update so a committed quantity change implies
	// a durable movement row.
	AppendMovement(ctx context.Context, movement Movement) error

	// ListLevels returns level snapshots for analytics reads. These reads
	// bypass the mutation discipline and may lag in-flight writers.
	ListLevels(ctx context.Context, filter LevelFilter) ([]Level, error)

	// ListMovements returns the movement history for a pair, newest first.
	ListMovements(ctx context.Context, itemID, warehouseID id.ID, filter MovementFilter) ([]Movement, error)
}

// LevelFilter narrows ListLevels queries.
type LevelFilter struct {
	WarehouseID *id.ID
	ItemIDs     []id.ID
	ExcludeZero bool
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
