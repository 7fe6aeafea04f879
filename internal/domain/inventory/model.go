// Package inventory provides the inventory level store, the stock movement
// engine and the reservation manager. A level tracks, per (item, warehouse)
// pair, how many units physically exist, how many are promised to pending
// orders, and how many remain sellable.
package inventory

import (
	"encoding/json"
	"time"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/apperror"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
)

// Level is the unit of state: one record per (item, warehouse) pair.
//
// Invariants that hold after every committed mutation:
//
//	current_quantity >= 0
//	0 <= reserved_quantity <= current_quantity
//
// Available quantity is derived, never persisted.
type Level struct {
	// Dimensions
	ItemID      id.ID `db:"item_id" json:"itemId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	// Resources
	CurrentQuantity  int64 `db:"current_quantity" json:"currentQuantity"`
	ReservedQuantity int64 `db:"reserved_quantity" json:"reservedQuantity"`

	// Bookkeeping (not behaviorally load-bearing)
	LocationCode *string `db:"location_code" json:"locationCode,omitempty"`
	BinCode      *string `db:"bin_code" json:"binCode,omitempty"`

	// Version is the optimistic concurrency token. Conditional writes check
	// it and bump it; it is never exposed to API clients.
	Version int64 `db:"version" json:"-"`

	LastMovementAt time.Time `db:"last_movement_at" json:"lastMovementAt"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// NewLevel creates a level for a pair with its opening quantities.
func NewLevel(itemID, warehouseID id.ID, current, reserved int64) *Level {
	now := time.Now().UTC()
	return &Level{
		ItemID:           itemID,
		WarehouseID:      warehouseID,
		CurrentQuantity:  current,
		ReservedQuantity: reserved,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// AvailableQuantity returns sellable stock, computed at read time.
func (l *Level) AvailableQuantity() int64 {
	return l.CurrentQuantity - l.ReservedQuantity
}

// Validate checks the level invariants. It is called on initialization and
// is the safety net behind every mutation's precondition checks.
func (l *Level) Validate() error {
	if l.CurrentQuantity < 0 {
		return apperror.NewInvalidTransition("current_non_negative",
			"current quantity must not be negative").
			WithDetail("current", l.CurrentQuantity)
	}
	if l.ReservedQuantity < 0 || l.ReservedQuantity > l.CurrentQuantity {
		return apperror.NewInvalidTransition("reserved_within_current",
			"reserved quantity must be between zero and current quantity").
			WithDetail("current", l.CurrentQuantity).
			WithDetail("reserved", l.ReservedQuantity)
	}
	return nil
}

// Snapshot returns the caller-facing view of the level.
func (l *Level) Snapshot() Snapshot {
	return Snapshot{
		ItemID:            l.ItemID,
		WarehouseID:       l.WarehouseID,
		CurrentQuantity:   l.CurrentQuantity,
		ReservedQuantity:  l.ReservedQuantity,
		AvailableQuantity: l.AvailableQuantity(),
		LocationCode:      l.LocationCode,
		BinCode:           l.BinCode,
		LastMovementAt:    l.LastMovementAt,
	}
}

// Snapshot is an immutable view of a level returned by every operation.
type Snapshot struct {
	ItemID            id.ID     `json:"itemId"`
	WarehouseID       id.ID     `json:"warehouseId"`
	CurrentQuantity   int64     `json:"currentQuantity"`
	ReservedQuantity  int64     `json:"reservedQuantity"`
	AvailableQuantity int64     `json:"availableQuantity"`
	LocationCode      *string   `json:"locationCode,omitempty"`
	BinCode           *string   `json:"binCode,omitempty"`
	LastMovementAt    time.Time `json:"lastMovementAt"`
}

// Movement is one committed signed adjustment to current quantity.
// Movements are immutable - they are appended in the same transaction as the
// level update and never modified afterwards.
type Movement struct {
	LineID          id.ID     `db:"line_id" json:"lineId"`
	ItemID          id.ID     `db:"item_id" json:"itemId"`
	WarehouseID     id.ID     `db:"warehouse_id" json:"warehouseId"`
	Delta           int64     `db:"delta" json:"delta"`
	Reason          string    `db:"reason" json:"reason"`
	ReferenceNumber string    `db:"reference_number" json:"referenceNumber"`
	ActorID         string    `db:"actor_id" json:"actorId,omitempty"`

	// Metadata carries arbitrary caller context (order payload, channel info).
	// Large payloads are stored compressed.
	Metadata json.RawMessage `db:"metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovement creates a movement record with a generated LineID.
func NewMovement(itemID, warehouseID id.ID, delta int64, reason, reference, actorID string) Movement {
	return Movement{
		LineID:          id.New(),
		ItemID:          itemID,
		WarehouseID:     warehouseID,
		Delta:           delta,
		Reason:          reason,
		ReferenceNumber: reference,
		ActorID:         actorID,
		CreatedAt:       time.Now().UTC(),
	}
}
