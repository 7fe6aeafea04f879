package dto

import (
	"encoding/json"
	"time"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
)

// --- Requests ---

// InitializeLevelRequest creates a level with its opening quantities.
type InitializeLevelRequest struct {
	ItemID           string  `json:"itemId" binding:"required"`
	WarehouseID      string  `json:"warehouseId" binding:"required"`
	CurrentQuantity  int64   `json:"currentQuantity"`
	ReservedQuantity int64   `json:"reservedQuantity"`
	LocationCode     *string `json:"locationCode"`
	BinCode          *string `json:"binCode"`
}

// MoveRequest applies a signed quantity delta to a level.
type MoveRequest struct {
	ItemID          string          `json:"itemId" binding:"required"`
	WarehouseID     string          `json:"warehouseId" binding:"required"`
	Delta           int64           `json:"delta" binding:"required"`
	Reason          string          `json:"reason" binding:"required"`
	ReferenceNumber string          `json:"referenceNumber" binding:"required"`
	Metadata        json.RawMessage `json:"metadata"`
}

// ReservationRequest covers both Reserve and Release.
type ReservationRequest struct {
	ItemID      string `json:"itemId" binding:"required"`
	WarehouseID string `json:"warehouseId" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required,min=1"`
}

// --- Responses ---

// LevelResponse is the caller-facing view of a level.
type LevelResponse struct {
	ItemID            string    `json:"itemId"`
	WarehouseID       string    `json:"warehouseId"`
	CurrentQuantity   int64     `json:"currentQuantity"`
	ReservedQuantity  int64     `json:"reservedQuantity"`
	AvailableQuantity int64     `json:"availableQuantity"`
	LocationCode      *string   `json:"locationCode,omitempty"`
	BinCode           *string   `json:"binCode,omitempty"`
	LastMovementAt    time.Time `json:"lastMovementAt"`
}

// FromSnapshot creates LevelResponse from a level snapshot.
func FromSnapshot(s inventory.Snapshot) LevelResponse {
	return LevelResponse{
		ItemID:            s.ItemID.String(),
		WarehouseID:       s.WarehouseID.String(),
		CurrentQuantity:   s.CurrentQuantity,
		ReservedQuantity:  s.ReservedQuantity,
		AvailableQuantity: s.AvailableQuantity,
		LocationCode:      s.LocationCode,
		BinCode:           s.BinCode,
		LastMovementAt:    s.LastMovementAt,
	}
}

// MovementResponse is one journal line.
type MovementResponse struct {
	LineID          string          `json:"lineId"`
	ItemID          string          `json:"itemId"`
	WarehouseID     string          `json:"warehouseId"`
	Delta           int64           `json:"delta"`
	Reason          string          `json:"reason"`
	ReferenceNumber string          `json:"referenceNumber"`
	ActorID         string          `json:"actorId,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// FromMovement creates MovementResponse from a movement.
func FromMovement(m inventory.Movement) MovementResponse {
	return MovementResponse{
		LineID:          m.LineID.String(),
		ItemID:          m.ItemID.String(),
		WarehouseID:     m.WarehouseID.String(),
		Delta:           m.Delta,
		Reason:          m.Reason,
		ReferenceNumber: m.ReferenceNumber,
		ActorID:         m.ActorID,
		Metadata:        m.Metadata,
		CreatedAt:       m.CreatedAt,
	}
}

// MovementListResponse wraps movement history.
type MovementListResponse struct {
	Items      []MovementResponse `json:"items"`
	TotalCount int                `json:"totalCount"`
}
