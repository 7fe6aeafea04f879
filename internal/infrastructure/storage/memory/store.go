// Package memory provides an in-process implementation of the inventory
// repository. It backs the embedded store driver and the engine's tests;
// production deployments use the postgres implementation.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/apperror"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
)

type levelKey struct {
	itemID      id.ID
	warehouseID id.ID
}

// Store holds levels and movements in maps guarded by a single RWMutex.
// Each operation is individually atomic; cross-operation atomicity comes
// from the engine's per-key lock.
type Store struct {
	mu        sync.RWMutex
	levels    map[levelKey]inventory.Level
	movements map[levelKey][]inventory.Movement
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		levels:    make(map[levelKey]inventory.Level),
		movements: make(map[levelKey][]inventory.Movement),
	}
}

// CreateLevel inserts a level, rejecting duplicates.
func (s *Store) CreateLevel(_ context.Context, level *inventory.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := levelKey{level.ItemID, level.WarehouseID}
	if _, exists := s.levels[k]; exists {
		return apperror.NewDuplicate("inventory level", k.String())
	}
	s.levels[k] = *level
	return nil
}

// GetLevel returns a copy of the stored level.
func (s *Store) GetLevel(_ context.Context, itemID, warehouseID id.ID) (*inventory.Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lvl, ok := s.levels[levelKey{itemID, warehouseID}]
	if !ok {
		return nil, apperror.NewNotFound("inventory level", levelKey{itemID, warehouseID}.String())
	}
	out := lvl
	return &out, nil
}

// UpdateLevel performs a compare-and-swap on the version column analogue.
func (s *Store) UpdateLevel(_ context.Context, level *inventory.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := levelKey{level.ItemID, level.WarehouseID}
	existing, ok := s.levels[k]
	if !ok {
		return apperror.NewNotFound("inventory level", k.String())
	}
	if existing.Version != level.Version {
		return apperror.NewConflict("level was modified concurrently").
			WithDetail("expected_version", level.Version).
			WithDetail("actual_version", existing.Version)
	}

	level.Version++
	level.UpdatedAt = time.Now().UTC()
	s.levels[k] = *level
	return nil
}

// AppendMovement records a movement, newest last.
func (s *Store) AppendMovement(_ context.Context, movement inventory.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := levelKey{movement.ItemID, movement.WarehouseID}
	s.movements[k] = append(s.movements[k], movement)
	return nil
}

// ListLevels returns snapshot copies matching the filter.
func (s *Store) ListLevels(_ context.Context, filter inventory.LevelFilter) ([]inventory.Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []inventory.Level
	for k, lvl := range s.levels {
		if filter.WarehouseID != nil && k.warehouseID != *filter.WarehouseID {
			continue
		}
		if filter.ExcludeZero && lvl.CurrentQuantity == 0 {
			continue
		}
		if len(filter.ItemIDs) > 0 && !containsID(filter.ItemIDs, k.itemID) {
			continue
		}
		out = append(out, lvl)
	}
	return out, nil
}

// ListMovements returns history newest first with date and paging filters.
func (s *Store) ListMovements(_ context.Context, itemID, warehouseID id.ID, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.movements[levelKey{itemID, warehouseID}]

	var matched []inventory.Movement
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if filter.FromDate != nil && m.CreatedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && m.CreatedAt.After(*filter.ToDate) {
			continue
		}
		matched = append(matched, m)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (k levelKey) String() string {
	return k.itemID.String() + "/" + k.warehouseID.String()
}

func containsID(ids []id.ID, target id.ID) bool {
	for _, v := range ids {
		if v == target {
			return true
		}
	}
	return false
}

// Ensure interface compliance.
var _ inventory.Repository = (*Store)(nil)
