package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/apperror"
	appctx "github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/context"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/keylock"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/tx"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/pkg/logger"
)

// Config tunes the concurrency discipline shared by all mutations.
type Config struct {
	// LockTimeout bounds the wait for per-key exclusivity.
	LockTimeout time.Duration

	// MaxRetries bounds re-reads after a storage-level version conflict
	// (an out-of-process writer committed between our read and write).
	MaxRetries int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		LockTimeout: keylock.DefaultTimeout,
		MaxRetries:  3,
	}
}

// Service applies stock movements and reservation adjustments to levels.
// Every mutation runs under per-key exclusive access: acquire the key lock,
// read, validate, write conditionally, release. Rejected operations never
// touch stored state.
type Service struct {
	repo       Repository
	txm        tx.Manager
	locks      *keylock.KeyLock
	maxRetries int
}

// NewService creates the engine with an explicitly injected store handle.
func NewService(repo Repository, txm tx.Manager, cfg Config) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	return &Service{
		repo:       repo,
		txm:        txm,
		locks:      keylock.New(cfg.LockTimeout),
		maxRetries: cfg.MaxRetries,
	}
}

// InitializeRequest creates a level for a pair that does not have one yet.
type InitializeRequest struct {
	ItemID           id.ID
	WarehouseID      id.ID
	CurrentQuantity  int64
	ReservedQuantity int64
	LocationCode     *string
	BinCode          *string
}

// MoveRequest describes one signed adjustment to current quantity.
type MoveRequest struct {
	ItemID          id.ID
	WarehouseID     id.ID
	Delta           int64
	Reason          string
	ReferenceNumber string
	Metadata        json.RawMessage
}

// InitializeLevel creates the level record for an (item, warehouse) pair.
// Fails with Duplicate if the pair already has a level - there is no
// implicit creation on first movement.
func (s *Service) InitializeLevel(ctx context.Context, req InitializeRequest) (Snapshot, error) {
	if id.IsNil(req.ItemID) || id.IsNil(req.WarehouseID) {
		return Snapshot{}, apperror.NewValidation("item_id and warehouse_id are required")
	}

	lvl := NewLevel(req.ItemID, req.WarehouseID, req.CurrentQuantity, req.ReservedQuantity)
	lvl.LocationCode = req.LocationCode
	lvl.BinCode = req.BinCode

	if err := lvl.Validate(); err != nil {
		return Snapshot{}, err
	}

	if err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateLevel(ctx, lvl)
	}); err != nil {
		return Snapshot{}, err
	}

	logger.Info(ctx, "initialized inventory level",
		"item_id", lvl.ItemID,
		"warehouse_id", lvl.WarehouseID,
		"current", lvl.CurrentQuantity,
		"reserved", lvl.ReservedQuantity,
	)

	return lvl.Snapshot(), nil
}

// Move applies a signed delta to current quantity atomically.
//
// Rejections (no partial write, state unchanged):
//   - the resulting current quantity would be negative
//   - a negative delta would drop current below the existing reserved
//     quantity, leaving reservations unbacked
func (s *Service) Move(ctx context.Context, req MoveRequest) (Snapshot, error) {
	if req.Delta == 0 {
		return Snapshot{}, apperror.NewValidation("delta must be non-zero")
	}
	if req.Reason == "" {
		return Snapshot{}, apperror.NewValidation("reason is required")
	}
	if req.ReferenceNumber == "" {
		return Snapshot{}, apperror.NewValidation("reference_number is required")
	}

	snap, err := s.mutate(ctx, req.ItemID, req.WarehouseID,
		func(lvl *Level) error {
			newCurrent := lvl.CurrentQuantity + req.Delta
			if newCurrent < 0 {
				return apperror.NewInvalidTransition("current_non_negative",
					"movement would drive current quantity negative").
					WithDetail("current", lvl.CurrentQuantity).
					WithDetail("delta", req.Delta)
			}
			if newCurrent < lvl.ReservedQuantity {
				return apperror.NewInvalidTransition("reserved_within_current",
					"movement would leave reservations unbacked").
					WithDetail("current", lvl.CurrentQuantity).
					WithDetail("reserved", lvl.ReservedQuantity).
					WithDetail("delta", req.Delta)
			}
			lvl.CurrentQuantity = newCurrent
			lvl.LastMovementAt = time.Now().UTC()
			return nil
		},
		func(ctx context.Context, lvl *Level) error {
			m := NewMovement(lvl.ItemID, lvl.WarehouseID, req.Delta,
				req.Reason, req.ReferenceNumber, appctx.GetActorID(ctx))
			m.Metadata = req.Metadata
			return s.repo.AppendMovement(ctx, m)
		},
	)
	if err != nil {
		return Snapshot{}, err
	}

	logger.Info(ctx, "applied stock movement",
		"item_id", req.ItemID,
		"warehouse_id", req.WarehouseID,
		"delta", req.Delta,
		"reason", req.Reason,
		"current", snap.CurrentQuantity,
	)

	return snap, nil
}

// Reserve promises quantity units of available stock to a pending order.
// Fails with InsufficientStock when quantity exceeds available at the moment
// of the atomic check.
func (s *Service) Reserve(ctx context.Context, itemID, warehouseID id.ID, quantity int64) (Snapshot, error) {
	if quantity <= 0 {
		return Snapshot{}, apperror.NewValidation("quantity must be positive")
	}

	snap, err := s.mutate(ctx, itemID, warehouseID,
		func(lvl *Level) error {
			if quantity > lvl.AvailableQuantity() {
				return apperror.NewInsufficientStock(itemID.String(), quantity, lvl.AvailableQuantity())
			}
			lvl.ReservedQuantity += quantity
			return nil
		}, nil)
	if err != nil {
		return Snapshot{}, err
	}

	logger.Info(ctx, "reserved stock",
		"item_id", itemID,
		"warehouse_id", warehouseID,
		"quantity", quantity,
		"reserved", snap.ReservedQuantity,
	)

	return snap, nil
}

// Release returns previously reserved units to available stock.
// Releasing more than is reserved fails rather than clamping to zero:
// clamping would silently hide a caller bug.
func (s *Service) Release(ctx context.Context, itemID, warehouseID id.ID, quantity int64) (Snapshot, error) {
	if quantity <= 0 {
		return Snapshot{}, apperror.NewValidation("quantity must be positive")
	}

	snap, err := s.mutate(ctx, itemID, warehouseID,
		func(lvl *Level) error {
			if quantity > lvl.ReservedQuantity {
				return apperror.NewInvalidTransition("release_within_reserved",
					"release exceeds reserved quantity").
					WithDetail("reserved", lvl.ReservedQuantity).
					WithDetail("requested", quantity)
			}
			lvl.ReservedQuantity -= quantity
			return nil
		}, nil)
	if err != nil {
		return Snapshot{}, err
	}

	logger.Info(ctx, "released stock reservation",
		"item_id", itemID,
		"warehouse_id", warehouseID,
		"quantity", quantity,
		"reserved", snap.ReservedQuantity,
	)

	return snap, nil
}

// GetLevel returns the current snapshot for a pair.
func (s *Service) GetLevel(ctx context.Context, itemID, warehouseID id.ID) (Snapshot, error) {
	lvl, err := s.repo.GetLevel(ctx, itemID, warehouseID)
	if err != nil {
		return Snapshot{}, err
	}
	return lvl.Snapshot(), nil
}

// Movements returns the committed movement history for a pair, newest first.
func (s *Service) Movements(ctx context.Context, itemID, warehouseID id.ID, filter MovementFilter) ([]Movement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListMovements(ctx, itemID, warehouseID, filter)
}

// mutate is the shared read-validate-write cycle. It holds the per-key lock
// for the whole cycle and releases it on every exit path. apply validates the
// transition and edits the level in memory; onCommit runs inside the same
// transaction as the conditional write.
func (s *Service) mutate(
	ctx context.Context,
	itemID, warehouseID id.ID,
	apply func(*Level) error,
	onCommit func(ctx context.Context, lvl *Level) error,
) (Snapshot, error) {
	if id.IsNil(itemID) || id.IsNil(warehouseID) {
		return Snapshot{}, apperror.NewValidation("item_id and warehouse_id are required")
	}

	release, err := s.locks.Acquire(ctx, lockKey(itemID, warehouseID))
	if err != nil {
		if err == keylock.ErrAcquireTimeout {
			return Snapshot{}, apperror.NewConflict("level is busy, retry the operation").
				WithDetail("item_id", itemID.String()).
				WithDetail("warehouse_id", warehouseID.String())
		}
		return Snapshot{}, fmt.Errorf("acquire level lock: %w", err)
	}
	defer release()

	// With the key lock held, version conflicts can only come from
	// out-of-process writers; a bounded re-read resolves them.
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		lvl, err := s.repo.GetLevel(ctx, itemID, warehouseID)
		if err != nil {
			return Snapshot{}, err
		}

		if err := apply(lvl); err != nil {
			return Snapshot{}, err
		}

		err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.repo.UpdateLevel(ctx, lvl); err != nil {
				return err
			}
			if onCommit != nil {
				return onCommit(ctx, lvl)
			}
			return nil
		})
		if err != nil {
			if apperror.IsConflict(err) {
				logger.Warn(ctx, "level version conflict, retrying",
					"item_id", itemID,
					"warehouse_id", warehouseID,
					"attempt", attempt+1,
				)
				continue
			}
			return Snapshot{}, err
		}

		return lvl.Snapshot(), nil
	}

	return Snapshot{}, apperror.NewConflict("could not commit update after retries").
		WithDetail("item_id", itemID.String()).
		WithDetail("warehouse_id", warehouseID.String()).
		WithDetail("attempts", s.maxRetries)
}

func lockKey(itemID, warehouseID id.ID) string {
	return itemID.String() + "/" + warehouseID.String()
}
