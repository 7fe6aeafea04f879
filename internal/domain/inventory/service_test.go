package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/apperror"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/storage/memory"
)

func newTestService(t *testing.T) (*inventory.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := inventory.NewService(store, memory.NewTxManager(), inventory.DefaultConfig())
	return svc, store
}

func initLevel(t *testing.T, svc *inventory.Service, current, reserved int64) (id.ID, id.ID) {
	t.Helper()
	itemID, warehouseID := id.New(), id.New()
	_, err := svc.InitializeLevel(context.Background(), inventory.InitializeRequest{
		ItemID:           itemID,
		WarehouseID:      warehouseID,
		CurrentQuantity:  current,
		ReservedQuantity: reserved,
	})
	require.NoError(t, err)
	return itemID, warehouseID
}

func move(item, wh id.ID, delta int64) inventory.MoveRequest {
	return inventory.MoveRequest{
		ItemID:          item,
		WarehouseID:     wh,
		Delta:           delta,
		Reason:          "Adjustment",
		ReferenceNumber: "REF-001",
	}
}

func TestInitializeLevel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	itemID, warehouseID := id.New(), id.New()

	snap, err := svc.InitializeLevel(ctx, inventory.InitializeRequest{
		ItemID:          itemID,
		WarehouseID:     warehouseID,
		CurrentQuantity: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), snap.CurrentQuantity)
	assert.Equal(t, int64(0), snap.ReservedQuantity)
	assert.Equal(t, int64(50), snap.AvailableQuantity)

	// Second initialization of the same pair must fail.
	_, err = svc.InitializeLevel(ctx, inventory.InitializeRequest{
		ItemID:          itemID,
		WarehouseID:     warehouseID,
		CurrentQuantity: 10,
	})
	assert.True(t, apperror.IsDuplicate(err), "expected duplicate, got %v", err)

	// Invalid opening state is rejected.
	_, err = svc.InitializeLevel(ctx, inventory.InitializeRequest{
		ItemID:           id.New(),
		WarehouseID:      id.New(),
		CurrentQuantity:  5,
		ReservedQuantity: 10,
	})
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestMove_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Move(context.Background(), move(id.New(), id.New(), 10))
	assert.True(t, apperror.IsNotFound(err))
}

func TestMove_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	item, wh := initLevel(t, svc, 10, 0)
	ctx := context.Background()

	_, err := svc.Move(ctx, inventory.MoveRequest{ItemID: item, WarehouseID: wh, Delta: 0, Reason: "x", ReferenceNumber: "y"})
	assert.Error(t, err)

	_, err = svc.Move(ctx, inventory.MoveRequest{ItemID: item, WarehouseID: wh, Delta: 1, ReferenceNumber: "y"})
	assert.Error(t, err)

	_, err = svc.Move(ctx, inventory.MoveRequest{ItemID: item, WarehouseID: wh, Delta: 1, Reason: "x"})
	assert.Error(t, err)
}

// Invariants hold after every successful operation, and the boundary cases
// behave exactly: draining to zero succeeds, one past the boundary fails.
func TestMove_Boundaries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 30, 0)

	// Draining exactly to zero succeeds.
	snap, err := svc.Move(ctx, move(item, wh, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.CurrentQuantity)

	// One more unit than exists is rejected, state unchanged.
	_, err = svc.Move(ctx, move(item, wh, -1))
	assert.True(t, apperror.IsInvalidTransition(err))

	after, err := svc.GetLevel(ctx, item, wh)
	require.NoError(t, err)
	assert.Equal(t, int64(0), after.CurrentQuantity)
}

func TestMove_RejectsUnbackedReservations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 20, 0)

	_, err := svc.Reserve(ctx, item, wh, 15)
	require.NoError(t, err)

	// current would stay >= 0 but drop below reserved: rejected.
	_, err = svc.Move(ctx, move(item, wh, -10))
	assert.True(t, apperror.IsInvalidTransition(err))

	after, err := svc.GetLevel(ctx, item, wh)
	require.NoError(t, err)
	assert.Equal(t, int64(20), after.CurrentQuantity)
	assert.Equal(t, int64(15), after.ReservedQuantity)
}

func TestReserve_Boundaries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 10, 0)

	// Reserving the exact available amount succeeds.
	snap, err := svc.Reserve(ctx, item, wh, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.AvailableQuantity)

	// One unit more fails with InsufficientStock specifically.
	_, err = svc.Reserve(ctx, item, wh, 1)
	assert.True(t, apperror.IsInsufficientStock(err), "expected insufficient stock, got %v", err)

	after, err := svc.GetLevel(ctx, item, wh)
	require.NoError(t, err)
	assert.Equal(t, int64(10), after.ReservedQuantity)
}

func TestRelease_OverReleaseFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 10, 0)

	_, err := svc.Reserve(ctx, item, wh, 4)
	require.NoError(t, err)

	// Over-release is rejected, not clamped.
	_, err = svc.Release(ctx, item, wh, 5)
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.False(t, apperror.IsInsufficientStock(err))

	after, err := svc.GetLevel(ctx, item, wh)
	require.NoError(t, err)
	assert.Equal(t, int64(4), after.ReservedQuantity)
}

// Reserve followed by Release of the same quantity restores reserved to its
// pre-Reserve value.
func TestReserveRelease_Inverse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 100, 0)

	_, err := svc.Reserve(ctx, item, wh, 37)
	require.NoError(t, err)

	for _, q := range []int64{1, 13, 63} {
		before, err := svc.GetLevel(ctx, item, wh)
		require.NoError(t, err)

		_, err = svc.Reserve(ctx, item, wh, q)
		require.NoError(t, err)
		_, err = svc.Release(ctx, item, wh, q)
		require.NoError(t, err)

		after, err := svc.GetLevel(ctx, item, wh)
		require.NoError(t, err)
		assert.Equal(t, before.ReservedQuantity, after.ReservedQuantity)
		assert.Equal(t, before.CurrentQuantity, after.CurrentQuantity)
	}
}

// A rejected operation leaves the stored level unchanged, field for field.
func TestRejection_IsNoOp(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 8, 3)

	before, err := store.GetLevel(ctx, item, wh)
	require.NoError(t, err)

	_, err = svc.Move(ctx, move(item, wh, -9))
	require.Error(t, err)
	_, err = svc.Reserve(ctx, item, wh, 6)
	require.Error(t, err)
	_, err = svc.Release(ctx, item, wh, 4)
	require.Error(t, err)

	after, err := store.GetLevel(ctx, item, wh)
	require.NoError(t, err)
	assert.Equal(t, *before, *after, "rejected operations must not modify stored state")

	// No movements were journaled for rejected calls.
	movements, err := store.ListMovements(ctx, item, wh, inventory.MovementFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, movements)
}

// 50 concurrent single-unit decrements on one key must all succeed with no
// lost updates.
func TestMove_ConcurrentDecrements(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 1000, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Move(ctx, move(item, wh, -1)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent move failed: %v", err)
	}

	after, err := svc.GetLevel(ctx, item, wh)
	require.NoError(t, err)
	assert.Equal(t, int64(950), after.CurrentQuantity)

	movements, err := svc.Movements(ctx, item, wh, inventory.MovementFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, movements, 50)
}

// Mixed concurrent reserves and releases on one key stay serializable and
// never break the invariants.
func TestReserve_ConcurrentMixed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reserve(ctx, item, wh, 2); err != nil {
				return
			}
			_, _ = svc.Release(ctx, item, wh, 1)
		}()
	}
	wg.Wait()

	after, err := svc.GetLevel(ctx, item, wh)
	require.NoError(t, err)
	assert.Equal(t, int64(100), after.CurrentQuantity)
	assert.GreaterOrEqual(t, after.ReservedQuantity, int64(0))
	assert.LessOrEqual(t, after.ReservedQuantity, after.CurrentQuantity)
	assert.Equal(t, after.CurrentQuantity-after.ReservedQuantity, after.AvailableQuantity)
}

// Independent keys never block each other even while one key is held.
func TestMutations_IndependentKeysParallel(t *testing.T) {
	store := memory.NewStore()
	svc := inventory.NewService(store, memory.NewTxManager(), inventory.Config{
		LockTimeout: 200 * time.Millisecond,
		MaxRetries:  3,
	})
	ctx := context.Background()

	itemA, whA := initLevel(t, svc, 10, 0)
	itemB, whB := initLevel(t, svc, 10, 0)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Move(ctx, move(itemA, whA, 1))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Move(ctx, move(itemB, whB, 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 200*time.Millisecond,
		"independent keys should not serialize against each other")
}

// The exact scenario: 50 on hand, Reserve(10), Move(-20), Release(5).
func TestScenario_ReserveMoveRelease(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 50, 0)

	snap, err := svc.Reserve(ctx, item, wh, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(40), snap.AvailableQuantity)

	snap, err = svc.Move(ctx, inventory.MoveRequest{
		ItemID:          item,
		WarehouseID:     wh,
		Delta:           -20,
		Reason:          "Sale",
		ReferenceNumber: "ORD-1042",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), snap.CurrentQuantity)
	assert.Equal(t, int64(20), snap.AvailableQuantity)

	snap, err = svc.Release(ctx, item, wh, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(30), snap.CurrentQuantity)
	assert.Equal(t, int64(5), snap.ReservedQuantity)
	assert.Equal(t, int64(25), snap.AvailableQuantity)
}

// Movements carry reason, reference and delta, newest first.
func TestMovements_History(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, wh := initLevel(t, svc, 100, 0)

	_, err := svc.Move(ctx, inventory.MoveRequest{
		ItemID: item, WarehouseID: wh, Delta: 25,
		Reason: "Receipt", ReferenceNumber: "PO-7",
	})
	require.NoError(t, err)

	_, err = svc.Move(ctx, inventory.MoveRequest{
		ItemID: item, WarehouseID: wh, Delta: -5,
		Reason: "Sale", ReferenceNumber: "ORD-9",
	})
	require.NoError(t, err)

	movements, err := svc.Movements(ctx, item, wh, inventory.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, int64(-5), movements[0].Delta)
	assert.Equal(t, "Sale", movements[0].Reason)
	assert.Equal(t, int64(25), movements[1].Delta)
	assert.Equal(t, "PO-7", movements[1].ReferenceNumber)
}

// A version conflict injected by an out-of-process writer is retried and
// eventually surfaced as Conflict when it never resolves.
func TestMutate_VersionConflictRetries(t *testing.T) {
	store := memory.NewStore()
	repo := &racingRepo{Store: store}
	svc := inventory.NewService(repo, memory.NewTxManager(), inventory.Config{
		LockTimeout: time.Second,
		MaxRetries:  3,
	})
	ctx := context.Background()

	itemID, warehouseID := id.New(), id.New()
	_, err := svc.InitializeLevel(ctx, inventory.InitializeRequest{
		ItemID: itemID, WarehouseID: warehouseID, CurrentQuantity: 10,
	})
	require.NoError(t, err)

	// Fail the first write, let the retry through.
	repo.failures = 1
	snap, err := svc.Move(ctx, move(itemID, warehouseID, -1))
	require.NoError(t, err)
	assert.Equal(t, int64(9), snap.CurrentQuantity)
	assert.Equal(t, 2, repo.updates)

	// Exhausting the retry budget surfaces Conflict.
	repo.failures = 100
	_, err = svc.Move(ctx, move(itemID, warehouseID, -1))
	assert.True(t, apperror.IsConflict(err), "expected conflict, got %v", err)
}

// racingRepo wraps the memory store and fails the next N UpdateLevel calls
// with a version conflict, simulating a competing writer.
type racingRepo struct {
	*memory.Store
	failures int
	updates  int
}

func (r *racingRepo) UpdateLevel(ctx context.Context, level *inventory.Level) error {
	r.updates++
	if r.failures > 0 {
		r.failures--
		return apperror.NewConflict("level was modified concurrently")
	}
	return r.Store.UpdateLevel(ctx, level)
}
