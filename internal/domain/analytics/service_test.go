package analytics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/analytics"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/storage/memory"
)

func seedLevel(t *testing.T, store *memory.Store, itemID, warehouseID id.ID, current, reserved int64) {
	t.Helper()
	lvl := inventory.NewLevel(itemID, warehouseID, current, reserved)
	require.NoError(t, store.CreateLevel(context.Background(), lvl))
}

func TestLowStock_DefaultRule(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	itemA, itemB, itemC := id.New(), id.New(), id.New()
	wh := id.New()
	seedLevel(t, store, itemA, wh, 2, 0)  // below min 5
	seedLevel(t, store, itemB, wh, 50, 0) // plenty
	seedLevel(t, store, itemC, wh, 0, 0)  // no min configured -> never low

	svc := analytics.NewService(store, analytics.StaticMinStock{
		itemA: 5,
		itemB: 5,
	}, nil)

	entries, err := svc.LowStock(ctx, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, itemA, entries[0].ItemID)
	assert.Equal(t, int64(5), entries[0].MinStockLevel)
	assert.Equal(t, int64(2), entries[0].CurrentQuantity)
}

func TestLowStock_WarehouseFilter(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	item := id.New()
	whA, whB := id.New(), id.New()
	seedLevel(t, store, item, whA, 1, 0)
	seedLevel(t, store, item, whB, 1, 0)

	svc := analytics.NewService(store, analytics.StaticMinStock{item: 10}, nil)

	entries, err := svc.LowStock(ctx, &whA)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, whA, entries[0].WarehouseID)
}

func TestLowStock_CustomRule(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	item := id.New()
	wh := id.New()
	// current comfortably above min, but everything is reserved.
	seedLevel(t, store, item, wh, 20, 20)

	rule, err := analytics.CompileRule("available < min_level")
	require.NoError(t, err)

	svc := analytics.NewService(store, analytics.StaticMinStock{item: 5}, rule)

	entries, err := svc.LowStock(ctx, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(0), entries[0].AvailableQuantity)
}

func TestCompileRule_Invalid(t *testing.T) {
	_, err := analytics.CompileRule("current -")
	assert.Error(t, err)

	// Non-boolean output is rejected at compile time.
	_, err = analytics.CompileRule("current + min_level")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	itemA, itemB := id.New(), id.New()
	whA, whB := id.New(), id.New()
	seedLevel(t, store, itemA, whA, 30, 5)
	seedLevel(t, store, itemA, whB, 10, 0)
	seedLevel(t, store, itemB, whA, 7, 7)

	svc := analytics.NewService(store, analytics.StaticMinStock{}, nil)

	sum, err := svc.Summary(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalItems)
	assert.Equal(t, int64(47), sum.TotalQuantity)
	assert.Equal(t, int64(12), sum.ReservedQuantity)
	assert.Equal(t, int64(35), sum.AvailableQuantity)

	// Per-warehouse filter.
	sum, err = svc.Summary(ctx, &whA)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalItems)
	assert.Equal(t, int64(37), sum.TotalQuantity)
	assert.Equal(t, int64(12), sum.ReservedQuantity)
	assert.Equal(t, int64(25), sum.AvailableQuantity)
}
