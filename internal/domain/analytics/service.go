// Package analytics provides read-only aggregation over the inventory store:
// low-stock detection and summary totals. Reads are lock-free snapshots and
// are not linearizable with in-flight mutations.
package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
)

// MinStockLookup provides per-item minimum stock levels. Minimum levels are
// item-master data owned by an external catalog and injected here as a
// lookup. Unknown items report zero.
type MinStockLookup interface {
	MinStockLevel(ctx context.Context, itemID id.ID) (int64, error)
}

// StaticMinStock is a map-backed MinStockLookup for configuration and tests.
type StaticMinStock map[id.ID]int64

// MinStockLevel returns the configured minimum, or zero when absent.
func (s StaticMinStock) MinStockLevel(_ context.Context, itemID id.ID) (int64, error) {
	return s[itemID], nil
}

// Service runs aggregation queries over level snapshots.
type Service struct {
	repo     inventory.Repository
	minStock MinStockLookup
	rule     *Rule
}

// NewService creates the analytics service. A nil rule falls back to
// DefaultRuleExpr.
func NewService(repo inventory.Repository, minStock MinStockLookup, rule *Rule) *Service {
	if rule == nil {
		rule = MustCompileRule(DefaultRuleExpr)
	}
	return &Service{
		repo:     repo,
		minStock: minStock,
		rule:     rule,
	}
}

// LowStockEntry pairs a matching snapshot with the threshold it matched.
type LowStockEntry struct {
	inventory.Snapshot
	MinStockLevel int64 `json:"minStockLevel"`
}

// LowStock returns every level whose snapshot matches the configured
// predicate, optionally filtered to one warehouse. Results are ordered by
// item then warehouse for stable output.
func (s *Service) LowStock(ctx context.Context, warehouseID *id.ID) ([]LowStockEntry, error) {
	levels, err := s.repo.ListLevels(ctx, inventory.LevelFilter{WarehouseID: warehouseID})
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}

	var out []LowStockEntry
	for i := range levels {
		snap := levels[i].Snapshot()

		minLevel, err := s.minStock.MinStockLevel(ctx, snap.ItemID)
		if err != nil {
			return nil, fmt.Errorf("min stock for %s: %w", snap.ItemID, err)
		}

		matched, err := s.rule.Evaluate(snap, minLevel)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, LowStockEntry{Snapshot: snap, MinStockLevel: minLevel})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID.String() < out[j].ItemID.String()
		}
		return out[i].WarehouseID.String() < out[j].WarehouseID.String()
	})

	return out, nil
}

// Summary holds aggregate totals over the matched levels.
type Summary struct {
	WarehouseID       *id.ID `json:"warehouseId,omitempty"`
	TotalItems        int    `json:"totalItems"`
	TotalQuantity     int64  `json:"totalQuantity"`
	ReservedQuantity  int64  `json:"reservedQuantity"`
	AvailableQuantity int64  `json:"availableQuantity"`
}

// Summary aggregates totals across levels, optionally per warehouse. The
// aggregate is not atomic with in-flight mutations, but each level's
// available quantity is computed from one consistent snapshot.
func (s *Service) Summary(ctx context.Context, warehouseID *id.ID) (Summary, error) {
	levels, err := s.repo.ListLevels(ctx, inventory.LevelFilter{WarehouseID: warehouseID})
	if err != nil {
		return Summary{}, fmt.Errorf("list levels: %w", err)
	}

	sum := Summary{WarehouseID: warehouseID}
	seen := make(map[id.ID]struct{})
	for i := range levels {
		snap := levels[i].Snapshot()
		if _, ok := seen[snap.ItemID]; !ok {
			seen[snap.ItemID] = struct{}{}
			sum.TotalItems++
		}
		sum.TotalQuantity += snap.CurrentQuantity
		sum.ReservedQuantity += snap.ReservedQuantity
		sum.AvailableQuantity += snap.AvailableQuantity
	}

	return sum, nil
}
