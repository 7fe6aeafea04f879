package dto

import (
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/analytics"
)

// SummaryResponse aggregates stock position across levels.
type SummaryResponse struct {
	WarehouseID       *string `json:"warehouseId,omitempty"`
	TotalItems        int     `json:"totalItems"`
	TotalQuantity     int64   `json:"totalQuantity"`
	ReservedQuantity  int64   `json:"reservedQuantity"`
	AvailableQuantity int64   `json:"availableQuantity"`
}

// FromSummary creates SummaryResponse from an analytics summary.
func FromSummary(s analytics.Summary) SummaryResponse {
	resp := SummaryResponse{
		TotalItems:        s.TotalItems,
		TotalQuantity:     s.TotalQuantity,
		ReservedQuantity:  s.ReservedQuantity,
		AvailableQuantity: s.AvailableQuantity,
	}
	if s.WarehouseID != nil {
		wh := s.WarehouseID.String()
		resp.WarehouseID = &wh
	}
	return resp
}

// LowStockEntryResponse is one level flagged by the low-stock rule.
type LowStockEntryResponse struct {
	LevelResponse
	MinStockLevel int64 `json:"minStockLevel"`
}

// FromLowStockEntry creates LowStockEntryResponse from an analytics entry.
func FromLowStockEntry(e analytics.LowStockEntry) LowStockEntryResponse {
	return LowStockEntryResponse{
		LevelResponse: FromSnapshot(e.Snapshot),
		MinStockLevel: e.MinStockLevel,
	}
}

// LowStockListResponse wraps low-stock results.
type LowStockListResponse struct {
	Items      []LowStockEntryResponse `json:"items"`
	TotalCount int                     `json:"totalCount"`
}
