package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/apperror"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/http/v1/dto"
)

// InventoryHandler handles HTTP requests for inventory levels.
type InventoryHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{
		BaseHandler: base,
		service:     service,
	}
}

// InitializeLevel handles POST /inventory/levels
func (h *InventoryHandler) InitializeLevel(c *gin.Context) {
	var req dto.InitializeLevelRequest
	if !h.BindJSON(c, &req) {
		return
	}

	itemID, warehouseID, ok := h.parsePair(c, req.ItemID, req.WarehouseID)
	if !ok {
		return
	}

	snapshot, err := h.service.InitializeLevel(c.Request.Context(), inventory.InitializeRequest{
		ItemID:           itemID,
		WarehouseID:      warehouseID,
		CurrentQuantity:  req.CurrentQuantity,
		ReservedQuantity: req.ReservedQuantity,
		LocationCode:     req.LocationCode,
		BinCode:          req.BinCode,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromSnapshot(snapshot))
}

// Move handles POST /inventory/move
func (h *InventoryHandler) Move(c *gin.Context) {
	var req dto.MoveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	itemID, warehouseID, ok := h.parsePair(c, req.ItemID, req.WarehouseID)
	if !ok {
		return
	}

	snapshot, err := h.service.Move(c.Request.Context(), inventory.MoveRequest{
		ItemID:          itemID,
		WarehouseID:     warehouseID,
		Delta:           req.Delta,
		Reason:          req.Reason,
		ReferenceNumber: req.ReferenceNumber,
		Metadata:        req.Metadata,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSnapshot(snapshot))
}

// Reserve handles POST /inventory/reserve
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req dto.ReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	itemID, warehouseID, ok := h.parsePair(c, req.ItemID, req.WarehouseID)
	if !ok {
		return
	}

	snapshot, err := h.service.Reserve(c.Request.Context(), itemID, warehouseID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSnapshot(snapshot))
}

// Release handles POST /inventory/release
func (h *InventoryHandler) Release(c *gin.Context) {
	var req dto.ReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	itemID, warehouseID, ok := h.parsePair(c, req.ItemID, req.WarehouseID)
	if !ok {
		return
	}

	snapshot, err := h.service.Release(c.Request.Context(), itemID, warehouseID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSnapshot(snapshot))
}

// GetLevel handles GET /inventory/:itemId/:warehouseId
func (h *InventoryHandler) GetLevel(c *gin.Context) {
	itemID, warehouseID, ok := h.parsePair(c, c.Param("itemId"), c.Param("warehouseId"))
	if !ok {
		return
	}

	snapshot, err := h.service.GetLevel(c.Request.Context(), itemID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSnapshot(snapshot))
}

// GetMovements handles GET /inventory/:itemId/:warehouseId/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	itemID, warehouseID, ok := h.parsePair(c, c.Param("itemId"), c.Param("warehouseId"))
	if !ok {
		return
	}

	filter := inventory.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	// Parse optional date range
	if fromStr := c.Query("fromDate"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid fromDate format, expected RFC3339"))
			return
		}
		filter.FromDate = &parsed
	}

	if toStr := c.Query("toDate"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid toDate format, expected RFC3339"))
			return
		}
		filter.ToDate = &parsed
	}

	movements, err := h.service.Movements(c.Request.Context(), itemID, warehouseID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := make([]dto.MovementResponse, len(movements))
	for i, m := range movements {
		response[i] = dto.FromMovement(m)
	}

	h.OK(c, dto.MovementListResponse{
		Items:      response,
		TotalCount: len(response),
	})
}

// parsePair parses the item and warehouse identifiers shared by every route.
func (h *InventoryHandler) parsePair(c *gin.Context, itemStr, warehouseStr string) (id.ID, id.ID, bool) {
	itemID, err := id.Parse(itemStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid itemId format"))
		return id.Nil(), id.Nil(), false
	}

	warehouseID, err := id.Parse(warehouseStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return id.Nil(), id.Nil(), false
	}

	return itemID, warehouseID, true
}

// RegisterRoutes registers inventory routes.
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/levels", h.InitializeLevel)
	rg.POST("/move", h.Move)
	rg.POST("/reserve", h.Reserve)
	rg.POST("/release", h.Release)
	rg.GET("/:itemId/:warehouseId", h.GetLevel)
	rg.GET("/:itemId/:warehouseId/movements", h.GetMovements)
}
