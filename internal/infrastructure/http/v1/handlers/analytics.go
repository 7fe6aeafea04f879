package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/apperror"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/analytics"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/http/v1/dto"
)

// AnalyticsHandler handles HTTP requests for inventory analytics.
type AnalyticsHandler struct {
	*BaseHandler
	service *analytics.Service
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(base *BaseHandler, service *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetSummary handles GET /analytics/summary
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	warehouseID, ok := h.parseWarehouseFilter(c)
	if !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSummary(summary))
}

// GetLowStock handles GET /analytics/low-stock
func (h *AnalyticsHandler) GetLowStock(c *gin.Context) {
	warehouseID, ok := h.parseWarehouseFilter(c)
	if !ok {
		return
	}

	entries, err := h.service.LowStock(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := make([]dto.LowStockEntryResponse, len(entries))
	for i, e := range entries {
		response[i] = dto.FromLowStockEntry(e)
	}

	h.OK(c, dto.LowStockListResponse{
		Items:      response,
		TotalCount: len(response),
	})
}

// parseWarehouseFilter parses the optional warehouseId query parameter.
func (h *AnalyticsHandler) parseWarehouseFilter(c *gin.Context) (*id.ID, bool) {
	whStr := c.Query("warehouseId")
	if whStr == "" {
		return nil, true
	}

	parsed, err := id.Parse(whStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return nil, false
	}
	return &parsed, true
}

// RegisterRoutes registers analytics routes.
func (h *AnalyticsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/summary", h.GetSummary)
	rg.GET("/low-stock", h.GetLowStock)
}
