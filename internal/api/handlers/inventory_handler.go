package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/service"
)

type InventoryHandler struct {
	service *service.PlannerService
}

func NewInventoryHandler(service *service.PlannerService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// parseFilter reads region, search and status (repeated or comma separated).
func parseFilter(c *gin.Context) (domain.InventoryFilter, bool) {
	statuses, err := domain.ParseStatusSet(c.QueryArray("status")...)
	if err != nil {
		badRequest(c, "Invalid status filter", err)
		return domain.InventoryFilter{}, false
	}
	return domain.InventoryFilter{
		Region: strings.TrimSpace(c.DefaultQuery("region", domain.RegionAll)),
		Search: strings.TrimSpace(c.Query("search")),
		Status: statuses,
	}, true
}

func recordKey(c *gin.Context) domain.RecordKey {
	return domain.RecordKey{
		SKUID:  c.Param("sku"),
		Region: strings.ToUpper(c.Param("region")),
	}
}

// GetInventory returns the filtered enriched records with their KPIs.
func (h *InventoryHandler) GetInventory(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.Inventory(c.Request.Context(), filter))
}

func (h *InventoryHandler) GetKPIs(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.KPIs(c.Request.Context(), filter))
}

func (h *InventoryHandler) GetRecord(c *gin.Context) {
	rec, err := h.service.Record(recordKey(c))
	if err != nil {
		respondError(c, "Failed to get record", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *InventoryHandler) GetSeasonality(c *gin.Context) {
	points, err := h.service.Seasonality(recordKey(c))
	if err != nil {
		respondError(c, "Failed to get seasonality", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": points})
}

// UpdateRecord patches stock fields of a record.
func (h *InventoryHandler) UpdateRecord(c *gin.Context) {
	var patch domain.RecordPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid record patch", err)
		return
	}

	rec, err := h.service.UpdateRecord(c.Request.Context(), recordKey(c), patch)
	if err != nil {
		respondError(c, "Failed to update record", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type historyValue struct {
	Value *float64 `json:"value"`
}

// UpdateHistory sets one month of a series; ?series=recent targets this year's.
func (h *InventoryHandler) UpdateHistory(c *gin.Context) {
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		badRequest(c, "Invalid month", err)
		return
	}

	var body historyValue
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid history value", err)
		return
	}
	if body.Value == nil {
		badRequest(c, "Invalid history value", errors.New("value is required"))
		return
	}

	var recent bool
	switch series := strings.ToLower(c.DefaultQuery("series", "history")); series {
	case "history":
	case "recent":
		recent = true
	default:
		badRequest(c, "Invalid series", fmt.Errorf("unknown series %q, want history or recent", series))
		return
	}

	rec, err := h.service.UpdateHistory(c.Request.Context(), recordKey(c), month, *body.Value, recent)
	if err != nil {
		respondError(c, "Failed to update history", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *InventoryHandler) UpdateSKU(c *gin.Context) {
	var patch domain.SKUPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid sku patch", err)
		return
	}

	sku, err := h.service.UpdateSKU(c.Request.Context(), c.Param("sku"), patch)
	if err != nil {
		respondError(c, "Failed to update sku", err)
		return
	}
	c.JSON(http.StatusOK, sku)
}
