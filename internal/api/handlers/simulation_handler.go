package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/service"
)

type SimulationHandler struct {
	service *service.PlannerService
}

func NewSimulationHandler(service *service.PlannerService) *SimulationHandler {
	return &SimulationHandler{service: service}
}

func (h *SimulationHandler) GetSimulation(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Simulation())
}

// PutSimulation replaces the parameters; out-of-range values are clamped, not rejected.
func (h *SimulationHandler) PutSimulation(c *gin.Context) {
	params := h.service.Simulation()
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, "Invalid simulation parameters", err)
		return
	}

	applied, err := h.service.SetSimulation(params)
	if err != nil {
		respondError(c, "Failed to apply simulation parameters", err)
		return
	}
	c.JSON(http.StatusOK, applied)
}

type regionResponse struct {
	Region   string `json:"region"`
	LeadTime int    `json:"lead_time"`
}

func (h *SimulationHandler) GetRegions(c *gin.Context) {
	cfg := h.service.Regions()
	regions := make([]regionResponse, 0, len(cfg))
	for _, r := range cfg.Regions() {
		regions = append(regions, regionResponse{Region: r, LeadTime: cfg[r]})
	}
	c.JSON(http.StatusOK, gin.H{"data": regions})
}

func (h *SimulationHandler) Reset(c *gin.Context) {
	view, err := h.service.Reset(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to reset dataset", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SimulationHandler) GetStatuses(c *gin.Context) {
	statuses := []domain.Status{domain.StatusStockout, domain.StatusCritical, domain.StatusWarning, domain.StatusHealthy}
	out := make([]gin.H, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, gin.H{"status": s, "label": s.Label(), "severity": s.Severity()})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
