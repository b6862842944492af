// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/reorder-planner/internal/api/handlers"
	"github.com/andresuchdata/reorder-planner/internal/api/middleware"
	"github.com/andresuchdata/reorder-planner/internal/service"
)

type Services struct {
	Planner *service.PlannerService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services != nil && services.Planner != nil {
		inventoryHandler := handlers.NewInventoryHandler(services.Planner)
		inventoryGroup := apiGroup.Group("/inventory")
		{
			inventoryGroup.GET("", inventoryHandler.GetInventory)
			inventoryGroup.GET("/kpis", inventoryHandler.GetKPIs)
			inventoryGroup.GET("/:sku/:region", inventoryHandler.GetRecord)
			inventoryGroup.PATCH("/:sku/:region", inventoryHandler.UpdateRecord)
			inventoryGroup.GET("/:sku/:region/seasonality", inventoryHandler.GetSeasonality)
			inventoryGroup.PUT("/:sku/:region/history/:month", inventoryHandler.UpdateHistory)
		}
		apiGroup.PATCH("/skus/:sku", inventoryHandler.UpdateSKU)

		simulationHandler := handlers.NewSimulationHandler(services.Planner)
		apiGroup.GET("/simulation", simulationHandler.GetSimulation)
		apiGroup.PUT("/simulation", simulationHandler.PutSimulation)
		apiGroup.GET("/regions", simulationHandler.GetRegions)
		apiGroup.GET("/statuses", simulationHandler.GetStatuses)
		apiGroup.POST("/reset", simulationHandler.Reset)

		reportHandler := handlers.NewReportHandler(services.Planner)
		apiGroup.GET("/export", reportHandler.Export)
		apiGroup.POST("/reports", reportHandler.Publish)
		apiGroup.GET("/reports", reportHandler.ListReports)
		apiGroup.GET("/reports/:day/:name", reportHandler.DownloadReport)
		apiGroup.POST("/import", reportHandler.Import)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
