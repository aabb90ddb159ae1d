package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршруты приема и чтения сообщений
	reports := api.Group("/reports")
	reports.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	{
		reports.POST("", h.ingestReport)
		reports.GET("/:id", h.getReport)
		reports.POST("/:id/resolve", h.resolveReport)
	}

	// Маршруты чтения и закрытия инцидентов
	incidents := api.Group("/incidents")
	incidents.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	{
		incidents.GET("", h.listIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.DELETE("/:id", h.closeIncident)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
