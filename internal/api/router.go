package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alert-service/internal/logging"
)

func NewRouter(logger *logging.Logger, basePath string, h *Handler, ws *WSHandler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
	if ws != nil {
		r.GET(basePath+"/ws", ws.Serve)
	}

	api := r.Group(basePath, RequireUser())
	{
		// Alerts
		api.POST("/alerts", h.CreateAlert)
		api.GET("/alerts/active", h.ListActiveAlerts)
		api.GET("/alerts/history", h.ListAlertHistory)
		api.GET("/alerts/:id", h.GetAlert)
		api.PATCH("/alerts/:id/status", h.UpdateAlertStatus)
		api.GET("/alerts/:id/deliveries", h.GetAlertDeliveries)

		// Health signals
		api.POST("/health/evaluate", h.EvaluateHealth)

		// Users
		api.PUT("/users/push-token", h.UpdatePushToken)
	}
	return r
}
