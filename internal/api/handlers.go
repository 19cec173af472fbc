package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alert-service/internal/logging"
	"alert-service/internal/models"
)

// AlertService is satisfied by *services.AlertService.
type AlertService interface {
	Create(ctx context.Context, userID string, loc models.Location, message string) (models.Alert, error)
	Transition(ctx context.Context, alertID, requesterID string, status models.AlertStatus) (models.Alert, error)
	Get(ctx context.Context, alertID, requesterID string) (models.Alert, error)
	ListActive(ctx context.Context, userID string) ([]models.Alert, error)
	ListHistory(ctx context.Context, userID string) ([]models.Alert, error)
	Deliveries(ctx context.Context, alertID, requesterID string) ([]models.Delivery, error)
	UpdatePushToken(ctx context.Context, userID, token string) error
}

// HealthMonitor is satisfied by *services.HealthMonitor.
type HealthMonitor interface {
	EvaluateUser(ctx context.Context, userID string) ([]models.Concern, error)
}

type Handler struct {
	alerts AlertService
	health HealthMonitor
	logger *logging.Logger
}

func NewHandler(alerts AlertService, health HealthMonitor, logger *logging.Logger) *Handler {
	return &Handler{alerts: alerts, health: health, logger: logger}
}

type createAlertRequest struct {
	Location models.Location `json:"location" binding:"required"`
	Message  string          `json:"message"`
}

type statusRequest struct {
	Status models.AlertStatus `json:"status" binding:"required"`
}

type pushTokenRequest struct {
	Token string `json:"push_token"`
}

func (h *Handler) CreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for alert: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	alert, err := h.alerts.Create(c.Request.Context(), currentUser(c), req.Location, req.Message)
	if err != nil {
		h.fail(c, "Failed to create alert", err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func (h *Handler) UpdateAlertStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for alert status: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	alert, err := h.alerts.Transition(c.Request.Context(), c.Param("id"), currentUser(c), req.Status)
	if err != nil {
		h.fail(c, "Failed to update alert status", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) GetAlert(c *gin.Context) {
	alert, err := h.alerts.Get(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.fail(c, "Failed to get alert", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) ListActiveAlerts(c *gin.Context) {
	alerts, err := h.alerts.ListActive(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, "Failed to list active alerts", err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) ListAlertHistory(c *gin.Context) {
	alerts, err := h.alerts.ListHistory(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, "Failed to list alert history", err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) GetAlertDeliveries(c *gin.Context) {
	deliveries, err := h.alerts.Deliveries(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.fail(c, "Failed to get alert deliveries", err)
		return
	}
	c.JSON(http.StatusOK, deliveries)
}

func (h *Handler) EvaluateHealth(c *gin.Context) {
	concerns, err := h.health.EvaluateUser(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, "Failed to evaluate health signals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"concerns": concerns})
}

func (h *Handler) UpdatePushToken(c *gin.Context) {
	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for push token: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.alerts.UpdatePushToken(c.Request.Context(), currentUser(c), req.Token); err != nil {
		h.fail(c, "Failed to update push token", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps the error taxonomy onto HTTP status codes.
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidState):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Errorf("%s: %v", msg, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	h.logger.Warnf("%s: %v", msg, err)
	c.JSON(status, gin.H{"error": err.Error()})
}
