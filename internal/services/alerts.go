package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"alert-service/internal/logging"
	"alert-service/internal/metrics"
	"alert-service/internal/models"
	"alert-service/internal/realtime"
)

const geocodeTimeout = 3 * time.Second

// UserStore reads the user profile owned by the account service.
type UserStore interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	UpdatePushToken(ctx context.Context, id, token string) error
}

// AlertRepository is implemented by *db.DB.
type AlertRepository interface {
	CreateAlert(ctx context.Context, a models.Alert) error
	GetAlert(ctx context.Context, id, userID string) (models.Alert, error)
	ListAlerts(ctx context.Context, userID string, statuses []models.AlertStatus) ([]models.Alert, error)
	SaveTransition(ctx context.Context, a models.Alert) error
}

type DeliveryReader interface {
	ListDeliveries(ctx context.Context, alertID string) ([]models.Delivery, error)
}

// Enqueuer hands an alert to the notification pipeline without blocking.
type Enqueuer interface {
	Enqueue(alert models.Alert)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// Publisher fans an event out to a user's live sessions.
type Publisher interface {
	Publish(userID, eventType string, payload interface{}) int
}

// AlertService owns the alert lifecycle: creation, status transitions and
// read access. Notification runs elsewhere, fed through the Enqueuer.
type AlertService struct {
	alerts     AlertRepository
	users      UserStore
	deliveries DeliveryReader
	dispatcher Enqueuer
	geocoder   Geocoder
	publisher  Publisher
	logger     *logging.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// AlertDeps groups the collaborators of AlertService. Geocoder,
// Deliveries, Publisher and Metrics are optional.
type AlertDeps struct {
	Alerts     AlertRepository
	Users      UserStore
	Deliveries DeliveryReader
	Dispatcher Enqueuer
	Geocoder   Geocoder
	Publisher  Publisher
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
}

func NewAlertService(deps AlertDeps) *AlertService {
	return &AlertService{
		alerts:     deps.Alerts,
		users:      deps.Users,
		deliveries: deps.Deliveries,
		dispatcher: deps.Dispatcher,
		geocoder:   deps.Geocoder,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// Create validates and persists a new alert, then schedules notification
// of its contacts. The returned alert is what was stored; contacts are
// notified after Create returns.
func (s *AlertService) Create(ctx context.Context, userID string, loc models.Location, message string) (models.Alert, error) {
	if err := loc.Validate(); err != nil {
		return models.Alert{}, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return models.Alert{}, fmt.Errorf("load user %s: %w", userID, err)
	}

	loc.Type = "Point"
	loc.Coordinates = []float64{loc.Longitude(), loc.Latitude()}
	if loc.Address == "" && s.geocoder != nil {
		loc.Address = s.lookupAddress(ctx, loc)
	}

	now := s.now()
	alert := models.Alert{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		OwnerName:         user.Name,
		Status:            models.StatusActive,
		Location:          loc,
		Message:           message,
		EmergencyContacts: user.SnapshotContacts(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.alerts.CreateAlert(ctx, alert); err != nil {
		return models.Alert{}, err
	}
	s.metrics.AlertCreated()
	s.logger.Infof("Created alert %s for user %s with %d contacts", alert.ID, alert.UserID, len(alert.EmergencyContacts))

	// the dispatcher works on its own copy of the snapshot
	queued := alert
	queued.EmergencyContacts = append([]models.EmergencyContact(nil), alert.EmergencyContacts...)
	s.dispatcher.Enqueue(queued)

	s.publish(alert.UserID, realtime.EventAlertCreated, alert)
	return alert, nil
}

func (s *AlertService) lookupAddress(ctx context.Context, loc models.Location) string {
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()
	addr, err := s.geocoder.ReverseGeocode(ctx, loc.Latitude(), loc.Longitude())
	if err != nil {
		s.logger.Warnf("Reverse geocoding failed, continuing without address: %v", err)
		return ""
	}
	return addr
}

// Transition resolves or cancels an active alert owned by requesterID.
func (s *AlertService) Transition(ctx context.Context, alertID, requesterID string, status models.AlertStatus) (models.Alert, error) {
	if status != models.StatusResolved && status != models.StatusCancelled {
		return models.Alert{}, fmt.Errorf("%w: status must be %q or %q", models.ErrValidation, models.StatusResolved, models.StatusCancelled)
	}

	alert, err := s.alerts.GetAlert(ctx, alertID, requesterID)
	if err != nil {
		return models.Alert{}, err
	}
	if err := alert.ApplyTransition(status, s.now()); err != nil {
		return models.Alert{}, err
	}
	if err := s.alerts.SaveTransition(ctx, alert); err != nil {
		return models.Alert{}, err
	}

	s.metrics.AlertTransitioned(string(status))
	s.logger.Infof("Alert %s %s by user %s", alert.ID, status, requesterID)
	s.publish(alert.UserID, realtime.EventAlertStatusChanged, map[string]interface{}{
		"alert_id": alert.ID,
		"status":   alert.Status,
	})
	return alert, nil
}

func (s *AlertService) Get(ctx context.Context, alertID, requesterID string) (models.Alert, error) {
	return s.alerts.GetAlert(ctx, alertID, requesterID)
}

// ListActive returns the user's active alerts, newest first.
func (s *AlertService) ListActive(ctx context.Context, userID string) ([]models.Alert, error) {
	return s.alerts.ListAlerts(ctx, userID, []models.AlertStatus{models.StatusActive})
}

// ListHistory returns resolved and cancelled alerts, newest first.
func (s *AlertService) ListHistory(ctx context.Context, userID string) ([]models.Alert, error) {
	return s.alerts.ListAlerts(ctx, userID, []models.AlertStatus{models.StatusResolved, models.StatusCancelled})
}

// Deliveries returns the delivery log of an alert the requester owns.
func (s *AlertService) Deliveries(ctx context.Context, alertID, requesterID string) ([]models.Delivery, error) {
	if _, err := s.alerts.GetAlert(ctx, alertID, requesterID); err != nil {
		return nil, err
	}
	if s.deliveries == nil {
		return []models.Delivery{}, nil
	}
	return s.deliveries.ListDeliveries(ctx, alertID)
}

// UpdatePushToken registers (or with "" clears) the user's device token.
func (s *AlertService) UpdatePushToken(ctx context.Context, userID, token string) error {
	if len(token) > 4096 {
		return fmt.Errorf("%w: push token too long", models.ErrValidation)
	}
	if err := s.users.UpdatePushToken(ctx, userID, token); err != nil {
		return err
	}
	s.logger.Infof("Updated push token for user %s", userID)
	return nil
}

func (s *AlertService) publish(userID, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	n := s.publisher.Publish(userID, eventType, payload)
	s.logger.Debugf("Published %s for user %s to %d sessions", eventType, userID, n)
}
