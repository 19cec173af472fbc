package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-service/internal/logging"
	"alert-service/internal/models"
	"alert-service/internal/realtime"
)

const (
	ownerID = "0b3e3c1e-7f53-4c55-9c44-0d0c9bd1a001"
	otherID = "0b3e3c1e-7f53-4c55-9c44-0d0c9bd1a002"
)

type alertFixture struct {
	svc       *AlertService
	alerts    *fakeAlerts
	users     *fakeUsers
	queue     *fakeEnqueuer
	publisher *fakePublisher
	geocoder  *fakeGeocoder
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()
	f := &alertFixture{
		alerts: newFakeAlerts(),
		users: newFakeUsers(models.User{
			ID:   ownerID,
			Name: "Alex",
			EmergencyContacts: []models.Contact{
				{Name: "Sam", Phone: "+15550000001"},
				{Name: "Jo", Email: "jo@example.com", Relationship: "sibling"},
			},
			Preferences: models.DefaultPreferences(),
		}),
		queue:     &fakeEnqueuer{},
		publisher: &fakePublisher{},
		geocoder:  &fakeGeocoder{address: "1 Market St, San Francisco"},
	}
	f.svc = NewAlertService(AlertDeps{
		Alerts:     f.alerts,
		Users:      f.users,
		Deliveries: &fakeDeliveries{},
		Dispatcher: f.queue,
		Geocoder:   f.geocoder,
		Publisher:  f.publisher,
		Logger:     logging.Discard(),
	})
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

func point(lon, lat float64) models.Location {
	return models.Location{Type: "Point", Coordinates: []float64{lon, lat}}
}

func TestCreateSnapshotsContactsAndQueues(t *testing.T) {
	f := newAlertFixture(t)

	alert, err := f.svc.Create(context.Background(), ownerID, point(-122.4, 37.8), "help")
	require.NoError(t, err)

	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, models.StatusActive, alert.Status)
	assert.Nil(t, alert.ResolvedAt)
	assert.Nil(t, alert.CancelledAt)
	assert.Equal(t, "Alex", alert.OwnerName)
	assert.Equal(t, "help", alert.Message)
	assert.Equal(t, "1 Market St, San Francisco", alert.Location.Address)
	assert.Equal(t, []models.EmergencyContact{
		{Name: "Sam", Phone: "+15550000001"},
		{Name: "Jo", Email: "jo@example.com"},
	}, alert.EmergencyContacts)

	assert.Equal(t, alert, f.alerts.stored(alert.ID))
	require.Len(t, f.queue.queued, 1)
	assert.Equal(t, alert.ID, f.queue.queued[0].ID)
	assert.Equal(t, []string{realtime.EventAlertCreated}, f.publisher.types())
}

func TestCreateSnapshotIsIndependentOfContactBook(t *testing.T) {
	f := newAlertFixture(t)

	alert, err := f.svc.Create(context.Background(), ownerID, point(10, 10), "")
	require.NoError(t, err)

	u, _ := f.users.GetUser(context.Background(), ownerID)
	u.EmergencyContacts[0].Phone = "+19999999999"
	assert.Equal(t, "+15550000001", f.alerts.stored(alert.ID).EmergencyContacts[0].Phone)
}

func TestCreateKeepsGivenAddress(t *testing.T) {
	f := newAlertFixture(t)
	loc := point(2.35, 48.85)
	loc.Address = "Paris"

	alert, err := f.svc.Create(context.Background(), ownerID, loc, "")
	require.NoError(t, err)
	assert.Equal(t, "Paris", alert.Location.Address)
	assert.Zero(t, f.geocoder.calls)
}

func TestCreateIgnoresGeocoderFailure(t *testing.T) {
	f := newAlertFixture(t)
	f.geocoder.err = errBoom

	alert, err := f.svc.Create(context.Background(), ownerID, point(2.35, 48.85), "")
	require.NoError(t, err)
	assert.Empty(t, alert.Location.Address)
}

func TestCreateRejectsInvalidLocation(t *testing.T) {
	f := newAlertFixture(t)
	cases := map[string]models.Location{
		"one value":     {Coordinates: []float64{1}},
		"three values":  {Coordinates: []float64{1, 2, 3}},
		"lon too large": point(180.5, 0),
		"lat too small": point(0, -90.1),
	}
	for name, loc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), ownerID, loc, "")
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
	assert.Empty(t, f.queue.queued)
	assert.Empty(t, f.alerts.alerts)
}

func TestCreateUnknownUser(t *testing.T) {
	f := newAlertFixture(t)
	_, err := f.svc.Create(context.Background(), otherID, point(1, 1), "")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, f.queue.queued)
}

func TestCreatePersistenceFailureDoesNotQueue(t *testing.T) {
	f := newAlertFixture(t)
	f.alerts.createErr = fmt.Errorf("%w: insert alert: connection refused", models.ErrPersistence)

	_, err := f.svc.Create(context.Background(), ownerID, point(1, 1), "")
	assert.ErrorIs(t, err, models.ErrPersistence)
	assert.Empty(t, f.queue.queued)
	assert.Empty(t, f.publisher.types())
}

func TestTransition(t *testing.T) {
	f := newAlertFixture(t)
	alert, err := f.svc.Create(context.Background(), ownerID, point(1, 1), "")
	require.NoError(t, err)

	resolved, err := f.svc.Transition(context.Background(), alert.ID, ownerID, models.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Nil(t, resolved.CancelledAt)
	assert.Equal(t, alert.CreatedAt, resolved.CreatedAt)
	assert.Contains(t, f.publisher.types(), realtime.EventAlertStatusChanged)

	before := f.alerts.stored(alert.ID)
	for _, status := range []models.AlertStatus{models.StatusCancelled, models.StatusResolved} {
		_, err = f.svc.Transition(context.Background(), alert.ID, ownerID, status)
		assert.ErrorIs(t, err, models.ErrInvalidState)
	}
	assert.Equal(t, before, f.alerts.stored(alert.ID))
}

func TestTransitionCancel(t *testing.T) {
	f := newAlertFixture(t)
	alert, err := f.svc.Create(context.Background(), ownerID, point(1, 1), "")
	require.NoError(t, err)

	cancelled, err := f.svc.Transition(context.Background(), alert.ID, ownerID, models.StatusCancelled)
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Nil(t, cancelled.ResolvedAt)
}

func TestTransitionErrors(t *testing.T) {
	f := newAlertFixture(t)
	alert, err := f.svc.Create(context.Background(), ownerID, point(1, 1), "")
	require.NoError(t, err)

	_, err = f.svc.Transition(context.Background(), alert.ID, otherID, models.StatusResolved)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.Transition(context.Background(), "missing", ownerID, models.StatusResolved)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.Transition(context.Background(), alert.ID, ownerID, models.StatusActive)
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, models.StatusActive, f.alerts.stored(alert.ID).Status)
}

func TestListActiveAndHistory(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, ownerID, point(1, 1), "first")
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, ownerID, point(1, 1), "second")
	require.NoError(t, err)
	third, err := f.svc.Create(ctx, ownerID, point(1, 1), "third")
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, first.ID, ownerID, models.StatusResolved)
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, second.ID, ownerID, models.StatusCancelled)
	require.NoError(t, err)

	active, err := f.svc.ListActive(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, third.ID, active[0].ID)

	history, err := f.svc.ListHistory(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	none, err := f.svc.ListActive(ctx, otherID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeliveriesRequiresOwnership(t *testing.T) {
	f := newAlertFixture(t)
	alert, err := f.svc.Create(context.Background(), ownerID, point(1, 1), "")
	require.NoError(t, err)
	f.svc.deliveries = &fakeDeliveries{list: []models.Delivery{
		{AlertID: alert.ID, Channel: "sms", Status: "sent"},
		{AlertID: "other", Channel: "email", Status: "failed"},
	}}

	list, err := f.svc.Deliveries(context.Background(), alert.ID, ownerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sms", list[0].Channel)

	_, err = f.svc.Deliveries(context.Background(), alert.ID, otherID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdatePushToken(t *testing.T) {
	f := newAlertFixture(t)
	require.NoError(t, f.svc.UpdatePushToken(context.Background(), ownerID, "device-token"))
	u, _ := f.users.GetUser(context.Background(), ownerID)
	assert.Equal(t, "device-token", u.PushToken)

	err := f.svc.UpdatePushToken(context.Background(), otherID, "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
