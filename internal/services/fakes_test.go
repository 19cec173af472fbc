package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"alert-service/internal/models"
	"alert-service/internal/providers"
)

type fakeUsers struct {
	mu     sync.Mutex
	users  map[string]models.User
	tokens map[string]string
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{users: map[string]models.User{}, tokens: map[string]string{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return u, nil
}

func (f *fakeUsers) UpdatePushToken(_ context.Context, id, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	u.PushToken = token
	f.users[id] = u
	return nil
}

type fakeAlerts struct {
	mu        sync.Mutex
	alerts    map[string]models.Alert
	createErr error
}

func newFakeAlerts() *fakeAlerts {
	return &fakeAlerts{alerts: map[string]models.Alert{}}
}

func (f *fakeAlerts) CreateAlert(_ context.Context, a models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.alerts[a.ID] = a
	return nil
}

func (f *fakeAlerts) GetAlert(_ context.Context, id, userID string) (models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok || a.UserID != userID {
		return models.Alert{}, fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
	}
	return a, nil
}

func (f *fakeAlerts) ListAlerts(_ context.Context, userID string, statuses []models.AlertStatus) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Alert{}
	for _, a := range f.alerts {
		if a.UserID != userID {
			continue
		}
		for _, s := range statuses {
			if a.Status == s {
				out = append(out, a)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAlerts) SaveTransition(_ context.Context, a models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.alerts[a.ID]
	if !ok {
		return fmt.Errorf("alert %s: %w", a.ID, models.ErrNotFound)
	}
	if stored.Status != models.StatusActive {
		return fmt.Errorf("alert %s: %w", a.ID, models.ErrInvalidState)
	}
	f.alerts[a.ID] = a
	return nil
}

func (f *fakeAlerts) stored(id string) models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts[id]
}

type fakeDeliveries struct {
	list []models.Delivery
}

func (f *fakeDeliveries) ListDeliveries(_ context.Context, alertID string) ([]models.Delivery, error) {
	out := []models.Delivery{}
	for _, d := range f.list {
		if d.AlertID == alertID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeEnqueuer struct {
	mu     sync.Mutex
	queued []models.Alert
}

func (f *fakeEnqueuer) Enqueue(a models.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, a)
}

type fakeGeocoder struct {
	address string
	err     error
	calls   int
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (string, error) {
	f.calls++
	return f.address, f.err
}

type published struct {
	userID    string
	eventType string
	payload   interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(userID, eventType string, payload interface{}) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{userID, eventType, payload})
	return 1
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.eventType
	}
	return out
}

type sentPush struct {
	target   string
	msg      providers.Message
	deadline time.Time
}

type fakePush struct {
	sent []sentPush
	err  error
}

func (f *fakePush) Name() string { return providers.ChannelPush }

func (f *fakePush) Send(ctx context.Context, target string, msg providers.Message) error {
	deadline, _ := ctx.Deadline()
	f.sent = append(f.sent, sentPush{target: target, msg: msg, deadline: deadline})
	return f.err
}

type fakeScores struct {
	score models.HealthScore
	err   error
}

func (f fakeScores) ComputeScore(context.Context, string) (models.HealthScore, error) {
	return f.score, f.err
}

var errBoom = errors.New("boom")
