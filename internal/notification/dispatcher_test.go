package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"alert-service/internal/logging"
	"alert-service/internal/models"
)

type recordingNotifier struct {
	mu   sync.Mutex
	seen []string
}

func (r *recordingNotifier) NotifyAll(_ context.Context, alert models.Alert) (models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, alert.ID)
	return models.Report{AlertID: alert.ID}, nil
}

func (r *recordingNotifier) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestDispatcherRunsQueuedAlerts(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n, logging.Discard(), 10, 2, time.Second)
	var wg sync.WaitGroup
	d.Start(&wg)

	d.Enqueue(models.Alert{ID: "a"})
	d.Enqueue(models.Alert{ID: "b"})
	d.Stop()
	wg.Wait()

	assert.ElementsMatch(t, []string{"a", "b"}, n.ids())
}

func TestDispatcherFullQueueRunsDetached(t *testing.T) {
	n := &recordingNotifier{}
	// unbuffered queue and no workers started: every Enqueue overflows
	d := NewDispatcher(n, logging.Discard(), 0, 1, time.Second)

	d.Enqueue(models.Alert{ID: "x"})
	d.Stop()

	assert.Equal(t, []string{"x"}, n.ids())
}

func TestDispatcherIgnoresAlertsAfterStop(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n, logging.Discard(), 1, 1, time.Second)
	var wg sync.WaitGroup
	d.Start(&wg)
	d.Stop()
	wg.Wait()

	d.Enqueue(models.Alert{ID: "late"})
	assert.Empty(t, n.ids())
}
