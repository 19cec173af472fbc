package notification

import (
	"context"
	"sync"
	"time"

	"alert-service/internal/logging"
	"alert-service/internal/models"
)

// Notifier is satisfied by *Tracker.
type Notifier interface {
	NotifyAll(ctx context.Context, alert models.Alert) (models.Report, error)
}

// Dispatcher runs notification passes off the request path on a fixed
// worker pool. Enqueue never blocks and never drops: when the queue is
// full the pass runs on its own goroutine.
type Dispatcher struct {
	notifier   Notifier
	logger     *logging.Logger
	tasks      chan models.Alert
	workers    int
	runTimeout time.Duration

	mu       sync.RWMutex
	closed   bool
	wg       *sync.WaitGroup
	detached sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. runTimeout caps one whole pass.
func NewDispatcher(n Notifier, logger *logging.Logger, queueSize, workers int, runTimeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		notifier:   n,
		logger:     logger,
		tasks:      make(chan models.Alert, queueSize),
		workers:    workers,
		runTimeout: runTimeout,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(wg *sync.WaitGroup) {
	d.wg = wg
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Enqueue schedules a notification pass for alert.
func (d *Dispatcher) Enqueue(alert models.Alert) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Errorf("Dispatcher stopped, alert %s will not be notified", alert.ID)
		return
	}
	select {
	case d.tasks <- alert:
		d.logger.Debugf("Queued notification for alert %s", alert.ID)
	default:
		d.logger.Warnf("Queue full, notifying alert %s on a detached goroutine", alert.ID)
		d.detached.Add(1)
		go func() {
			defer d.detached.Done()
			d.run(alert)
		}()
	}
}

// Stop stops accepting alerts, lets workers drain the queue and waits for
// detached passes. The caller waits on the WaitGroup given to Start.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()
	d.detached.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for alert := range d.tasks {
		d.run(alert)
	}
	d.logger.Debugf("Notification worker %d stopped", id)
}

func (d *Dispatcher) run(alert models.Alert) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("Notification pass for alert %s panicked: %v", alert.ID, r)
		}
	}()

	ctx := context.Background()
	if d.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.runTimeout)
		defer cancel()
	}

	report, err := d.notifier.NotifyAll(ctx, alert)
	if err != nil {
		d.logger.Errorf("Notification pass for alert %s failed: %v", alert.ID, err)
		return
	}
	d.logger.Infof("Notification pass for alert %s finished: %d/%d contacts notified",
		alert.ID, report.Count(models.ContactNotified), len(report.Outcomes))
}
