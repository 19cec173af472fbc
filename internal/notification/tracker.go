package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"alert-service/internal/logging"
	"alert-service/internal/metrics"
	"alert-service/internal/models"
	"alert-service/internal/providers"
	"alert-service/internal/realtime"
	"alert-service/internal/utils"
)

const (
	alertSubject = "EMERGENCY ALERT"
	noMessage    = "No additional message"

	// transient failures get one immediate retry
	maxSendAttempts = 2

	persistTimeout = 10 * time.Second
)

// AlertStore persists notification marks in a single atomic update.
type AlertStore interface {
	MarkContactsNotified(ctx context.Context, alertID string, marks []models.ContactMark) error
}

// DeliveryLog appends channel attempts for auditing.
type DeliveryLog interface {
	RecordDeliveries(ctx context.Context, deliveries []models.Delivery) error
}

// Publisher fans an event out to a user's live sessions.
type Publisher interface {
	Publish(userID, eventType string, payload interface{}) int
}

type Options struct {
	SendTimeout    time.Duration
	MaxConcurrency int
}

// Tracker notifies every emergency contact of an alert across the
// channels each contact has, and records who was reached.
type Tracker struct {
	channels    map[string]providers.Channel
	alerts      AlertStore
	deliveries  DeliveryLog
	publisher   Publisher
	logger      *logging.Logger
	metrics     *metrics.Metrics
	sendTimeout time.Duration
	concurrency int
	now         func() time.Time
}

// NewTracker builds a Tracker. deliveries and publisher may be nil.
func NewTracker(channels []providers.Channel, alerts AlertStore, deliveries DeliveryLog, publisher Publisher,
	logger *logging.Logger, m *metrics.Metrics, opts Options) *Tracker {
	byName := make(map[string]providers.Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	return &Tracker{
		channels:    byName,
		alerts:      alerts,
		deliveries:  deliveries,
		publisher:   publisher,
		logger:      logger,
		metrics:     m,
		sendTimeout: opts.SendTimeout,
		concurrency: opts.MaxConcurrency,
		now:         time.Now,
	}
}

// BuildMessage renders the text sent to every contact of alert.
func BuildMessage(alert models.Alert) providers.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "EMERGENCY ALERT: %s needs help!\n", alert.OwnerName)
	fmt.Fprintf(&b, "Location: %s\n", MapsURL(alert.Location))
	if alert.Location.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", alert.Location.Address)
	}
	msg := alert.Message
	if strings.TrimSpace(msg) == "" {
		msg = noMessage
	}
	fmt.Fprintf(&b, "Message: %s", msg)
	return providers.Message{Subject: alertSubject, Body: b.String()}
}

// MapsURL links to the alert position. Maps expects "lat,lon".
func MapsURL(loc models.Location) string {
	if len(loc.Coordinates) != 2 {
		return ""
	}
	lat := strconv.FormatFloat(loc.Latitude(), 'f', -1, 64)
	lon := strconv.FormatFloat(loc.Longitude(), 'f', -1, 64)
	return fmt.Sprintf("https://www.google.com/maps?q=%s,%s", lat, lon)
}

// NotifyAll attempts every contact and returns one outcome per contact in
// stored order. Channel failures stay in the report; the returned error is
// only set when persisting the notified marks failed.
func (t *Tracker) NotifyAll(ctx context.Context, alert models.Alert) (models.Report, error) {
	report := models.Report{AlertID: alert.ID, Outcomes: make([]models.ContactOutcome, len(alert.EmergencyContacts))}
	if len(alert.EmergencyContacts) == 0 {
		t.logger.Infof("Alert %s has no emergency contacts, nothing to notify", alert.ID)
		return report, nil
	}

	msg := BuildMessage(alert)
	g := new(errgroup.Group)
	g.SetLimit(t.concurrency)
	for i, contact := range alert.EmergencyContacts {
		i, contact := i, contact
		g.Go(func() error {
			report.Outcomes[i] = t.notifyContact(ctx, i, contact, msg)
			return nil
		})
	}
	_ = g.Wait()

	var marks []models.ContactMark
	var deliveries []models.Delivery
	for i, out := range report.Outcomes {
		t.metrics.ContactOutcome(string(out.Status))
		if out.Status == models.ContactNotified && !alert.EmergencyContacts[i].Notified {
			marks = append(marks, models.ContactMark{Index: i, At: *out.NotifiedAt})
		}
		deliveries = append(deliveries, toDeliveries(alert.ID, out)...)
	}

	// contacts already reached must be recorded even if the pass ran out of time
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var persistErr error
	if len(marks) > 0 {
		if err := t.alerts.MarkContactsNotified(persistCtx, alert.ID, marks); err != nil {
			persistErr = fmt.Errorf("mark contacts notified for alert %s: %w", alert.ID, err)
			t.logger.Errorf("%v", persistErr)
		}
	}
	if t.deliveries != nil && len(deliveries) > 0 {
		if err := t.deliveries.RecordDeliveries(persistCtx, deliveries); err != nil {
			t.logger.Errorf("Failed to record deliveries for alert %s: %v", alert.ID, err)
		}
	}

	notified := report.Count(models.ContactNotified)
	failed := report.Count(models.ContactFailed)
	noChannel := report.Count(models.ContactNoChannel)
	t.logger.Infof("Alert %s contacts: %d notified, %d failed, %d without channel", alert.ID, notified, failed, noChannel)

	if t.publisher != nil {
		t.publisher.Publish(alert.UserID, realtime.EventAlertContactsNotified, map[string]interface{}{
			"alert_id":   alert.ID,
			"notified":   notified,
			"failed":     failed,
			"no_channel": noChannel,
		})
	}
	return report, persistErr
}

type target struct {
	channel string
	address string
}

// contactTargets lists the channels a contact can be reached on, in the
// order they are tried.
func contactTargets(c models.EmergencyContact) []target {
	var out []target
	if c.Phone != "" {
		out = append(out, target{providers.ChannelSMS, c.Phone})
	}
	if c.Email != "" {
		out = append(out, target{providers.ChannelEmail, c.Email})
	}
	if c.TelegramChatID != 0 {
		out = append(out, target{providers.ChannelTelegram, strconv.FormatInt(c.TelegramChatID, 10)})
	}
	return out
}

func (t *Tracker) notifyContact(ctx context.Context, idx int, c models.EmergencyContact, msg providers.Message) models.ContactOutcome {
	out := models.ContactOutcome{Index: idx, Name: c.Name}
	if c.Notified {
		out.Status = models.ContactNotified
		out.NotifiedAt = c.NotifiedAt
		return out
	}

	targets := contactTargets(c)
	if len(targets) == 0 {
		t.logger.Warnf("Contact %q has no phone, email or chat id; skipping", c.Name)
		out.Status = models.ContactNoChannel
		return out
	}

	for _, tg := range targets {
		attempt := t.attempt(ctx, tg, msg)
		out.Attempts = append(out.Attempts, attempt)
		if attempt.Success && out.NotifiedAt == nil {
			at := attempt.At
			out.NotifiedAt = &at
		}
	}
	out.Status = models.ContactFailed
	if out.NotifiedAt != nil {
		out.Status = models.ContactNotified
	}
	return out
}

func (t *Tracker) attempt(ctx context.Context, tg target, msg providers.Message) models.ChannelAttempt {
	attempt := models.ChannelAttempt{Channel: tg.channel, Target: tg.address}

	var err error
	ch, ok := t.channels[tg.channel]
	if !ok {
		err = providers.NewChannelError(tg.channel, providers.ReasonAuthFailure, errors.New("channel not configured"))
	} else {
		err = utils.Retry(t.logger, maxSendAttempts, 0, providers.IsTransient, func() error {
			return t.sendWithTimeout(ctx, ch, tg.address, msg)
		})
	}
	attempt.At = t.now()

	if err != nil {
		reason := providers.ReasonOf(err)
		attempt.Reason = string(reason)
		attempt.Error = err.Error()
		t.metrics.ChannelSend(tg.channel, string(reason))
		t.logger.Errorf("Dispatch error via %s to %s: %v", tg.channel, tg.address, err)
		return attempt
	}
	attempt.Success = true
	t.metrics.ChannelSend(tg.channel, "sent")
	return attempt
}

// sendWithTimeout bounds a single send even if the channel ignores ctx.
func (t *Tracker) sendWithTimeout(ctx context.Context, ch providers.Channel, address string, msg providers.Message) error {
	ctx, cancel := context.WithTimeout(ctx, t.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- ch.Send(ctx, address, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return providers.NewChannelError(ch.Name(), providers.ReasonTransient, fmt.Errorf("send timed out: %w", ctx.Err()))
	}
}

func toDeliveries(alertID string, out models.ContactOutcome) []models.Delivery {
	deliveries := make([]models.Delivery, 0, len(out.Attempts))
	for _, a := range out.Attempts {
		status := "sent"
		if !a.Success {
			status = "failed"
		}
		deliveries = append(deliveries, models.Delivery{
			AlertID:      alertID,
			ContactIndex: out.Index,
			ContactName:  out.Name,
			Channel:      a.Channel,
			Status:       status,
			Reason:       a.Reason,
			Error:        a.Error,
			CreatedAt:    a.At,
		})
	}
	return deliveries
}
