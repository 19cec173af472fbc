package models

import (
	"time"
)

// ContactStatus is the per-contact result of a notification pass.
type ContactStatus string

const (
	ContactNotified  ContactStatus = "notified"
	ContactFailed    ContactStatus = "failed"
	ContactNoChannel ContactStatus = "no_channel"
)

// ChannelAttempt is one send through one channel, retries included.
type ChannelAttempt struct {
	Channel string    `json:"channel"`
	Target  string    `json:"target"`
	Success bool      `json:"success"`
	Reason  string    `json:"reason,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// ContactOutcome is one entry of a notification report.
type ContactOutcome struct {
	Index      int              `json:"index"`
	Name       string           `json:"name"`
	Status     ContactStatus    `json:"status"`
	NotifiedAt *time.Time       `json:"notified_at,omitempty"`
	Attempts   []ChannelAttempt `json:"attempts,omitempty"`
}

// Report is the ordered result of notifying every contact of an alert.
type Report struct {
	AlertID  string           `json:"alert_id"`
	Outcomes []ContactOutcome `json:"outcomes"`
}

// Count returns how many outcomes have the given status.
func (r Report) Count(status ContactStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Delivery is a persisted row of the delivery log.
type Delivery struct {
	ID           string    `json:"id"`
	AlertID      string    `json:"alert_id"`
	ContactIndex int       `json:"contact_index"`
	ContactName  string    `json:"contact_name"`
	Channel      string    `json:"channel"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
