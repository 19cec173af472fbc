package models

import (
	"fmt"
	"math"
	"time"
)

// AlertStatus is the lifecycle state of an Alert.
type AlertStatus string

const (
	StatusActive    AlertStatus = "active"
	StatusResolved  AlertStatus = "resolved"
	StatusCancelled AlertStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s AlertStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// Location is a GeoJSON point. Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates" binding:"required"`
	Address     string    `json:"address,omitempty"`
}

// Longitude returns the first coordinate. Only valid after Validate.
func (l Location) Longitude() float64 { return l.Coordinates[0] }

// Latitude returns the second coordinate. Only valid after Validate.
func (l Location) Latitude() float64 { return l.Coordinates[1] }

// Validate checks the coordinate pair is finite and inside WGS84 bounds.
func (l Location) Validate() error {
	if len(l.Coordinates) != 2 {
		return fmt.Errorf("%w: coordinates must be [longitude, latitude], got %d values", ErrValidation, len(l.Coordinates))
	}
	for _, c := range l.Coordinates {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: coordinates must be finite numbers", ErrValidation)
		}
	}
	if lon := l.Longitude(); lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrValidation, lon)
	}
	if lat := l.Latitude(); lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrValidation, lat)
	}
	return nil
}

// EmergencyContact is one entry of an alert's contact snapshot.
type EmergencyContact struct {
	Name           string     `json:"name"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	TelegramChatID int64      `json:"telegram_chat_id,omitempty"`
	Notified       bool       `json:"notified"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`
}

// MarkNotified sets Notified and NotifiedAt together.
func (c *EmergencyContact) MarkNotified(at time.Time) {
	t := at
	c.Notified = true
	c.NotifiedAt = &t
}

// Alert is a user-initiated emergency event.
type Alert struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	OwnerName         string             `json:"owner_name"`
	Status            AlertStatus        `json:"status"`
	Location          Location           `json:"location"`
	Message           string             `json:"message,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	ResolvedAt        *time.Time         `json:"resolved_at,omitempty"`
	CancelledAt       *time.Time         `json:"cancelled_at,omitempty"`
}

// ApplyTransition moves an active alert into a terminal status.
func (a *Alert) ApplyTransition(status AlertStatus, at time.Time) error {
	if status != StatusResolved && status != StatusCancelled {
		return fmt.Errorf("%w: status must be %q or %q", ErrValidation, StatusResolved, StatusCancelled)
	}
	if a.Status.IsTerminal() {
		return fmt.Errorf("%w: alert %s is already %s", ErrInvalidState, a.ID, a.Status)
	}
	t := at
	a.Status = status
	a.UpdatedAt = t
	if status == StatusResolved {
		a.ResolvedAt = &t
	} else {
		a.CancelledAt = &t
	}
	return nil
}

// ContactMark records that the contact at Index was notified at At.
type ContactMark struct {
	Index int
	At    time.Time
}
