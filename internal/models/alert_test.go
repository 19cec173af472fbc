package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationValidate(t *testing.T) {
	valid := []Location{
		{Coordinates: []float64{-122.4, 37.8}},
		{Coordinates: []float64{180, 90}},
		{Coordinates: []float64{-180, -90}},
		{Coordinates: []float64{0, 0}},
	}
	for _, loc := range valid {
		assert.NoError(t, loc.Validate(), "%v", loc.Coordinates)
	}

	invalid := [][]float64{
		nil,
		{1},
		{1, 2, 3},
		{180.0001, 0},
		{0, -90.5},
		{math.NaN(), 0},
		{0, math.Inf(1)},
	}
	for _, coords := range invalid {
		err := Location{Coordinates: coords}.Validate()
		assert.ErrorIs(t, err, ErrValidation, "%v", coords)
	}
}

func TestApplyTransition(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := Alert{ID: "a", Status: StatusActive}
	require.NoError(t, a.ApplyTransition(StatusResolved, at))
	assert.Equal(t, StatusResolved, a.Status)
	require.NotNil(t, a.ResolvedAt)
	assert.Equal(t, at, *a.ResolvedAt)
	assert.Nil(t, a.CancelledAt)
	assert.Equal(t, at, a.UpdatedAt)

	before := a
	err := a.ApplyTransition(StatusCancelled, at.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, before, a)

	c := Alert{ID: "c", Status: StatusActive}
	require.NoError(t, c.ApplyTransition(StatusCancelled, at))
	assert.NotNil(t, c.CancelledAt)
	assert.Nil(t, c.ResolvedAt)

	d := Alert{ID: "d", Status: StatusActive}
	assert.ErrorIs(t, d.ApplyTransition(StatusActive, at), ErrValidation)
	assert.ErrorIs(t, d.ApplyTransition("archived", at), ErrValidation)
	assert.Equal(t, StatusActive, d.Status)
}

func TestMarkNotifiedSetsBothFields(t *testing.T) {
	var c EmergencyContact
	assert.False(t, c.Notified)
	assert.Nil(t, c.NotifiedAt)

	at := time.Now()
	c.MarkNotified(at)
	assert.True(t, c.Notified)
	require.NotNil(t, c.NotifiedAt)
	assert.Equal(t, at, *c.NotifiedAt)
}

func TestSnapshotContactsIsDeepCopy(t *testing.T) {
	u := User{EmergencyContacts: []Contact{
		{Name: "Sam", Phone: "+1555", Relationship: "friend"},
		{Name: "Jo", Email: "jo@example.com", TelegramChatID: 42},
	}}

	snap := u.SnapshotContacts()
	assert.Equal(t, []EmergencyContact{
		{Name: "Sam", Phone: "+1555"},
		{Name: "Jo", Email: "jo@example.com", TelegramChatID: 42},
	}, snap)

	u.EmergencyContacts[0].Phone = "+1999"
	assert.Equal(t, "+1555", snap[0].Phone)

	assert.NotNil(t, User{}.SnapshotContacts())
}

func TestReportCount(t *testing.T) {
	r := Report{Outcomes: []ContactOutcome{
		{Status: ContactNotified}, {Status: ContactFailed}, {Status: ContactNotified}, {Status: ContactNoChannel},
	}}
	assert.Equal(t, 2, r.Count(ContactNotified))
	assert.Equal(t, 1, r.Count(ContactFailed))
	assert.Equal(t, 1, r.Count(ContactNoChannel))
}
