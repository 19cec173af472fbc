package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alert-service/internal/logging"
	"alert-service/internal/metrics"
	"alert-service/internal/models"
	"alert-service/internal/providers"
	"alert-service/internal/realtime"
)

const (
	concernTitle = "Health Concern Detected"
	pushTimeout  = 10 * time.Second

	overallConcern = "Your overall mental health score is lower than usual. Consider reaching out for support."
	moodConcern    = "Your mood has been consistently low. Try engaging in mood-boosting activities."
	journalConcern = "Your journal entries show concerning patterns. Consider talking to someone about how you're feeling."
)

// ScoreProvider computes a user's current health score.
type ScoreProvider interface {
	ComputeScore(ctx context.Context, userID string) (models.HealthScore, error)
}

// Thresholds: a score strictly below its threshold raises a concern.
type Thresholds struct {
	Overall float64
	Mood    float64
	Journal float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Overall: 30, Mood: 30, Journal: 30}
}

// HealthMonitor turns health scores into concerns and tells the user
// about them.
type HealthMonitor struct {
	users      UserStore
	scores     ScoreProvider
	push       providers.Channel
	publisher  Publisher
	thresholds Thresholds
	logger     *logging.Logger
	metrics    *metrics.Metrics
	timeout    time.Duration
}

// NewHealthMonitor builds a monitor. scores, push and publisher may be nil.
func NewHealthMonitor(users UserStore, scores ScoreProvider, push providers.Channel, publisher Publisher,
	thresholds Thresholds, logger *logging.Logger, m *metrics.Metrics) *HealthMonitor {
	return &HealthMonitor{
		users:      users,
		scores:     scores,
		push:       push,
		publisher:  publisher,
		thresholds: thresholds,
		logger:     logger,
		metrics:    m,
		timeout:    pushTimeout,
	}
}

// Concerns evaluates score against the thresholds in the fixed order
// overall, mood, journal.
func (h *HealthMonitor) Concerns(score models.HealthScore) []models.Concern {
	concerns := []models.Concern{}
	check := func(kind models.ConcernKind, value, threshold float64, msg string) {
		if value < threshold {
			concerns = append(concerns, models.Concern{Kind: kind, Message: msg, Score: value, Threshold: threshold})
		}
	}
	check(models.ConcernOverall, score.OverallScore, h.thresholds.Overall, overallConcern)
	check(models.ConcernMood, score.MoodScore, h.thresholds.Mood, moodConcern)
	check(models.ConcernJournal, score.JournalScore, h.thresholds.Journal, journalConcern)
	return concerns
}

// Evaluate raises concerns for score. When any fire, a realtime event is
// published and at most one push carrying the first concern is sent.
// Delivery failures are logged, never returned.
func (h *HealthMonitor) Evaluate(ctx context.Context, userID string, score models.HealthScore) ([]models.Concern, error) {
	concerns := h.Concerns(score)
	if len(concerns) == 0 {
		return concerns, nil
	}

	messages := make([]string, len(concerns))
	for i, c := range concerns {
		messages[i] = c.Message
		h.metrics.ConcernRaised(string(c.Kind))
	}
	h.logger.Infof("User %s raised %d health concerns", userID, len(concerns))

	if h.publisher != nil {
		h.publisher.Publish(userID, realtime.EventHealthConcern, map[string]interface{}{
			"message":  strings.Join(messages, "\n"),
			"concerns": concerns,
		})
	}

	h.pushFirst(ctx, userID, concerns[0])
	return concerns, nil
}

// EvaluateUser fetches the current score and evaluates it.
func (h *HealthMonitor) EvaluateUser(ctx context.Context, userID string) ([]models.Concern, error) {
	if h.scores == nil {
		return nil, fmt.Errorf("%w: scoring service not configured", models.ErrValidation)
	}
	score, err := h.scores.ComputeScore(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("compute score for user %s: %w", userID, err)
	}
	return h.Evaluate(ctx, userID, score)
}

func (h *HealthMonitor) pushFirst(ctx context.Context, userID string, c models.Concern) {
	if h.push == nil {
		h.logger.Debugf("Push channel not configured, skipping concern push for user %s", userID)
		return
	}
	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		h.logger.Warnf("Cannot load user %s for concern push: %v", userID, err)
		return
	}
	if user.PushToken == "" || !user.Preferences.Push {
		return
	}

	msg := providers.Message{
		Subject: concernTitle,
		Body:    c.Message,
		Data:    map[string]string{"type": realtime.EventHealthConcern, "userId": userID},
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.push.Send(ctx, user.PushToken, msg); err != nil {
		h.metrics.ChannelSend(providers.ChannelPush, string(providers.ReasonOf(err)))
		h.logger.Errorf("Failed to push health concern to user %s: %v", userID, err)
		return
	}
	h.metrics.ChannelSend(providers.ChannelPush, "sent")
}
