package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"alert-service/internal/logging"
	"alert-service/internal/models"
)

// Evaluator is satisfied by *services.HealthMonitor.
type Evaluator interface {
	Evaluate(ctx context.Context, userID string, score models.HealthScore) ([]models.Concern, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// scoreMessage is the payload published by the scoring service.
type scoreMessage struct {
	UserID       string   `json:"user_id"`
	OverallScore *float64 `json:"overall_score"`
	MoodScore    *float64 `json:"mood_score"`
	JournalScore *float64 `json:"journal_score"`
}

// Consumer feeds health scores from Kafka into the health monitor.
type Consumer struct {
	reader  messageReader
	monitor Evaluator
	logger  *logging.Logger
	timeout time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, monitor Evaluator, logger *logging.Logger) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		StartOffset: kafkago.FirstOffset,
	})
	return &Consumer{reader: r, monitor: monitor, logger: logger, timeout: 15 * time.Second}
}

// Start reads until ctx is cancelled. Malformed messages are logged and
// committed so they are not redelivered.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					c.logger.Infof("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				time.Sleep(time.Second)
				continue
			}

			if err := c.handle(ctx, msg.Value); err != nil {
				c.logger.Errorf("Skipping message at offset %d: %v", msg.Offset, err)
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.logger.Errorf("Commit offset %d failed: %v", msg.Offset, err)
			}
		}
	}()
}

func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var m scoreMessage
	if err := json.Unmarshal(value, &m); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	if m.UserID == "" || m.OverallScore == nil || m.MoodScore == nil || m.JournalScore == nil {
		return errors.New("invalid message: missing user_id or a score")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	score := models.HealthScore{OverallScore: *m.OverallScore, MoodScore: *m.MoodScore, JournalScore: *m.JournalScore}
	concerns, err := c.monitor.Evaluate(ctx, m.UserID, score)
	if err != nil {
		return fmt.Errorf("evaluate user %s: %w", m.UserID, err)
	}
	c.logger.Debugf("Processed score for user %s: %d concerns", m.UserID, len(concerns))
	return nil
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Warnf("Kafka reader close failed: %v", err)
	}
}
