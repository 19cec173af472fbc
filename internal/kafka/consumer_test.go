package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-service/internal/logging"
	"alert-service/internal/models"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      chan kafkago.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type evaluation struct {
	userID string
	score  models.HealthScore
}

type fakeEvaluator struct {
	mu    sync.Mutex
	calls []evaluation
}

func (e *fakeEvaluator) Evaluate(_ context.Context, userID string, score models.HealthScore) ([]models.Concern, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, evaluation{userID, score})
	return nil, nil
}

func (e *fakeEvaluator) snapshot() []evaluation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]evaluation(nil), e.calls...)
}

func TestConsumerEvaluatesScores(t *testing.T) {
	reader := &fakeReader{msgs: make(chan kafkago.Message, 4)}
	eval := &fakeEvaluator{}
	c := &Consumer{reader: reader, monitor: eval, logger: logging.Discard(), timeout: time.Second}

	reader.msgs <- kafkago.Message{Offset: 1, Value: []byte(`{"user_id":"u1","overall_score":20,"mood_score":20,"journal_score":50}`)}
	reader.msgs <- kafkago.Message{Offset: 2, Value: []byte(`not json`)}
	reader.msgs <- kafkago.Message{Offset: 3, Value: []byte(`{"user_id":"u2","overall_score":20}`)}
	reader.msgs <- kafkago.Message{Offset: 4, Value: []byte(`{"user_id":"u3","overall_score":0,"mood_score":0,"journal_score":0}`)}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	c.Start(ctx, &wg)

	require.Eventually(t, func() bool { return len(reader.commits()) == 4 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()
	c.Close()

	assert.Equal(t, []int64{1, 2, 3, 4}, reader.commits())
	assert.Equal(t, []evaluation{
		{"u1", models.HealthScore{OverallScore: 20, MoodScore: 20, JournalScore: 50}},
		{"u3", models.HealthScore{}},
	}, eval.snapshot())
	assert.True(t, reader.closed)
}
