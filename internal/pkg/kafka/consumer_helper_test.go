package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	ctx     context.Context
	mu      sync.Mutex
	marked  []*sarama.ConsumerMessage
	commits int
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member-1" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }

func (s *fakeSession) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, m)
}

func (s *fakeSession) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
}

func messages(n int) []*sarama.ConsumerMessage {
	out := make([]*sarama.ConsumerMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &sarama.ConsumerMessage{Topic: "prompt-view-events", Offset: int64(i)})
	}
	return out
}

func TestProcessBatch_RetriesThenCommitsLast(t *testing.T) {
	session := &fakeSession{ctx: context.Background()}
	var failures atomic.Int32
	failures.Store(2)
	var handled atomic.Int32

	processBatch(session, messages(3), func(_ context.Context, m *sarama.ConsumerMessage) error {
		if m.Offset == 1 && failures.Add(-1) >= 0 {
			return errors.New("db busy")
		}
		handled.Add(1)
		return nil
	})

	assert.Equal(t, int32(3), handled.Load())
	require.Len(t, session.marked, 1)
	assert.Equal(t, int64(2), session.marked[0].Offset)
	assert.Equal(t, 1, session.commits)
}

func TestProcessBatch_SessionEndedSkipsCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}
	time.AfterFunc(50*time.Millisecond, cancel)

	processBatch(session, messages(2), func(_ context.Context, m *sarama.ConsumerMessage) error {
		if m.Offset == 0 {
			return errors.New("still failing")
		}
		return nil
	})

	assert.Empty(t, session.marked)
	assert.Equal(t, 0, session.commits)
}

func TestNewBatchOptions(t *testing.T) {
	assert.Equal(t, batchOptions{size: defaultBatchSize, timeout: defaultBatchTimeout}, newBatchOptions(0, 0))
	assert.Equal(t, batchOptions{size: 8, timeout: time.Minute}, newBatchOptions(8, time.Minute))
}

func TestNewSaramaConfig(t *testing.T) {
	c := newSaramaConfig(configForTest(), viewConsumerForTest("newest"))
	assert.Equal(t, sarama.OffsetNewest, c.Consumer.Offsets.Initial)
	assert.False(t, c.Consumer.Offsets.AutoCommit.Enable)
	assert.Equal(t, "prompt-view-consumer", c.ClientID)
	assert.Equal(t, 10*time.Second, c.Consumer.Group.Session.Timeout)

	c = newSaramaConfig(configForTest(), viewConsumerForTest(""))
	assert.Equal(t, sarama.OffsetOldest, c.Consumer.Offsets.Initial)
}

func configForTest() config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:  []string{"localhost:9092"},
		Consumer: config.ConsumerConfig{SessionTimeout: 10},
	}
}

func viewConsumerForTest(offset string) config.KafkaViewConsumer {
	return config.KafkaViewConsumer{
		Topic:         "prompt-view-events",
		ClientID:      "prompt-view-consumer",
		InitialOffset: offset,
	}
}
