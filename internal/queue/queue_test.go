package queue

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	// adapters are cached by name, so every test gets its own
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func testConfig(name string) Config {
	return Config{
		Name:              name,
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func TestNewQueue(t *testing.T) {
	_, adapter := setupTestRedis(t)
	ctx := context.Background()

	_, err := NewQueue(ctx, adapter, Config{})
	assert.ErrorIs(t, err, ErrNameRequired)

	q, err := NewQueue(ctx, adapter, testConfig("test:new"))
	require.NoError(t, err)
	assert.Equal(t, "test:new", q.Name())

	// the group already exists the second time
	_, err = NewQueue(ctx, adapter, testConfig("test:new"))
	assert.NoError(t, err)
}

func TestQueue_PublishAndConsume(t *testing.T) {
	_, adapter := setupTestRedis(t)
	ctx := context.Background()

	q, err := NewQueue(ctx, adapter, testConfig("test:queue"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	_, err = q.PublishJSON(ctx, map[string]string{"key": "value"}, map[string]string{"type": "test"})
	require.NoError(t, err)

	received := make(chan *Message, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	select {
	case msg := <-received:
		var data map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, "value", data["key"])
		assert.Equal(t, "test", msg.Metadata["type"])
		assert.Equal(t, 0, msg.Attempts)
		assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Minute)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	assert.Eventually(t, func() bool {
		stats, err := q.Stats(ctx)
		return err == nil && stats.PendingMessages == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestQueue_PublishReminder(t *testing.T) {
	_, adapter := setupTestRedis(t)
	ctx := context.Background()

	q, err := NewQueue(ctx, adapter, testConfig("test:reminders"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	job := model.ReminderJob{LogID: 7, PolicyID: 3, OwnerID: "owner", ContactNumber: "9876543210", Message: "hi", ReminderDate: "2025-03-01"}
	require.NoError(t, q.PublishReminder(ctx, job))

	received := make(chan *Message, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	select {
	case msg := <-received:
		assert.Equal(t, TypeReminder, msg.Metadata[MetaType])
		assert.Equal(t, "reminder:2025-03-01:3", msg.Metadata[MetaKey])
		var got model.ReminderJob
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, job, got)
	case <-time.After(2 * time.Second):
		t.Fatal("reminder not received")
	}
}

func TestQueue_ConsumeTwice(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(context.Background(), adapter, testConfig("test:twice"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	noop := func(ctx context.Context, msg *Message) error { return nil }
	assert.ErrorIs(t, q.Consume(nil), ErrHandlerRequired)
	require.NoError(t, q.Consume(noop))
	assert.ErrorIs(t, q.Consume(noop), ErrAlreadyRunning)
}

func TestQueue_FailedMessagesAreRetriedThenDeadLettered(t *testing.T) {
	_, adapter := setupTestRedis(t)
	ctx := context.Background()

	cfg := testConfig("test:retry")
	cfg.MaxRetries = 2
	cfg.VisibilityTimeout = 100 * time.Millisecond
	q, err := NewQueue(ctx, adapter, cfg)
	require.NoError(t, err)
	defer q.Stop(time.Second)

	_, err = q.Publish(ctx, []byte(`{"n":1}`), map[string]string{"key": "k1"})
	require.NoError(t, err)

	var calls atomic.Int32
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		calls.Add(1)
		return assert.AnError
	}))

	assert.Eventually(t, func() bool {
		n, err := adapter.XLen(ctx, q.DeadLetterName())
		return err == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, int32(2), calls.Load())

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.PendingMessages)
}

func TestQueue_ConcurrentPublish(t *testing.T) {
	_, adapter := setupTestRedis(t)
	ctx := context.Background()

	q, err := NewQueue(ctx, adapter, testConfig("test:concurrent"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := q.PublishJSON(ctx, map[string]int{"id": id}, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalMessages)
}

func TestQueue_Stop(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := NewQueue(context.Background(), adapter, testConfig("test:stop"))
	require.NoError(t, err)

	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}))
	assert.NoError(t, q.Stop(2*time.Second))
}

func TestToMessage_LegacyUnixTimestamp(t *testing.T) {
	msg := toMessage(redis.StreamMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"data": "x", "timestamp": "1700000000", "meta_type": "reminder"},
	}, 1)

	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msg.Timestamp)
	assert.Equal(t, "reminder", msg.Metadata["type"])
	assert.Equal(t, 1, msg.Attempts)
}
