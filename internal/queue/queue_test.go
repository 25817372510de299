package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewInMemory(4)

	msg, err := NewMessage(TypeAttendanceRecorded, Recorded{RecordID: "r1", WorkerID: "w1"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	got := receive(t, ch)
	assert.Equal(t, TypeAttendanceRecorded, got.Type)

	var body Recorded
	require.NoError(t, got.Decode(&body))
	assert.Equal(t, "r1", body.RecordID)

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestInMemory_PublishRespectsContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "x"}), context.DeadlineExceeded)
}

func TestRedisQueue_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewRedisQueue(client, "test:events", zap.NewNop())

	// garbage ahead of the real message is skipped
	require.NoError(t, client.LPush(ctx, "test:events", "not json").Err())
	msg, err := NewMessage(TypeAttendanceRecorded, Recorded{RecordID: "r2"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	got := receive(t, ch)
	var body Recorded
	require.NoError(t, got.Decode(&body))
	assert.Equal(t, "r2", body.RecordID)
}
