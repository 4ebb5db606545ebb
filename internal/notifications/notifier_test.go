package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.NotifyUser(context.Background(), 1, Event{Kind: EventTaskAssigned}))
	assert.NoError(t, n.Broadcast(context.Background(), Event{Kind: EventCommentCreated}))
	assert.NoError(t, n.StartSubscriber(context.Background(), func(string, string) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
	}
}

func TestNotifier_PublishAndReceive(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 2)
	require.NoError(t, n.StartSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.NotifyUser(context.Background(), 42, Event{
		Kind:      EventTaskAssigned,
		ActorID:   7,
		SubjectID: 99,
		Message:   "You were assigned a task",
	}))

	select {
	case raw := <-payloads:
		var event Event
		require.NoError(t, json.Unmarshal([]byte(raw), &event))
		assert.Equal(t, EventTaskAssigned, event.Kind)
		assert.Equal(t, uint(7), event.ActorID)
		assert.Equal(t, uint(99), event.SubjectID)
		assert.False(t, event.CreatedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	var received int32
	require.NoError(t, n.StartSubscriber(ctx, func(string, string) {
		atomic.AddInt32(&received, 1)
	}))

	require.NoError(t, n.Broadcast(context.Background(), Event{Kind: EventProjectMemberAdded}))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	before := atomic.LoadInt32(&received)
	require.NoError(t, n.Broadcast(context.Background(), Event{Kind: EventProjectMemberAdded}))
	assert.Never(t, func() bool {
		return atomic.LoadInt32(&received) > before
	}, 200*time.Millisecond, 10*time.Millisecond)
}
