// Package notifications publishes application events to Redis channels so
// out-of-process consumers (mailers, websocket gateways) can deliver them.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event kinds published by the API.
const (
	EventTaskAssigned       = "task.assigned"
	EventTaskCompleted      = "task.completed"
	EventProjectMemberAdded = "project.member_added"
	EventCommentCreated     = "comment.created"
)

// Event is the payload published on user channels.
type Event struct {
	Kind      string    `json:"kind"`
	ActorID   uint      `json:"actor_id"`
	SubjectID uint      `json:"subject_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier publishes events into Redis channels. A nil Redis client makes
// every publish a no-op, so callers never need to guard for it.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// NotifyUser publishes an event to a single user's channel.
func (n *Notifier) NotifyUser(ctx context.Context, userID uint, event Event) error {
	if n.rdb == nil {
		return nil
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), string(payload)).Err()
}

// Broadcast publishes an event to every connected consumer.
func (n *Notifier) Broadcast(ctx context.Context, event Event) error {
	if n.rdb == nil {
		return nil
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, broadcastChannel, string(payload)).Err()
}

const broadcastChannel = "notifications:broadcast"

// StartSubscriber subscribes to all user channels plus the broadcast
// channel and calls onMessage for each incoming message. The goroutine
// exits when ctx is canceled.
func (n *Notifier) StartSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*", broadcastChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in notifications subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
