// Package notifications publishes domain events to Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"ideon/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	EventIdeaCreated    = "idea.created"
	EventIdeaUpdated    = "idea.updated"
	EventCommentAdded   = "comment.added"
	EventCommentUpdated = "comment.updated"
	EventCommentRemoved = "comment.removed"
	EventUserUpdated    = "user.updated"
)

// BroadcastChannel receives every event.
const BroadcastChannel = "ideon:events"

// Event is the JSON envelope published on every channel.
type Event struct {
	Type    string      `json:"type"`
	IdeaID  string      `json:"-"`
	Payload interface{} `json:"payload"`
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends ev to the broadcast channel and, for idea-scoped events, to
// the idea's channel.
func (n *Notifier) Publish(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := n.rdb.Publish(ctx, BroadcastChannel, payload).Err(); err != nil {
		return err
	}
	if ev.IdeaID != "" {
		return n.rdb.Publish(ctx, IdeaChannel(ev.IdeaID), payload).Err()
	}
	return nil
}

// StartSubscriber subscribes to the broadcast channel and calls onMessage
// for each incoming event until ctx is done.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
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
							observability.GlobalLogger.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// IdeaChannel derives the Redis channel name for an idea.
func IdeaChannel(ideaID string) string {
	return "ideon:idea:" + ideaID
}
