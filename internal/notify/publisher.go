package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// Publisher pushes freshly created notifications to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// RedisPublisher fans notifications out over Redis pub/sub, one channel per recipient.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher creates a publisher. A nil client yields a publisher that drops messages.
func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the channel a recipient's feed is published on.
func (p *RedisPublisher) Channel(recipientID string) string {
	return fmt.Sprintf("%s:%s", p.prefix, recipientID)
}

type livePayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Category  string `json:"type"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// Publish sends the notification to the recipient's channel.
func (p *RedisPublisher) Publish(ctx context.Context, n domain.Notification) error {
	if p == nil || p.client == nil {
		return nil
	}
	body, err := json.Marshal(livePayload{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Category:  string(n.Category),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode live notification: %w", err)
	}
	return p.client.Publish(ctx, p.Channel(n.RecipientID), body).Err()
}
