package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "escrow:notifications"

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// message формат сообщения в канале.
type message struct {
	ID      string                  `json:"id"`
	UserID  int64                   `json:"user_id"`
	Kind    domain.NotificationKind `json:"kind"`
	Payload map[string]any          `json:"payload,omitempty"`
	SentAt  time.Time               `json:"sent_at"`
}

// RedisSink публикует уведомления в канал redis. Подписчики (push, sms) вне этого сервиса.
type RedisSink struct {
	client  publisher
	channel string
	now     func() time.Time
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return newRedisSink(client, channel)
}

func newRedisSink(client publisher, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel, now: time.Now}
}

func (s *RedisSink) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(message{
		ID:      n.ID,
		UserID:  n.UserID,
		Kind:    n.Kind,
		Payload: n.Payload,
		SentAt:  s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}
	if pubErr := s.client.Publish(ctx, s.channel, body).Err(); pubErr != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, pubErr)
	}
	return nil
}
