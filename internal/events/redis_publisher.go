package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gtm-console/internal/session"
)

const defaultChannelPrefix = "console:session:"

var ErrPublisherNotConfigured = errors.New("event publisher not configured")

type redisPublisherClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher reenvia los eventos de la sesion a un canal pub/sub de Redis
// para que renderizadores fuera de proceso puedan suscribirse.
type RedisPublisher struct {
	client  redisPublisherClient
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewRedisPublisher(client *redis.Client, prefix string, logger *zap.Logger) *RedisPublisher {
	if client == nil {
		return nil
	}
	return newRedisPublisher(client, prefix, logger)
}

func newRedisPublisher(client redisPublisherClient, prefix string, logger *zap.Logger) *RedisPublisher {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{
		client:  client,
		prefix:  prefix,
		timeout: 500 * time.Millisecond,
		logger:  logger,
	}
}

// Channel devuelve el canal donde se publican los eventos de sessionID.
func (p *RedisPublisher) Channel(sessionID string) string {
	return p.prefix + sessionID
}

func (p *RedisPublisher) Publish(ctx context.Context, evt session.Event) error {
	if p == nil || p.client == nil {
		return ErrPublisherNotConfigured
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.Channel(evt.SessionID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscriber adapta el publisher a session.Subscriber. Los errores de Redis
// se loguean y no afectan a la sesion.
func (p *RedisPublisher) Subscriber() session.Subscriber {
	return func(evt session.Event) {
		if err := p.Publish(context.Background(), evt); err != nil {
			p.logger.Warn("publish session event failed",
				zap.String("event", string(evt.Type)),
				zap.Error(err),
			)
		}
	}
}
