package realtime

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/model"
)

const publishTimeout = 2 * time.Second

// RedisPublisher fans events out through a Redis channel so that every
// instance's relay delivers them to its own clients. When Redis is
// unreachable the frame is delivered to the local hub only.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	local   *Hub
	logger  *zap.Logger
	metrics Metrics
}

func NewRedisPublisher(client redis.UniversalClient, channel string, local *Hub, logger *zap.Logger, metrics Metrics) *RedisPublisher {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		local:   local,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, kind model.EventKind, payload any) {
	frame, err := Encode(kind, payload)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("event", string(kind)), zap.Error(err))
		return
	}
	p.metrics.EventPublished(string(kind))

	// Запрос может завершиться раньше, чем событие уйдет в Redis
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, frame).Err(); err != nil {
		p.logger.Warn("redis publish failed, delivering locally",
			zap.String("event", string(kind)),
			zap.Error(err),
		)
		p.local.Deliver(frame)
	}
}
