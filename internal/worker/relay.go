package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FrameSink accepts encoded realtime frames. realtime.Hub satisfies it.
type FrameSink interface {
	Deliver(frame []byte)
}

// Relay subscribes to the shared Redis channel and hands every frame to
// the local hub, so clients see events published by any instance.
type Relay struct {
	client   redis.UniversalClient
	channel  string
	sink     FrameSink
	logger   *zap.Logger
	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRelay(client redis.UniversalClient, channel string, sink FrameSink, logger *zap.Logger) *Relay {
	return &Relay{
		client:  client,
		channel: channel,
		sink:    sink,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Start returns once the subscription is confirmed by Redis.
func (r *Relay) Start(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	r.logger.Info("Starting event relay", zap.String("channel", r.channel))
	r.wg.Add(1)
	go r.run(ctx, sub)
	return nil
}

func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info("Stopping event relay...")
		close(r.stop)
	})
	r.wg.Wait()
}

func (r *Relay) run(ctx context.Context, sub *redis.PubSub) {
	defer r.wg.Done()
	defer sub.Close()

	messages := sub.Channel()
	for {
		select {
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				r.logger.Warn("relay subscription closed")
				return
			}
			r.sink.Deliver([]byte(msg.Payload))
		}
	}
}
