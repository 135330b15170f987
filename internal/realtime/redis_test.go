package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/model"
)

func TestRedisPublisher_FallsBackToLocalDelivery(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })

	metrics := newCountingMetrics()
	hub := NewHub(zap.NewNop(), nil, nil)
	local := &client{id: "local", send: make(chan []byte, 1)}
	hub.clients[local] = struct{}{}

	pub := NewRedisPublisher(rdb, "taskhub:events", hub, zap.NewNop(), metrics)
	pub.Publish(context.Background(), model.EventTaskDeleted, model.TaskDeleted{ID: "t-1"})

	select {
	case frame := <-local.send:
		assert.JSONEq(t, `{"event":"task:deleted","data":{"id":"t-1"}}`, string(frame))
	case <-time.After(2 * time.Second):
		require.Fail(t, "frame was not delivered locally")
	}
	assert.Equal(t, 1, metrics.published["task:deleted"])
}
