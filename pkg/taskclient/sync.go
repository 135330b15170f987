package taskclient

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	tasksKey           = "tasks"
	notificationBuffer = 16
)

// SyncCache caches the caller's task list and drops it whenever the server
// reports a change. Event payloads are never merged in: the next Tasks call
// refetches the whole list.
type SyncCache struct {
	client *Client
	logger *zap.Logger
	dialer *websocket.Dialer
	origin string

	mu      sync.Mutex
	entries map[string][]Task
	gen     uint64

	notifications chan Notification
}

func NewSyncCache(client *Client, logger *zap.Logger) *SyncCache {
	return &SyncCache{
		client:        client,
		logger:        logger,
		dialer:        websocket.DefaultDialer,
		entries:       make(map[string][]Task),
		notifications: make(chan Notification, notificationBuffer),
	}
}

// WithOrigin sets the Origin header sent on the realtime handshake.
func (s *SyncCache) WithOrigin(origin string) *SyncCache {
	s.origin = origin
	return s
}

// Tasks returns the cached list, refetching it first when it is missing or stale.
func (s *SyncCache) Tasks(ctx context.Context) ([]Task, error) {
	s.mu.Lock()
	if tasks, ok := s.entries[tasksKey]; ok {
		s.mu.Unlock()
		return clone(tasks), nil
	}
	gen := s.gen
	s.mu.Unlock()

	tasks, err := s.client.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// a change arrived while fetching, keep the entry invalid
	if s.gen == gen {
		s.entries[tasksKey] = tasks
	}
	s.mu.Unlock()
	return clone(tasks), nil
}

// Stale reports whether the next Tasks call will hit the server.
func (s *SyncCache) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[tasksKey]
	return !ok
}

func (s *SyncCache) Invalidate() {
	s.mu.Lock()
	delete(s.entries, tasksKey)
	s.gen++
	s.mu.Unlock()
}

func (s *SyncCache) Notifications() <-chan Notification {
	return s.notifications
}

func (s *SyncCache) CreateTask(ctx context.Context, in CreateTaskRequest, idempotencyKey string) (Task, error) {
	task, err := s.client.CreateTask(ctx, in, idempotencyKey)
	if err == nil {
		s.Invalidate()
	}
	return task, err
}

func (s *SyncCache) UpdateTask(ctx context.Context, id string, in UpdateTaskRequest) (Task, error) {
	task, err := s.client.UpdateTask(ctx, id, in)
	if err == nil {
		s.Invalidate()
	}
	return task, err
}

func (s *SyncCache) DeleteTask(ctx context.Context, id string) error {
	err := s.client.DeleteTask(ctx, id)
	if err == nil {
		s.Invalidate()
	}
	return err
}

// HandleFrame applies one realtime frame to the cache.
func (s *SyncCache) HandleFrame(frame []byte) {
	var ev struct {
		Kind string          `json:"event"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(frame, &ev); err != nil {
		s.logger.Warn("malformed realtime frame", zap.Error(err))
		return
	}

	switch ev.Kind {
	case EventTaskCreated, EventTaskUpdated, EventTaskDeleted:
		s.Invalidate()
	case EventNotification:
		var n Notification
		if err := json.Unmarshal(ev.Data, &n); err != nil {
			s.logger.Warn("malformed notification", zap.Error(err))
			return
		}
		select {
		case s.notifications <- n:
		default:
			s.logger.Warn("notification dropped, consumer is not keeping up")
		}
	default:
		s.logger.Debug("ignoring realtime frame", zap.String("event", ev.Kind))
	}
}

// Run subscribes to the realtime endpoint and feeds frames into the cache
// until ctx is cancelled or the connection drops. The cache is invalidated on
// connect since events may have been missed while disconnected.
func (s *SyncCache) Run(ctx context.Context) error {
	header := http.Header{}
	if s.origin != "" {
		header.Set("Origin", s.origin)
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.client.websocketURL(), header)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	s.Invalidate()
	s.logger.Info("realtime connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.HandleFrame(frame)
	}
}

func clone(tasks []Task) []Task {
	if tasks == nil {
		return []Task{}
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}
