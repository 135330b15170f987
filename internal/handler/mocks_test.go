package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/taskhub/internal/middleware"
	"github.com/BuzzLyutic/taskhub/internal/model"
	"github.com/BuzzLyutic/taskhub/internal/service"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) Create(ctx context.Context, callerID string, in service.CreateTaskInput, idempKey string) (model.Task, error) {
	args := m.Called(ctx, callerID, in, idempKey)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) List(ctx context.Context, callerID string) ([]model.Task, error) {
	args := m.Called(ctx, callerID)
	tasks, _ := args.Get(0).([]model.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) Get(ctx context.Context, id string) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) Update(ctx context.Context, callerID, id string, in service.UpdateTaskInput) (model.Task, error) {
	args := m.Called(ctx, callerID, id, in)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskService) Delete(ctx context.Context, callerID, id string) error {
	args := m.Called(ctx, callerID, id)
	return args.Error(0)
}

func (m *MockTaskService) Stats(ctx context.Context, callerID string) (model.TaskStats, error) {
	args := m.Called(ctx, callerID)
	return args.Get(0).(model.TaskStats), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (service.Session, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(service.Session), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, in service.LoginInput) (service.Session, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(service.Session), args.Error(1)
}

// withRoute adds chi URL params and an optional authenticated caller to req.
func withRoute(req *http.Request, userID string, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = middleware.ContextWithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, id string) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) ListForUser(ctx context.Context, userID string) ([]model.Task, error) {
	args := m.Called(ctx, userID)
	tasks, _ := args.Get(0).([]model.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTaskRepository) SaveIdempotencyKey(ctx context.Context, key, userID, taskID string) error {
	return m.Called(ctx, key, userID, taskID).Error(0)
}

func (m *MockTaskRepository) GetIdempotencyKey(ctx context.Context, key, userID string) (string, error) {
	args := m.Called(ctx, key, userID)
	return args.String(0), args.Error(1)
}

func (m *MockTaskRepository) GetStats(ctx context.Context, userID string) (model.TaskStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.TaskStats), args.Error(1)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.EventKind, any) {}
