package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/taskhub/internal/model"
)

// MockTaskRepository - мок репозитория задач
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
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) SaveIdempotencyKey(ctx context.Context, key, userID, taskID string) error {
	args := m.Called(ctx, key, userID, taskID)
	return args.Error(0)
}

func (m *MockTaskRepository) GetIdempotencyKey(ctx context.Context, key, userID string) (string, error) {
	args := m.Called(ctx, key, userID)
	return args.String(0), args.Error(1)
}

func (m *MockTaskRepository) GetStats(ctx context.Context, userID string) (model.TaskStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.TaskStats), args.Error(1)
}

// MockUserRepository - мок репозитория пользователей
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) Get(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, kind model.EventKind, payload any) {
	m.Called(ctx, kind, payload)
}

type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) Verify(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

func (m *MockHasher) VerifyNothing(password string) {
	m.Called(password)
}

type MockTokens struct {
	mock.Mock
}

func (m *MockTokens) Issue(userID string) (string, time.Time, error) {
	args := m.Called(userID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockTokens) Parse(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}
