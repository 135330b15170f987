package repo

import (
	"context"

	"github.com/BuzzLyutic/taskhub/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	ListForUser(ctx context.Context, userID string) ([]model.Task, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id string) error
	SaveIdempotencyKey(ctx context.Context, key, userID, taskID string) error
	GetIdempotencyKey(ctx context.Context, key, userID string) (string, error)
	GetStats(ctx context.Context, userID string) (model.TaskStats, error)
}

type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	Get(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}
