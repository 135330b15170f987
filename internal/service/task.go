package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/model"
	"github.com/BuzzLyutic/taskhub/internal/repo"
)

// Publisher fans task events out to realtime clients. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, kind model.EventKind, payload any)
}

type CreateTaskInput struct {
	Title        string  `json:"title" validate:"notblank,max=100"`
	Description  string  `json:"description"`
	DueDate      *string `json:"dueDate" validate:"omitempty,duedate"`
	Priority     string  `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	Status       string  `json:"status" validate:"omitempty,oneof='To Do' 'In Progress' 'Completed'"`
	AssignedToID *string `json:"assignedToId" validate:"omitnil,assignee"`
}

// UpdateTaskInput is a partial update: absent fields stay untouched and an
// empty assignedToId clears the assignee.
type UpdateTaskInput struct {
	Title        *string `json:"title" validate:"omitnil,notblank,max=100"`
	Description  *string `json:"description"`
	DueDate      *string `json:"dueDate" validate:"omitnil,duedate"`
	Priority     *string `json:"priority" validate:"omitnil,oneof=Low Medium High Urgent"`
	Status       *string `json:"status" validate:"omitnil,oneof='To Do' 'In Progress' 'Completed'"`
	AssignedToID *string `json:"assignedToId" validate:"omitnil,assignee"`
	Version      *int    `json:"version" validate:"omitnil,min=1"`
}

type TaskService struct {
	repo   repo.TaskRepository
	events Publisher
	logger *zap.Logger
}

func NewTaskService(repo repo.TaskRepository, events Publisher, logger *zap.Logger) *TaskService {
	return &TaskService{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

func (s *TaskService) Create(ctx context.Context, callerID string, in CreateTaskInput, idempKey string) (model.Task, error) {
	if err := validateStruct(in); err != nil { // Валидация модели до проверки авторизации
		return model.Task{}, err
	}
	if callerID == "" {
		return model.Task{}, ErrNotAuthenticated
	}

	if idempKey != "" { // Повтор с тем же ключом возвращает уже созданную задачу
		existingID, err := s.repo.GetIdempotencyKey(ctx, idempKey, callerID)
		switch {
		case err == nil:
			return s.repo.Get(ctx, existingID)
		case !errors.Is(err, repo.ErrorNotFound):
			return model.Task{}, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	created, err := s.repo.Create(ctx, in.task(callerID))
	if err != nil {
		return created, err
	}

	if idempKey != "" {
		winner, err := s.claimIdempotencyKey(ctx, idempKey, callerID, created.ID)
		if err != nil {
			s.logger.Warn("failed to save idempotency key", zap.String("task_id", created.ID), zap.Error(err))
		} else if winner != created.ID {
			// Параллельный запрос с тем же ключом успел раньше
			if err := s.repo.Delete(ctx, created.ID); err != nil {
				s.logger.Warn("failed to remove duplicate task", zap.String("task_id", created.ID), zap.Error(err))
			}
			return s.repo.Get(ctx, winner)
		}
	}

	s.events.Publish(ctx, model.EventTaskCreated, created)
	if created.AssignedToID != nil {
		s.notifyAssignee(ctx, created, *created.AssignedToID)
	}
	return created, nil
}

func (s *TaskService) List(ctx context.Context, callerID string) ([]model.Task, error) {
	if callerID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.repo.ListForUser(ctx, callerID)
}

func (s *TaskService) Get(ctx context.Context, id string) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

func (s *TaskService) Update(ctx context.Context, callerID, id string, in UpdateTaskInput) (model.Task, error) {
	if callerID == "" {
		return model.Task{}, ErrNotAuthenticated
	}
	if err := validateStruct(in); err != nil {
		return model.Task{}, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return current, err
	}

	patch := in.patch()
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return updated, err
	}

	s.events.Publish(ctx, model.EventTaskUpdated, updated)
	if assignee := patch.AssignedToID; assignee != nil && *assignee != "" && !sameAssignee(current.AssignedToID, *assignee) {
		s.notifyAssignee(ctx, updated, *assignee)
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, callerID, id string) error {
	if callerID == "" {
		return ErrNotAuthenticated
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.events.Publish(ctx, model.EventTaskDeleted, model.TaskDeleted{ID: id})
	return nil
}

func (s *TaskService) Stats(ctx context.Context, callerID string) (model.TaskStats, error) {
	if callerID == "" {
		return model.TaskStats{}, ErrNotAuthenticated
	}
	return s.repo.GetStats(ctx, callerID)
}

// claimIdempotencyKey stores key for taskID unless it is already taken and
// returns the task the key points to afterwards.
func (s *TaskService) claimIdempotencyKey(ctx context.Context, key, callerID, taskID string) (string, error) {
	if err := s.repo.SaveIdempotencyKey(ctx, key, callerID, taskID); err != nil {
		return "", err
	}
	return s.repo.GetIdempotencyKey(ctx, key, callerID)
}

func (s *TaskService) notifyAssignee(ctx context.Context, t model.Task, userID string) {
	s.events.Publish(ctx, model.EventNotification, model.Notification{
		Message: "You have been assigned to task: " + t.Title,
		UserID:  userID,
	})
}

func sameAssignee(current *string, next string) bool {
	return current != nil && *current == next
}

func (in CreateTaskInput) task(creatorID string) model.Task {
	t := model.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    model.PriorityMedium,
		Status:      model.StatusToDo,
		CreatorID:   creatorID,
	}
	if in.Priority != "" {
		t.Priority = model.Priority(in.Priority)
	}
	if in.Status != "" {
		t.Status = model.Status(in.Status)
	}
	if in.DueDate != nil && *in.DueDate != "" {
		if due, err := parseDueDate(*in.DueDate); err == nil {
			t.DueDate = &due
		}
	}
	if in.AssignedToID != nil && *in.AssignedToID != "" {
		assignee := *in.AssignedToID
		t.AssignedToID = &assignee
	}
	return t
}

func (in UpdateTaskInput) patch() model.TaskPatch {
	p := model.TaskPatch{
		Description:  in.Description,
		AssignedToID: in.AssignedToID,
		Version:      in.Version,
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		p.Title = &title
	}
	if in.DueDate != nil {
		if due, err := parseDueDate(*in.DueDate); err == nil {
			p.DueDate = &due
		}
	}
	if in.Priority != nil {
		priority := model.Priority(*in.Priority)
		p.Priority = &priority
	}
	if in.Status != nil {
		status := model.Status(*in.Status)
		p.Status = &status
	}
	return p
}
