package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/middleware"
	"github.com/BuzzLyutic/taskhub/internal/model"
	"github.com/BuzzLyutic/taskhub/internal/service"
	"github.com/BuzzLyutic/taskhub/pkg/respond"
)

type TaskService interface {
	Create(ctx context.Context, callerID string, in service.CreateTaskInput, idempKey string) (model.Task, error)
	List(ctx context.Context, callerID string) ([]model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	Update(ctx context.Context, callerID, id string, in service.UpdateTaskInput) (model.Task, error)
	Delete(ctx context.Context, callerID, id string) error
	Stats(ctx context.Context, callerID string) (model.TaskStats, error)
}

type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTaskInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	callerID, _ := middleware.UserIDFromContext(r.Context())
	task, err := h.service.Create(r.Context(), callerID, req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/tasks/"+task.ID)
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserIDFromContext(r.Context())

	tasks, err := h.service.List(r.Context(), callerID)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateTaskInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	callerID, _ := middleware.UserIDFromContext(r.Context())
	task, err := h.service.Update(r.Context(), callerID, chi.URLParam(r, "id"), req)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.service.Delete(r.Context(), callerID, chi.URLParam(r, "id")); err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.Message(w, r, http.StatusOK, "Task removed")
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserIDFromContext(r.Context())

	stats, err := h.service.Stats(r.Context(), callerID)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}
