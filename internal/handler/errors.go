package handler

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/repo"
	"github.com/BuzzLyutic/taskhub/internal/service"
	"github.com/BuzzLyutic/taskhub/pkg/respond"
)

func handleErrors(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		respond.Error(w, r, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrNotAuthenticated):
		respond.Error(w, r, http.StatusUnauthorized, "User not authenticated")
	case errors.Is(err, service.ErrInvalidCredentials):
		respond.Error(w, r, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrUserExists):
		respond.Error(w, r, http.StatusBadRequest, "User already exists")
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "Task not found")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "Task was modified by someone else")
	case errors.Is(err, repo.ErrorInvalidReference):
		respond.Error(w, r, http.StatusBadRequest, "Assigned user does not exist")
	default:
		logger.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v any) bool {
	err := respond.Decode(r, v)
	if err == nil {
		return true
	}
	if errors.Is(err, respond.ErrEmptyBody) {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return false
	}

	logger.Debug("failed to decode json", zap.Error(err))
	respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
	return false
}
