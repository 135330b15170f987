package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/auth"
	"github.com/BuzzLyutic/taskhub/internal/service"
	"github.com/BuzzLyutic/taskhub/pkg/respond"
)

type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (service.Session, error)
	Login(ctx context.Context, in service.LoginInput) (service.Session, error)
}

type AuthHandler struct {
	service AuthService
	cookie  auth.CookieConfig
	logger  *zap.Logger
}

func NewAuthHandler(srv AuthService, cookie auth.CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: srv,
		cookie:  cookie,
		logger:  logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	h.cookie.Issue(w, session.Token, session.ExpiresAt)
	respond.JSON(w, r, http.StatusCreated, session.User)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	h.cookie.Issue(w, session.Token, session.ExpiresAt)
	respond.JSON(w, r, http.StatusOK, session.User)
}

// Logout always succeeds; tokens are stateless, so clearing the cookie is all there is.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookie.Clear(w)
	respond.Message(w, r, http.StatusOK, "Logged out successfully")
}
