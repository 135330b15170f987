// Package middleware holds the HTTP middleware chain shared by all routes.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/auth"
	"github.com/BuzzLyutic/taskhub/internal/model"
	"github.com/BuzzLyutic/taskhub/internal/service"
	"github.com/BuzzLyutic/taskhub/pkg/respond"
)

type contextKey string

var (
	userIDContextKey     = contextKey("user_id")
	userHolderContextKey = contextKey("user_holder")
)

// userHolder lets outer middleware see the user id resolved further down the chain.
type userHolder struct {
	userID string
}

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, userHolderContextKey, h)
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.User, error)
}

// LoadSession attaches the caller's user id to the request context when the
// session cookie is valid. Requests without a usable cookie pass through
// anonymously; RequireUser decides whether that is acceptable.
func LoadSession(authn Authenticator, cookie auth.CookieConfig, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := cookie.Read(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authn.Authenticate(r.Context(), token)
			switch {
			case err == nil:
				r = r.WithContext(ContextWithUserID(r.Context(), user.ID))
			case errors.Is(err, service.ErrNotAuthenticated):
				logger.Debug("ignoring invalid session", zap.Error(err))
			default:
				logger.Error("failed to load session", zap.Error(err))
				respond.Error(w, r, http.StatusInternalServerError, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			respond.Error(w, r, http.StatusUnauthorized, "User not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok && userID != ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if h, ok := ctx.Value(userHolderContextKey).(*userHolder); ok {
		h.userID = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}
