// Package server assembles the HTTP routes.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/auth"
	"github.com/BuzzLyutic/taskhub/internal/handler"
	"github.com/BuzzLyutic/taskhub/internal/middleware"
	"github.com/BuzzLyutic/taskhub/pkg/respond"
)

type Deps struct {
	Auth           *handler.AuthHandler
	Tasks          *handler.TaskHandler
	Realtime       http.Handler
	Metrics        http.Handler
	Sessions       middleware.Authenticator
	Cookie         auth.CookieConfig
	AuthLimiter    *middleware.RateLimiter
	Requests       middleware.RequestRecorder
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(d.Logger, d.Requests))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
	r.Get("/ws", d.Realtime.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			respond.Message(w, r, http.StatusOK, "API is running")
		})

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if d.AuthLimiter != nil {
					r.Use(d.AuthLimiter.Middleware)
				}
				r.Post("/register", d.Auth.Register)
				r.Post("/login", d.Auth.Login)
			})
			r.Post("/logout", d.Auth.Logout)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(middleware.LoadSession(d.Sessions, d.Cookie, d.Logger))

			// Создание сначала валидирует тело и только потом требует авторизацию
			r.Post("/", d.Tasks.Create)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser)
				r.Get("/", d.Tasks.List)
				r.Get("/stats", d.Tasks.Stats)
				r.Get("/{id}", d.Tasks.Get)
				r.Put("/{id}", d.Tasks.Update)
				r.Delete("/{id}", d.Tasks.Delete)
			})
		})
	})

	return r
}
