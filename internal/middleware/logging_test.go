package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRecorder struct {
	statuses []int
}

func (f *fakeRecorder) RecordRequest(status int, _ time.Duration) {
	f.statuses = append(f.statuses, status)
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		userID    string
		wantLevel zapcore.Level
	}{
		{name: "ok", status: http.StatusOK, userID: "user-1", wantLevel: zapcore.InfoLevel},
		{name: "client error", status: http.StatusNotFound, wantLevel: zapcore.WarnLevel},
		{name: "server error", status: http.StatusInternalServerError, wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			rec := &fakeRecorder{}

			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.userID != "" {
					_ = ContextWithUserID(r.Context(), tt.userID)
				}
				w.WriteHeader(tt.status)
			})

			w := httptest.NewRecorder()
			Logging(zap.New(core), rec)(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

			entries := logs.FilterMessage("http_request").All()
			require.Len(t, entries, 1)
			entry := entries[0]
			assert.Equal(t, tt.wantLevel, entry.Level)

			fields := entry.ContextMap()
			assert.Equal(t, "GET", fields["method"])
			assert.Equal(t, "/api/tasks", fields["path"])
			assert.EqualValues(t, tt.status, fields["status"])
			if tt.userID != "" {
				assert.Equal(t, tt.userID, fields["user_id"])
			} else {
				assert.NotContains(t, fields, "user_id")
			}
			assert.Equal(t, []int{tt.status}, rec.statuses)
		})
	}
}

func TestLogging_ImplicitOK(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	})

	Logging(zap.New(core), nil)(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, 1, logs.Len())
	assert.EqualValues(t, http.StatusOK, logs.All()[0].ContextMap()["status"])
}
