package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type RequestRecorder interface {
	RecordRequest(status int, took time.Duration)
}

// Logging writes one structured line per request. 5xx responses log at
// error level and 4xx at warn. recorder may be nil.
func Logging(logger *zap.Logger, recorder RequestRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// Сессия загружается глубже по цепочке, поэтому user_id берется из общего контекста
			holder := &userHolder{}
			r = r.WithContext(withUserHolder(r.Context(), holder))

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			took := time.Since(start)
			if recorder != nil {
				recorder.RecordRequest(status, took)
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", took),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			}
			if holder.userID != "" {
				fields = append(fields, zap.String("user_id", holder.userID))
			}

			level := zapcore.InfoLevel
			switch {
			case status >= 500:
				level = zapcore.ErrorLevel
			case status >= 400:
				level = zapcore.WarnLevel
			}
			if ce := logger.Check(level, "http_request"); ce != nil {
				ce.Write(fields...)
			}
		})
	}
}
