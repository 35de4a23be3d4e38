package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Middleware logs each request and installs a request-scoped logger in the
// request context. It must run after chi's RequestID middleware.
func Middleware(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := base.With(
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(WithContext(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.Int("body_size", ww.BytesWritten()),
				zap.String("remote_addr", r.RemoteAddr),
			}
			if r.URL.RawQuery != "" {
				fields = append(fields, zap.String("query", r.URL.RawQuery))
			}

			switch {
			case status >= 500:
				reqLogger.Error("HTTP request", fields...)
			case status >= 400:
				reqLogger.Warn("HTTP request", fields...)
			default:
				reqLogger.Info("HTTP request", fields...)
			}
		})
	}
}

// Recovery turns panics into 500 responses and logs them with a stack trace
func Recovery(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					base.Error("Panic recovered",
						zap.String("request_id", middleware.GetReqID(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Any("error", rec),
						zap.Stack("stacktrace"),
					)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
