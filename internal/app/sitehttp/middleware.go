package sitehttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/yourname/staticserve/internal/logger"
)

// requestLogger пишет одну запись на запрос: 5xx — error, 4xx — warn, остальное — debug.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				level := slog.LevelDebug
				switch {
				case status >= http.StatusInternalServerError:
					level = slog.LevelError
				case status >= http.StatusBadRequest:
					level = slog.LevelWarn
				}

				log.LogAttrs(r.Context(), level, "http request",
					logger.Component("http"),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes_out", ww.BytesWritten()),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					logger.Elapsed(start),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
