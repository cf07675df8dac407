package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type requestLogKey struct{}

// requestLog collects fields that inner middleware learn about a request
// after the logger has wrapped it.
type requestLog struct {
	subject string
}

// noteSubject records the authenticated subject for the request log line.
func noteSubject(ctx context.Context, subject string) {
	if rl, ok := ctx.Value(requestLogKey{}).(*requestLog); ok {
		rl.subject = subject
	}
}

// NewSlogLogger returns a middleware that writes one structured line per
// request: method, path, status, bytes, duration, the chi request ID and the
// authenticated subject when there is one. 5xx responses log at error level,
// 4xx at warn.
//
// Wire it after chimiddleware.RequestID so the request ID is available.
func NewSlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rl := &requestLog{}
			r = r.WithContext(context.WithValue(r.Context(), requestLogKey{}, rl))
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			}
			if rl.subject != "" {
				attrs = append(attrs, slog.String("subject", rl.subject))
			}
			log.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
