package v1

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// instrument logs and measures every request. Server errors log at ERROR,
// client errors at WARN and the rest at INFO.
func instrument(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			id := chimw.GetReqID(r.Context())
			l.Debug("request started", "req_id", id, "method", r.Method, "path", r.URL.Path)

			next.ServeHTTP(rw, r)

			took := time.Since(began)
			status := rw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			observeRequest(r, status, took)

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			l.Log(r.Context(), level, "request complete",
				slog.String("req_id", id),
				slog.String("method", r.Method),
				slog.String("route", routePattern(r)),
				slog.Int("status", status),
				slog.Int("bytes", rw.BytesWritten()),
				slog.Duration("took", took),
			)
		})
	}
}

// recoverer turns a handler panic into a JSON 500 and logs the stack.
func recoverer(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				l.Error("handler panic",
					"req_id", chimw.GetReqID(r.Context()),
					"panic", v,
					"stack", string(debug.Stack()))
				writeErr(w, http.StatusInternalServerError, "internal error", "internal")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
