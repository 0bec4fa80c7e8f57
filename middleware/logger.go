package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HeaderDashboardSession carries the dashboard session id between requests.
const HeaderDashboardSession = "X-Dashboard-Session"

// RequestLogger logs one line per completed request. 4xx log at warn, 5xx at error.
func RequestLogger(l zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := zerolog.InfoLevel
			switch {
			case ww.Status() >= 500:
				level = zerolog.ErrorLevel
			case ww.Status() >= 400:
				level = zerolog.WarnLevel
			}

			evt := l.WithLevel(level).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Str("request_id", GetRequestID(r.Context())).
				Str("ip", r.RemoteAddr)
			if uid := GetUserID(r.Context()); uid != "" {
				evt = evt.Str("user_id", uid)
			}
			if sid := ww.Header().Get(HeaderDashboardSession); sid != "" {
				evt = evt.Str("session_id", sid)
			}
			evt.Msg("http_request")
		})
	}
}
