package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/nandinigandhi21/EventHive-TheCoders/middleware"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var Log zerolog.Logger

const service = "dashboard-bff"

type sessionKey struct{}

// WithSession tags ctx with a dashboard session id for Ctx loggers.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the dashboard session id set by WithSession.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Init configures the global logger from LOG_LEVEL and LOG_FORMAT.
func Init(level, format string) {
	InitWithWriter(os.Stdout, level, format)
}

func InitWithWriter(w io.Writer, logLevel, format string) {
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if format == "" {
		format = "console"
	}

	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(out).With().Timestamp().Str("service", service).Logger().Level(level)

	Log = l
	zlog.Logger = l
}

// Ctx returns Log tagged with whatever request, caller and dashboard session
// ids ctx carries.
func Ctx(ctx context.Context) *zerolog.Logger {
	reqID := middleware.GetRequestID(ctx)
	p, authed := middleware.GetPrincipal(ctx)
	sessID := SessionID(ctx)
	if reqID == "" && !authed && sessID == "" {
		return &Log
	}

	lc := Log.With()
	if reqID != "" {
		lc = lc.Str("request_id", reqID)
	}
	if authed {
		lc = lc.Str("user_id", p.UserID)
	}
	if sessID != "" {
		lc = lc.Str("session_id", sessID)
	}
	l := lc.Logger()
	return &l
}
