package obs

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-pasar/internal/common"
)

// NewLogger configures a zerolog logger using the provided format and level.
func NewLogger(format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	if strings.ToLower(strings.TrimSpace(format)) == "console" || strings.ToLower(strings.TrimSpace(format)) == "text" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// RequestLogger records structured HTTP request logs enriched with tracing metadata.
type RequestLogger struct {
	Logger zerolog.Logger
}

// Middleware implements chi middleware for structured request logs.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		route := RoutePatternFromContext(r.Context())
		if route == "" {
			route = r.URL.Path
		}
		spanCtx := trace.SpanContextFromContext(r.Context())
		traceID := ""
		if spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
		userID, _ := common.UserID(r.Context())

		l.Logger.Info().
			Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", recorder.Status()).
			Int64("duration_ms", duration.Milliseconds()).
			Int64("bytes", recorder.BytesWritten()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("trace_id", traceID).
			Str("user_id", userID).
			Msg("http request")
	})
}
