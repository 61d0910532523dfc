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
)

// ServiceName identifies this service in logs and traces.
const ServiceName = "backend-apotek"

// NewLogger configures a zerolog logger using the provided format and level.
func NewLogger(format, level string) zerolog.Logger {
	return newLogger(os.Stdout, format, level)
}

func newLogger(w io.Writer, format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	out := w
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", ServiceName).Logger()
}

// RequestLogger records structured HTTP request logs enriched with tracing metadata.
type RequestLogger struct {
	Logger zerolog.Logger
}

// Middleware implements chi middleware for structured request logs. It must
// wrap the auth middleware so the staff id set there reaches the log line.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, facts := withRequestFacts(r.Context())
		recorder := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(ctx))

		duration := time.Since(start)
		route := RoutePatternFromContext(ctx)
		if route == "" {
			route = r.URL.Path
		}
		spanCtx := trace.SpanContextFromContext(ctx)
		traceID := ""
		if spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}

		evt := l.Logger.Info()
		if recorder.Status() >= http.StatusInternalServerError {
			evt = l.Logger.Error()
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", route).
			Int("status", recorder.Status()).
			Int64("duration_ms", duration.Milliseconds()).
			Int64("bytes", recorder.BytesWritten()).
			Str("request_id", middleware.GetReqID(ctx)).
			Str("trace_id", traceID)
		if staff := strings.TrimSpace(facts.staffID); staff != "" {
			evt = evt.Str("staff_id", staff)
		}
		if ip := strings.TrimSpace(r.RemoteAddr); ip != "" {
			evt = evt.Str("remote_addr", ip)
		}
		evt.Msg("http_request")
	})
}
