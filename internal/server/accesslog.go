package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ayush/skillpath/backend/internal/logging"
)

// accessLog is a chi LogFormatter that writes one structured line per
// request through the service logger.
type accessLog struct {
	log logging.Logger
}

func (a accessLog) NewLogEntry(r *http.Request) chimw.LogEntry {
	return &accessEntry{
		ctx: r.Context(),
		log: a.log.With(
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		),
	}
}

type accessEntry struct {
	ctx context.Context
	log logging.Logger
}

func (e *accessEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	args := []any{"status", status, "bytes", bytes, "duration_ms", elapsed.Milliseconds()}
	if status >= http.StatusInternalServerError {
		e.log.Error(e.ctx, "request", args...)
		return
	}
	e.log.Info(e.ctx, "request", args...)
}

// Panic is called by chi's Recoverer in place of its plain-text stack dump.
func (e *accessEntry) Panic(v interface{}, stack []byte) {
	e.log.Error(e.ctx, "panic", "panic", fmt.Sprint(v), "stack", string(stack))
}
