package log

import (
	"net/http"
	"time"
)

type loggingHandler struct {
	next   http.Handler
	logger Logger
}

// NewLoggingHandler wraps an http.Handler with per-request logging.
func NewLoggingHandler(next http.Handler, logger Logger) http.Handler {
	return &loggingHandler{next: next, logger: logger}
}

func (h *loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.next.ServeHTTP(recorder, r)
	h.logger.Info("request served",
		"method", r.Method,
		"path", r.URL.Path,
		"status", recorder.status,
		"elapsed", time.Since(start))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
