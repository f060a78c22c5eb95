package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StatusRecorder wraps ResponseWriter to capture status code and bytes written.
type StatusRecorder struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
}

// NewStatusRecorder constructs a status recorder with default 200 status.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader stores the status code before delegating.
func (sr *StatusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Write records the number of bytes written.
func (sr *StatusRecorder) Write(p []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(p)
	sr.bytesWritten += int64(n)
	return n, err
}

// Status returns the response status code.
func (sr *StatusRecorder) Status() int {
	return sr.status
}

// BytesWritten returns the number of bytes written to the response.
func (sr *StatusRecorder) BytesWritten() int64 {
	return sr.bytesWritten
}

// RoutePatternFromContext returns the matched chi route pattern when available.
func RoutePatternFromContext(ctx context.Context) string {
	routeCtx := chi.RouteContext(ctx)
	if routeCtx == nil {
		return ""
	}
	return routeCtx.RoutePattern()
}
