package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
)

// Observer records finished requests, typically into metrics.
type Observer interface {
	ObserveRequest(route, method string, status int, d time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs every request and reports it to obs when non-nil. Bodies
// are never logged since they carry passwords and tokens.
func instrument(next http.Handler, l logging.Logger, obs Observer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		d := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if obs != nil {
			obs.ObserveRequest(route, r.Method, rec.status, d)
		}
		l.Info(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", d)
	})
}
