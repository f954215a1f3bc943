package metrics

import (
	"net/http"
	"time"
)

// statusWriter wraps http.ResponseWriter so middleware can read the
// status code after the handler has run. A handler that never calls
// WriteHeader implicitly responds 200.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments a handler with the registry's request
// counter, duration histogram, and in-flight gauge.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			started := time.Now()
			next.ServeHTTP(sw, r)

			reg.RecordRequest(r.Method, r.URL.Path, sw.status, time.Since(started).Seconds())
		})
	}
}
