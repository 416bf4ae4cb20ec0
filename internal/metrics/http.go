package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// idPattern matches numeric path segments (training ids)
var idPattern = regexp.MustCompile(`/[0-9]+(/|$)`)

// statusRecorder keeps the first status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.wrote {
		sr.status = code
		sr.wrote = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.wrote = true
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// routeLabel maps a request path onto a bounded set of label values.
// Unrouted 404s collapse into "other".
func routeLabel(path string, status int) string {
	switch {
	case strings.HasPrefix(path, "/static/"):
		return "/static/*"
	case status == http.StatusNotFound && !strings.HasPrefix(path, "/customers") && !strings.HasPrefix(path, "/trainings"):
		return "other"
	}
	return idPattern.ReplaceAllString(path, "/{id}$1")
}

// Middleware records HTTP request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip metrics endpoint to avoid recursion
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sr, r)

		route := routeLabel(r.URL.Path, sr.status)
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sr.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		if r.Header.Get("HX-Request") == "true" {
			HTMXRequestsTotal.WithLabelValues(route).Inc()
		}
	})
}

// ObserveRemoteCall records one personal-trainer API call.
func ObserveRemoteCall(op, outcome string, started time.Time) {
	RemoteCallsTotal.WithLabelValues(op, outcome).Inc()
	RemoteCallDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
