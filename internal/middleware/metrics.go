package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// MetricsAuthMiddleware guards /metrics with HTTP basic authentication.
type MetricsAuthMiddleware struct {
	username string
	password string
	logger   *slog.Logger
}

// NewMetricsAuthMiddleware creates a new metrics auth middleware.
// If both username and password are empty, authentication is disabled.
func NewMetricsAuthMiddleware(username, password string, logger *slog.Logger) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{
		username: username,
		password: password,
		logger:   logger,
	}
}

// Enabled reports whether credentials are required.
func (m *MetricsAuthMiddleware) Enabled() bool {
	return m.username != "" || m.password != ""
}

// Handler returns middleware that requires basic authentication.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(m.username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(m.password)) == 1
		if !ok || !userMatch || !passMatch {
			if m.logger != nil {
				m.logger.Warn("metrics auth failed", "ip", getClientIP(r))
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="trainerdesk metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
