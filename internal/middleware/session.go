package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/trainerdesk/internal/session"
	"github.com/DukeRupert/trainerdesk/internal/view"
)

// =============================================================================
// Context Keys
// =============================================================================

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// workspaceContextKey is the key for storing the session workspace in context.
	workspaceContextKey contextKey = "workspace"
)

// GetWorkspace retrieves the session workspace from the request context.
// Returns nil if the request did not pass through WorkspaceMiddleware.
func GetWorkspace(ctx context.Context) *view.Workspace {
	ws, ok := ctx.Value(workspaceContextKey).(*view.Workspace)
	if !ok {
		return nil
	}
	return ws
}

// WithWorkspace returns a copy of ctx carrying ws.
func WithWorkspace(ctx context.Context, ws *view.Workspace) context.Context {
	return context.WithValue(ctx, workspaceContextKey, ws)
}

// =============================================================================
// Workspace Middleware
// =============================================================================

// WorkspaceMiddleware attaches the browser session's workspace to every
// request, creating a session on first contact.
type WorkspaceMiddleware struct {
	store    *session.Store
	logger   *slog.Logger
	isSecure bool
}

// NewWorkspaceMiddleware creates a new workspace middleware.
func NewWorkspaceMiddleware(store *session.Store, logger *slog.Logger, isSecure bool) *WorkspaceMiddleware {
	return &WorkspaceMiddleware{
		store:    store,
		logger:   logger,
		isSecure: isSecure,
	}
}

// Handler resolves the session cookie and stores the workspace in context.
func (m *WorkspaceMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws := m.store.Resolve(w, r, m.isSecure)
		next.ServeHTTP(w, r.WithContext(WithWorkspace(r.Context(), ws)))
	})
}

// =============================================================================
// Helpers
// =============================================================================

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// isAPIRequest determines if the request expects a JSON response.
// htmx requests always want HTML fragments.
func isAPIRequest(r *http.Request) bool {
	if IsHTMX(r) {
		return false
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw.Handler, workspaceMw.Handler)
//	mux.Handle("GET /customers", stack(customersHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Ensure middleware functions have correct signature
var (
	_ func(http.Handler) http.Handler = (&WorkspaceMiddleware{}).Handler
	_ func(http.Handler) http.Handler = (&RequestLoggingMiddleware{}).Handler
	_ func(http.Handler) http.Handler = (&SecurityHeadersMiddleware{}).Handler
	_ func(http.Handler) http.Handler = (&MetricsAuthMiddleware{}).Handler
	_ func(http.Handler) http.Handler = (&MutationLimiter{}).Handler
)
