// Package handler contains the HTTP handlers of the trainer admin.
//
// Every handler works on the view of the calling tab inside the workspace of
// the caller's browser session: it drives the view controller, then renders
// the controller's snapshot. htmx requests get the view region back, with
// queued notifications appended as out-of-band toasts.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/trainerdesk/internal/csrf"
	"github.com/DukeRupert/trainerdesk/internal/domain"
	"github.com/DukeRupert/trainerdesk/internal/middleware"
	"github.com/DukeRupert/trainerdesk/internal/view"
)

// TableQuery is the presentation state a table request carries: the search
// term, the page the user is on and the id of the tab's view.
type TableQuery struct {
	View      string
	Search    string
	HasSearch bool
	Page      int
	Size      int
}

// parseTableQuery reads view, q, page and size from the query string or form
// body. A request without a view id addresses the session's default view.
func parseTableQuery(r *http.Request) (TableQuery, error) {
	if err := r.ParseForm(); err != nil {
		return TableQuery{}, domain.Invalid("handler.parse_form", "malformed request form")
	}

	q := TableQuery{Page: 1, Size: view.DefaultPageSize}
	if id := r.Form.Get("view"); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return TableQuery{}, domain.Invalid("handler.parse_form", "invalid view id")
		}
		q.View = id
	}
	if r.Form.Has("q") {
		q.HasSearch = true
		q.Search = r.Form.Get("q")
	}
	if n, err := strconv.Atoi(r.Form.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(r.Form.Get("size")); err == nil {
		q.Size = view.ValidPageSize(n)
	}
	return q, nil
}

// formFields copies the named fields from the parsed form.
func formFields(r *http.Request, names ...string) map[string]string {
	fields := make(map[string]string, len(names))
	for _, name := range names {
		fields[name] = strings.TrimSpace(r.PostForm.Get(name))
	}
	return fields
}

// PageMeta is shared by every full page.
type PageMeta struct {
	CurrentPath string
	CSRFToken   string
	PageSizes   []int
}

func pageMeta(r *http.Request) PageMeta {
	return PageMeta{
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.Token(r.Context()),
		PageSizes:   view.PageSizes,
	}
}

// workspace returns the session workspace, or writes a 500 when the request
// did not pass through the workspace middleware.
func workspace(w http.ResponseWriter, r *http.Request, logger *slog.Logger) *view.Workspace {
	ws := middleware.GetWorkspace(r.Context())
	if ws == nil {
		ErrorResponse(w, r, logger, domain.Internal(nil, "handler.workspace", "request has no workspace"))
	}
	return ws
}

// isConflict reports errors that mean the request does not match the
// dialog state, as opposed to failures the view already shows.
func isConflict(err error) bool {
	return domain.ErrorCode(err) == domain.ECONFLICT
}
