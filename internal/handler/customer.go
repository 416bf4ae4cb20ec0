package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/DukeRupert/trainerdesk/internal/domain"
	"github.com/DukeRupert/trainerdesk/internal/view"
)

var customerFieldNames = []string{"firstname", "lastname", "email", "phone", "streetaddress", "postcode", "city"}

// =============================================================================
// Template Data Types
// =============================================================================

// CustomerRow is a customer formatted for the table.
type CustomerRow struct {
	Key      string
	Name     string
	Email    string
	Phone    string
	Street   string
	Postcode string
	City     string
	Editable bool
}

// CustomersData is rendered by the customers page and the customer_view
// partial.
type CustomersData struct {
	PageMeta
	Query   TableQuery
	Loading bool
	Search  string
	Total   int
	Page    view.Page[CustomerRow]

	Entity view.Dialog
	IsEdit bool
	Form   map[string]string

	Confirm       view.Dialog
	Deleting      *CustomerRow
	DeleteWarning string
}

func customerRow(c domain.Customer) CustomerRow {
	return CustomerRow{
		Key:      c.Key(),
		Name:     c.FullName(),
		Email:    c.Email,
		Phone:    c.Phone,
		Street:   c.StreetAddress,
		Postcode: c.Postcode,
		City:     c.City,
		Editable: c.HasLocator(),
	}
}

func customersData(r *http.Request, q TableQuery, v view.CustomerView) CustomersData {
	rows := make([]CustomerRow, len(v.Items))
	for i, c := range v.Items {
		rows[i] = customerRow(c)
	}

	data := CustomersData{
		PageMeta:      pageMeta(r),
		Query:         q,
		Loading:       v.Loading,
		Search:        v.Search,
		Total:         v.Total,
		Page:          view.Paginate(rows, q.Page, q.Size),
		Entity:        v.Entity,
		IsEdit:        v.IsEditing(),
		Form:          v.Form,
		Confirm:       v.Confirm,
		DeleteWarning: view.CustomerDeleteWarning,
	}
	if data.Form == nil {
		data.Form = map[string]string{}
	}
	if v.Deleting != nil {
		row := customerRow(*v.Deleting)
		data.Deleting = &row
	}
	return data
}

// =============================================================================
// Handler Configuration
// =============================================================================

// CustomerHandler serves the customer view.
type CustomerHandler struct {
	renderer *Renderer
	logger   *slog.Logger
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(renderer *Renderer, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{
		renderer: renderer,
		logger:   logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all customer routes with the provided mux.
//
// Routes:
//   - GET  /customers               -> Index (navigating here re-fetches)
//   - GET  /customers/table         -> Table (search, paging, loading poll)
//   - GET  /customers/new           -> New (open empty dialog)
//   - GET  /customers/edit?href=    -> Edit (open prefilled dialog)
//   - POST /customers/save          -> Save (create or update)
//   - POST /customers/dialog/close  -> CloseDialog
//   - GET  /customers/delete?href=  -> ConfirmDelete dialog
//   - POST /customers/delete        -> Delete
//   - POST /customers/delete/cancel -> CancelDelete
func (h *CustomerHandler) RegisterRoutes(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	mux.Handle("GET /customers", wrap(http.HandlerFunc(h.Index)))
	mux.Handle("GET /customers/table", wrap(http.HandlerFunc(h.Table)))
	mux.Handle("GET /customers/new", wrap(http.HandlerFunc(h.New)))
	mux.Handle("GET /customers/edit", wrap(http.HandlerFunc(h.Edit)))
	mux.Handle("POST /customers/save", wrap(http.HandlerFunc(h.Save)))
	mux.Handle("POST /customers/dialog/close", wrap(http.HandlerFunc(h.CloseDialog)))
	mux.Handle("GET /customers/delete", wrap(http.HandlerFunc(h.OpenDelete)))
	mux.Handle("POST /customers/delete", wrap(http.HandlerFunc(h.Delete)))
	mux.Handle("POST /customers/delete/cancel", wrap(http.HandlerFunc(h.CancelDelete)))
}

// =============================================================================
// Handlers
// =============================================================================

// Index mounts a fresh customer view and renders the page. The fetch runs in
// the background; the page polls the table until it completes.
func (h *CustomerHandler) Index(w http.ResponseWriter, r *http.Request) {
	ws := workspace(w, r, h.logger)
	if ws == nil {
		return
	}

	q, err := parseTableQuery(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	// Every page load is a new tab view.
	q.View = uuid.NewString()
	list := ws.ActivateCustomers(r.Context(), q.View)
	if q.HasSearch {
		list.SetSearch(q.Search)
	}

	h.renderer.RenderHTTP(w, "customers", customersData(r, q, list.Snapshot()))
}

// Table re-renders the view region, applying the search term when present.
func (h *CustomerHandler) Table(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.CustomerList) error { return nil })
}

// New opens the empty customer dialog.
func (h *CustomerHandler) New(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.CustomerList) error {
		list.OpenCreate()
		return nil
	})
}

// Edit opens the dialog prefilled with the customer addressed by href.
func (h *CustomerHandler) Edit(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.CustomerList) error {
		return list.OpenEdit(r.URL.Query().Get("href"))
	})
}

// Save submits the customer dialog.
func (h *CustomerHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.CustomerList) error {
		err := list.Save(r.Context(), formFields(r, customerFieldNames...))
		if isConflict(err) {
			return err
		}
		// Any other failure is shown by the dialog.
		return nil
	})
}

// CloseDialog cancels the customer dialog.
func (h *CustomerHandler) CloseDialog(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.CustomerList) error {
		list.CloseDialog()
		return nil
	})
}

// OpenDelete opens the confirm-delete dialog for the customer addressed by
// href.
func (h *CustomerHandler) OpenDelete(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.CustomerList) error {
		return list.OpenDelete(r.URL.Query().Get("href"))
	})
}

// Delete confirms the pending deletion.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.CustomerList) error {
		if err := list.ConfirmDelete(r.Context()); isConflict(err) {
			return err
		}
		return nil
	})
}

// CancelDelete closes the confirm-delete dialog.
func (h *CustomerHandler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.CustomerList) error {
		list.CancelDelete()
		return nil
	})
}

// update runs fn against the active customer view and renders the view
// region. An error from fn is reported without touching the page.
func (h *CustomerHandler) update(w http.ResponseWriter, r *http.Request, fn func(*view.CustomerList) error) {
	ws := workspace(w, r, h.logger)
	if ws == nil {
		return
	}

	q, err := parseTableQuery(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	list := ws.Customers(r.Context(), q.View)
	if q.HasSearch {
		list.SetSearch(q.Search)
	}

	if err := fn(list); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.renderer.RenderPartial(w, "customer_view", customersData(r, q, list.Snapshot()), renderToasts(r.Context(), ws, q.View))
}
