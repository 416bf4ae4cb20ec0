package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/DukeRupert/trainerdesk/internal/domain"
	"github.com/DukeRupert/trainerdesk/internal/view"
)

var trainingFieldNames = []string{"date", "duration", "activity", "customer"}

// =============================================================================
// Template Data Types
// =============================================================================

// TrainingRow is a training formatted for the table.
type TrainingRow struct {
	ID       string
	Date     string
	Duration int
	Activity string
	Customer string
	// Orphan is set when the backing customer no longer exists.
	Orphan bool
}

// CustomerOption is one entry of the customer picker.
type CustomerOption struct {
	Locator string
	Name    string
}

// TrainingsData is rendered by the trainings page and the training_view
// partial.
type TrainingsData struct {
	PageMeta
	Query   TableQuery
	Loading bool
	Search  string
	Total   int
	Page    view.Page[TrainingRow]

	Entity    view.Dialog
	Form      map[string]string
	Customers []CustomerOption

	Confirm       view.Dialog
	Deleting      *TrainingRow
	DeleteWarning string
}

func trainingRow(v view.TrainingView, t domain.Training) TrainingRow {
	return TrainingRow{
		ID:       t.ID.String(),
		Date:     t.FormatDate(v.Location),
		Duration: t.Duration,
		Activity: t.Activity,
		Customer: t.CustomerName(),
		Orphan:   t.Customer == nil,
	}
}

func trainingsData(r *http.Request, q TableQuery, v view.TrainingView) TrainingsData {
	rows := make([]TrainingRow, len(v.Items))
	for i, t := range v.Items {
		rows[i] = trainingRow(v, t)
	}

	options := make([]CustomerOption, 0, len(v.Customers))
	for _, c := range v.Customers {
		if !c.HasLocator() {
			continue
		}
		options = append(options, CustomerOption{Locator: c.Locator().String(), Name: c.FullName()})
	}

	data := TrainingsData{
		PageMeta:      pageMeta(r),
		Query:         q,
		Loading:       v.Loading,
		Search:        v.Search,
		Total:         v.Total,
		Page:          view.Paginate(rows, q.Page, q.Size),
		Entity:        v.Entity,
		Form:          v.Form,
		Customers:     options,
		Confirm:       v.Confirm,
		DeleteWarning: view.TrainingDeleteWarning,
	}
	if data.Form == nil {
		data.Form = map[string]string{}
	}
	if v.Deleting != nil {
		row := trainingRow(v, *v.Deleting)
		data.Deleting = &row
	}
	return data
}

// =============================================================================
// Handler Configuration
// =============================================================================

// TrainingHandler serves the training view.
type TrainingHandler struct {
	renderer *Renderer
	logger   *slog.Logger
}

// NewTrainingHandler creates a new TrainingHandler.
func NewTrainingHandler(renderer *Renderer, logger *slog.Logger) *TrainingHandler {
	return &TrainingHandler{
		renderer: renderer,
		logger:   logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all training routes with the provided mux.
//
// Routes:
//   - GET  /trainings               -> Index (navigating here re-fetches)
//   - GET  /trainings/table         -> Table (search, paging, loading poll)
//   - GET  /trainings/new           -> New (load customers, open dialog)
//   - POST /trainings/save          -> Save (create)
//   - POST /trainings/dialog/close  -> CloseDialog
//   - GET  /trainings/{id}/delete   -> ConfirmDelete dialog
//   - POST /trainings/delete        -> Delete
//   - POST /trainings/delete/cancel -> CancelDelete
func (h *TrainingHandler) RegisterRoutes(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	mux.Handle("GET /trainings", wrap(http.HandlerFunc(h.Index)))
	mux.Handle("GET /trainings/table", wrap(http.HandlerFunc(h.Table)))
	mux.Handle("GET /trainings/new", wrap(http.HandlerFunc(h.New)))
	mux.Handle("POST /trainings/save", wrap(http.HandlerFunc(h.Save)))
	mux.Handle("POST /trainings/dialog/close", wrap(http.HandlerFunc(h.CloseDialog)))
	mux.Handle("GET /trainings/{id}/delete", wrap(http.HandlerFunc(h.OpenDelete)))
	mux.Handle("POST /trainings/delete", wrap(http.HandlerFunc(h.Delete)))
	mux.Handle("POST /trainings/delete/cancel", wrap(http.HandlerFunc(h.CancelDelete)))
}

// =============================================================================
// Handlers
// =============================================================================

// Index mounts a fresh training view and renders the page.
func (h *TrainingHandler) Index(w http.ResponseWriter, r *http.Request) {
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
	list := ws.ActivateTrainings(r.Context(), q.View)
	if q.HasSearch {
		list.SetSearch(q.Search)
	}

	h.renderer.RenderHTTP(w, "trainings", trainingsData(r, q, list.Snapshot()))
}

// Table re-renders the view region, applying the search term when present.
func (h *TrainingHandler) Table(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.TrainingList) error { return nil })
}

// New loads the customer picker and opens the create dialog. A failed load
// is shown in the dialog.
func (h *TrainingHandler) New(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.TrainingList) error {
		_ = list.OpenCreate(r.Context())
		return nil
	})
}

// Save submits the create dialog.
func (h *TrainingHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.TrainingList) error {
		if err := list.Save(r.Context(), formFields(r, trainingFieldNames...)); isConflict(err) {
			return err
		}
		return nil
	})
}

// CloseDialog cancels the create dialog.
func (h *TrainingHandler) CloseDialog(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.TrainingList) error {
		list.CloseDialog()
		return nil
	})
}

// OpenDelete opens the confirm-delete dialog for the training {id}.
func (h *TrainingHandler) OpenDelete(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.TrainingList) error {
		id, err := domain.ParseTrainingID(r.PathValue("id"))
		if err != nil {
			return err
		}
		return list.OpenDelete(id)
	})
}

// Delete confirms the pending deletion.
func (h *TrainingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.TrainingList) error {
		if err := list.ConfirmDelete(r.Context()); isConflict(err) {
			return err
		}
		return nil
	})
}

// CancelDelete closes the confirm-delete dialog.
func (h *TrainingHandler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(list *view.TrainingList) error {
		list.CancelDelete()
		return nil
	})
}

// update runs fn against the active training view and renders the view
// region.
func (h *TrainingHandler) update(w http.ResponseWriter, r *http.Request, fn func(*view.TrainingList) error) {
	ws := workspace(w, r, h.logger)
	if ws == nil {
		return
	}

	q, err := parseTableQuery(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	list := ws.Trainings(r.Context(), q.View)
	if q.HasSearch {
		list.SetSearch(q.Search)
	}

	if err := fn(list); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.renderer.RenderPartial(w, "training_view", trainingsData(r, q, list.Snapshot()), renderToasts(r.Context(), ws, q.View))
}
