package view

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/DukeRupert/trainerdesk/internal/domain"
	"github.com/DukeRupert/trainerdesk/internal/metrics"
	"github.com/DukeRupert/trainerdesk/internal/reconcile"
	"github.com/DukeRupert/trainerdesk/internal/search"
)

const (
	msgTrainingsFetchFailed = "Failed to load training sessions"
	msgTrainingDeleted      = "Training session deleted successfully"
	msgTrainingDeleteFailed = "Failed to delete training session"
	msgTrainingAdded        = "Training session added successfully"
	msgTrainingAddFailed    = "Failed to add training session"
	msgPickerFetchFailed    = "Failed to fetch customers"
)

// TrainingDeleteWarning is the confirm-delete text for trainings.
const TrainingDeleteWarning = "Are you sure you want to delete this training session?"

// TrainingList is the controller of the training view.
type TrainingList struct {
	controller
	svc TrainingService
	loc *time.Location

	items []domain.Training
	term  string

	entity Dialog
	form   map[string]string
	picker []domain.Customer

	confirm  Dialog
	deleting *domain.Training
}

// TrainingView is a render-ready copy of the training view state.
type TrainingView struct {
	// Items is the filtered list ordered by date, newest first.
	Items    []domain.Training
	Total    int
	Loading  bool
	Search   string
	Location *time.Location

	Entity Dialog
	Form   map[string]string
	// Customers are the choices offered by the create dialog.
	Customers []domain.Customer

	Confirm  Dialog
	Deleting *domain.Training
}

// NewTrainingList creates an unmounted training view.
func NewTrainingList(svc TrainingService, opts Options) *TrainingList {
	opts = opts.withDefaults()
	l := &TrainingList{svc: svc, loc: opts.Location}
	l.init(opts, "trainings")
	return l
}

// Mount starts the initial fetch. It runs once per controller; the returned
// channel is closed when the fetch has settled.
func (l *TrainingList) Mount(ctx context.Context) <-chan struct{} {
	return l.mount(ctx, l.load)
}

// Wait blocks until the initial fetch has settled or ctx is done.
func (l *TrainingList) Wait(ctx context.Context) error {
	return l.wait(ctx)
}

// Unmount discards the view.
func (l *TrainingList) Unmount() {
	l.unmount()
}

func (l *TrainingList) load(ctx context.Context, gen uint64) {
	defer l.settle()

	items, err := l.svc.ListTrainings(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.currentLocked(gen) {
		return
	}
	if err != nil {
		l.logFailure("error fetching trainings", "trainings.list", err)
		l.notify(LevelError, msgTrainingsFetchFailed)
		return
	}
	l.items = items
}

// refetch replaces the stored list with a fresh copy from the server.
func (l *TrainingList) refetch(ctx context.Context) {
	l.mu.Lock()
	if !l.liveLocked() {
		l.mu.Unlock()
		return
	}
	gen := l.beginLocked()
	l.mu.Unlock()

	l.load(ctx, gen)
}

// SetSearch sets the filter term.
func (l *TrainingList) SetSearch(term string) {
	l.mu.Lock()
	l.term = term
	l.mu.Unlock()
}

// Snapshot returns the current state with the search filter applied and the
// rows ordered by date descending. The stored order is not changed.
func (l *TrainingList) Snapshot() TrainingView {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := search.Trainings(l.items, l.term)
	sortByDateDesc(items, l.loc)

	return TrainingView{
		Items:     items,
		Total:     len(l.items),
		Loading:   l.loadingLocked(),
		Search:    l.term,
		Location:  l.loc,
		Entity:    l.entity,
		Form:      l.form,
		Customers: l.picker,
		Confirm:   l.confirm,
		Deleting:  l.deleting,
	}
}

// sortByDateDesc orders trainings newest first. Unparsable dates go last.
func sortByDateDesc(items []domain.Training, loc *time.Location) {
	slices.SortStableFunc(items, func(a, b domain.Training) int {
		ta, errA := a.Time(loc)
		tb, errB := b.Time(loc)
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		return cmp.Compare(tb.UnixNano(), ta.UnixNano())
	})
}

// OpenCreate loads the customer picker and opens the create dialog. When the
// customers cannot be loaded the dialog opens with the error shown.
func (l *TrainingList) OpenCreate(ctx context.Context) error {
	const op = "trainings.open_create"

	customers, err := l.svc.ListCustomers(context.WithoutCancel(ctx))

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.liveLocked() {
		return err
	}
	l.form = nil
	l.entity.Open()
	if err != nil {
		l.picker = nil
		l.logFailure("error fetching customers", op, err)
		l.notify(LevelError, msgPickerFetchFailed)
		l.entity.Fail(err)
		return err
	}
	l.picker = customers
	return nil
}

// CloseDialog cancels the create dialog.
func (l *TrainingList) CloseDialog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entity.Close()
	l.form = nil
	l.picker = nil
}

// Save submits the create dialog. Dates without an offset are read in the
// view's location.
func (l *TrainingList) Save(ctx context.Context, fields map[string]string) error {
	const op = "trainings.create"

	l.mu.Lock()
	if !l.entity.IsOpen() {
		l.mu.Unlock()
		return domain.Conflict(op, "training dialog is not open")
	}
	picker := l.picker
	l.mu.Unlock()

	in, err := domain.TrainingInputFromFields(fields, l.loc)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		l.mu.Lock()
		l.form = fields
		l.entity.Fail(err)
		l.mu.Unlock()
		return err
	}

	created, err := l.svc.CreateTraining(context.WithoutCancel(ctx), in)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.liveLocked() {
		return err
	}
	if err != nil {
		metrics.MutationFailed("training", "create")
		l.logFailure("error creating training", op, err)
		l.notify(LevelError, msgTrainingAddFailed)
		l.form = fields
		l.entity.Fail(err)
		return err
	}

	t := *created
	if t.Customer == nil {
		t.Customer = pick(picker, in.Customer)
	}
	metrics.MutationSucceeded("training", "create")
	l.items = reconcile.Append(l.items, t)
	l.entity.Close()
	l.form = nil
	l.picker = nil
	l.notify(LevelSuccess, msgTrainingAdded)
	return nil
}

// pick returns a copy of the customer with the given locator, or nil.
func pick(customers []domain.Customer, locator domain.CustomerLocator) *domain.Customer {
	for _, c := range customers {
		if c.Locator() == locator {
			found := c
			return &found
		}
	}
	return nil
}

// OpenDelete opens the confirm-delete dialog for the training with id.
func (l *TrainingList) OpenDelete(id domain.TrainingID) error {
	const op = "trainings.open_delete"

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.items {
		if t.ID == id {
			found := t
			l.deleting = &found
			l.confirm.Open()
			return nil
		}
	}
	return domain.NotFound(op, "training", id.String())
}

// CancelDelete closes the confirm-delete dialog.
func (l *TrainingList) CancelDelete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirm.Close()
	l.deleting = nil
}

// ConfirmDelete deletes the selected training and then re-fetches the whole
// list instead of patching it.
func (l *TrainingList) ConfirmDelete(ctx context.Context) error {
	const op = "trainings.delete"

	l.mu.Lock()
	if !l.confirm.IsOpen() || l.deleting == nil {
		l.mu.Unlock()
		return domain.Conflict(op, "no training selected for deletion")
	}
	id := l.deleting.ID
	l.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	if err := l.svc.DeleteTraining(ctx, id); err != nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.liveLocked() {
			return err
		}
		metrics.MutationFailed("training", "delete")
		l.logFailure("error deleting training", op, err)
		l.notify(LevelError, msgTrainingDeleteFailed)
		l.confirm.Fail(err)
		return err
	}

	metrics.MutationSucceeded("training", "delete")
	l.refetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.liveLocked() {
		return nil
	}
	l.confirm.Close()
	l.deleting = nil
	l.notify(LevelSuccess, msgTrainingDeleted)
	return nil
}
