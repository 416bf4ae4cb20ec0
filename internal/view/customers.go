package view

import (
	"context"

	"github.com/DukeRupert/trainerdesk/internal/domain"
	"github.com/DukeRupert/trainerdesk/internal/metrics"
	"github.com/DukeRupert/trainerdesk/internal/reconcile"
	"github.com/DukeRupert/trainerdesk/internal/search"
)

const (
	msgCustomersFetchFailed = "Failed to fetch customers"
	msgCustomerAddFailed    = "Failed to add customer"
	msgCustomerEditFailed   = "Failed to edit customer"
	msgCustomerDeleteFailed = "Failed to delete customer"
)

// CustomerDeleteWarning is the confirm-delete text. The server removes the
// customer's trainings along with it.
const CustomerDeleteWarning = "Are you sure you want to delete this customer? This will also delete all associated trainings."

func customerKey(c domain.Customer) string { return c.Key() }

// CustomerList is the controller of the customer view.
type CustomerList struct {
	controller
	svc CustomerService

	items []domain.Customer
	term  string

	entity  Dialog
	editing *domain.Customer
	form    map[string]string

	confirm  Dialog
	deleting *domain.Customer
}

// CustomerView is a render-ready copy of the customer view state.
type CustomerView struct {
	// Items is the filtered list in stored order.
	Items   []domain.Customer
	Total   int
	Loading bool
	Search  string

	Entity  Dialog
	Editing *domain.Customer
	Form    map[string]string

	Confirm  Dialog
	Deleting *domain.Customer
}

// IsEditing reports whether the entity dialog edits an existing customer.
func (v CustomerView) IsEditing() bool {
	return v.Editing != nil
}

// NewCustomerList creates an unmounted customer view.
func NewCustomerList(svc CustomerService, opts Options) *CustomerList {
	opts = opts.withDefaults()
	l := &CustomerList{svc: svc}
	l.init(opts, "customers")
	return l
}

// Mount starts the initial fetch. It runs once per controller; the returned
// channel is closed when the fetch has settled.
func (l *CustomerList) Mount(ctx context.Context) <-chan struct{} {
	return l.mount(ctx, l.load)
}

// Wait blocks until the initial fetch has settled or ctx is done.
func (l *CustomerList) Wait(ctx context.Context) error {
	return l.wait(ctx)
}

// Unmount discards the view.
func (l *CustomerList) Unmount() {
	l.unmount()
}

func (l *CustomerList) load(ctx context.Context, gen uint64) {
	defer l.settle()

	items, err := l.svc.ListCustomers(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.currentLocked(gen) {
		return
	}
	if err != nil {
		l.logFailure("error fetching customers", "customers.list", err)
		l.notify(LevelError, msgCustomersFetchFailed)
		return
	}
	l.items = items
}

// SetSearch sets the filter term.
func (l *CustomerList) SetSearch(term string) {
	l.mu.Lock()
	l.term = term
	l.mu.Unlock()
}

// Snapshot returns the current state with the search filter applied.
func (l *CustomerList) Snapshot() CustomerView {
	l.mu.Lock()
	defer l.mu.Unlock()
	return CustomerView{
		Items:    search.Customers(l.items, l.term),
		Total:    len(l.items),
		Loading:  l.loadingLocked(),
		Search:   l.term,
		Entity:   l.entity,
		Editing:  l.editing,
		Form:     l.form,
		Confirm:  l.confirm,
		Deleting: l.deleting,
	}
}

// findLocked returns a copy of the stored customer with the given key.
func (l *CustomerList) findLocked(op, key string) (*domain.Customer, error) {
	for _, c := range l.items {
		if key != "" && c.Key() == key {
			found := c
			return &found, nil
		}
	}
	return nil, domain.NotFound(op, "customer", key)
}

// OpenCreate opens an empty entity dialog.
func (l *CustomerList) OpenCreate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editing = nil
	l.form = nil
	l.entity.Open()
}

// OpenEdit opens the entity dialog prefilled with the customer identified by
// key. Customers without a resource link cannot be edited.
func (l *CustomerList) OpenEdit(key string) error {
	const op = "customers.open_edit"

	l.mu.Lock()
	defer l.mu.Unlock()
	c, err := l.findLocked(op, key)
	if err != nil {
		return err
	}
	if !c.HasLocator() {
		return domain.Invalid(op, "customer has no resource link")
	}
	l.editing = c
	l.form = c.Input().Fields()
	l.entity.Open()
	return nil
}

// CloseDialog cancels the entity dialog.
func (l *CustomerList) CloseDialog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entity.Close()
	l.editing = nil
	l.form = nil
}

// Save submits the entity dialog: create when it was opened empty, update
// otherwise. On success the stored list is patched and the dialog closes; on
// failure the list is untouched and the dialog shows the error. The returned
// error is already reflected in the view state.
func (l *CustomerList) Save(ctx context.Context, fields map[string]string) error {
	l.mu.Lock()
	if !l.entity.IsOpen() {
		l.mu.Unlock()
		return domain.Conflict("customers.save", "customer dialog is not open")
	}
	editing := l.editing
	l.mu.Unlock()

	in := domain.CustomerInputFromFields(fields)
	if err := in.Validate(); err != nil {
		l.mu.Lock()
		l.form = in.Fields()
		l.entity.Fail(err)
		l.mu.Unlock()
		return err
	}

	ctx = context.WithoutCancel(ctx)
	if editing == nil {
		return l.create(ctx, in)
	}
	return l.update(ctx, editing.Locator(), in)
}

func (l *CustomerList) create(ctx context.Context, in domain.CustomerInput) error {
	const op = "customers.create"

	created, err := l.svc.CreateCustomer(ctx, in)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.liveLocked() {
		return err
	}
	if err != nil {
		l.failMutationLocked(&l.entity, op, "create", msgCustomerAddFailed, err)
		l.form = in.Fields()
		return err
	}
	metrics.MutationSucceeded("customer", "create")
	l.items = reconcile.Append(l.items, *created)
	l.entity.Close()
	l.form = nil
	return nil
}

func (l *CustomerList) update(ctx context.Context, locator domain.CustomerLocator, in domain.CustomerInput) error {
	const op = "customers.update"

	updated, err := l.svc.UpdateCustomer(ctx, locator, in)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.liveLocked() {
		return err
	}
	if err != nil {
		l.failMutationLocked(&l.entity, op, "update", msgCustomerEditFailed, err)
		l.form = in.Fields()
		return err
	}
	metrics.MutationSucceeded("customer", "update")
	l.items = reconcile.Replace(l.items, customerKey, *updated)
	l.entity.Close()
	l.editing = nil
	l.form = nil
	return nil
}

// OpenDelete opens the confirm-delete dialog for the customer identified by
// key.
func (l *CustomerList) OpenDelete(key string) error {
	const op = "customers.open_delete"

	l.mu.Lock()
	defer l.mu.Unlock()
	c, err := l.findLocked(op, key)
	if err != nil {
		return err
	}
	if !c.HasLocator() {
		return domain.Invalid(op, "customer has no resource link")
	}
	l.deleting = c
	l.confirm.Open()
	return nil
}

// CancelDelete closes the confirm-delete dialog.
func (l *CustomerList) CancelDelete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirm.Close()
	l.deleting = nil
}

// ConfirmDelete deletes the selected customer and removes it from the stored
// list. A failed delete, including one against a stale link, leaves the list
// unchanged.
func (l *CustomerList) ConfirmDelete(ctx context.Context) error {
	const op = "customers.delete"

	l.mu.Lock()
	if !l.confirm.IsOpen() || l.deleting == nil {
		l.mu.Unlock()
		return domain.Conflict(op, "no customer selected for deletion")
	}
	target := *l.deleting
	l.mu.Unlock()

	err := l.svc.DeleteCustomer(context.WithoutCancel(ctx), target.Locator())

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.liveLocked() {
		return err
	}
	if err != nil {
		l.failMutationLocked(&l.confirm, op, "delete", msgCustomerDeleteFailed, err)
		return err
	}
	metrics.MutationSucceeded("customer", "delete")
	l.items = reconcile.Remove(l.items, customerKey, target.Key())
	l.confirm.Close()
	l.deleting = nil
	return nil
}

// failMutationLocked logs a failed customer mutation and keeps the dialog
// open. Under NotifyParity the failure is only logged: the dialog keeps its
// field marks but shows no message.
func (l *CustomerList) failMutationLocked(d *Dialog, op, action, message string, err error) {
	metrics.MutationFailed("customer", action)
	l.logFailure(message, op, err)
	if l.policy != NotifyAlways {
		d.FailQuietly(err)
		return
	}
	d.Fail(err)
	l.notify(LevelError, message)
}
