package view

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/trainerdesk/internal/domain"
)

const fakeBase = "http://api.test"

// fakeAPI is an in-memory stand-in for the remote API. Gates, when set,
// block the matching calls until closed.
type fakeAPI struct {
	mu        sync.Mutex
	customers []domain.Customer
	trainings []domain.Training
	nextID    int

	listCustomersErr  error
	createCustomerErr error
	updateCustomerErr error
	listTrainingsErr  error
	createTrainingErr error
	deleteTrainingErr error

	listGate   chan struct{}
	mutateGate chan struct{}

	listCustomerCalls int
	listTrainingCalls int
	mutationCalls     int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 100}
}

func fakeCustomer(id int, first, last, email, city string) domain.Customer {
	return domain.Customer{
		ID:            int64(id),
		Firstname:     first,
		Lastname:      last,
		Email:         email,
		Phone:         "040-123",
		StreetAddress: "1 Main St",
		Postcode:      "00100",
		City:          city,
		Links:         domain.Links{"self": {Href: fmt.Sprintf("%s/customers/%d", fakeBase, id)}},
	}
}

func (f *fakeAPI) waitGate(g chan struct{}) {
	if g != nil {
		<-g
	}
}

func (f *fakeAPI) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	f.mu.Lock()
	gate := f.listGate
	f.listCustomerCalls++
	f.mu.Unlock()
	f.waitGate(gate)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listCustomersErr != nil {
		return nil, f.listCustomersErr
	}
	return append([]domain.Customer(nil), f.customers...), nil
}

func (f *fakeAPI) CreateCustomer(ctx context.Context, in domain.CustomerInput) (*domain.Customer, error) {
	f.mu.Lock()
	gate := f.mutateGate
	f.mutationCalls++
	f.mu.Unlock()
	f.waitGate(gate)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createCustomerErr != nil {
		return nil, f.createCustomerErr
	}
	f.nextID++
	c := fakeCustomer(f.nextID, in.Firstname, in.Lastname, in.Email, in.City)
	c.ID = 0
	c.Phone, c.StreetAddress, c.Postcode = in.Phone, in.StreetAddress, in.Postcode
	f.customers = append(f.customers, c)
	return &c, nil
}

func (f *fakeAPI) UpdateCustomer(ctx context.Context, locator domain.CustomerLocator, in domain.CustomerInput) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutationCalls++
	if f.updateCustomerErr != nil {
		return nil, f.updateCustomerErr
	}
	for i, c := range f.customers {
		if c.Locator() == locator {
			c.Firstname, c.Lastname, c.Email = in.Firstname, in.Lastname, in.Email
			c.Phone, c.StreetAddress, c.Postcode, c.City = in.Phone, in.StreetAddress, in.Postcode, in.City
			f.customers[i] = c
			return &c, nil
		}
	}
	return nil, domain.Upstream("customers.update", http.StatusNotFound, "")
}

func (f *fakeAPI) DeleteCustomer(ctx context.Context, locator domain.CustomerLocator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutationCalls++
	for i, c := range f.customers {
		if c.Locator() == locator {
			f.customers = append(f.customers[:i:i], f.customers[i+1:]...)
			return nil
		}
	}
	return domain.Upstream("customers.delete", http.StatusNotFound, "")
}

func (f *fakeAPI) ListTrainings(ctx context.Context) ([]domain.Training, error) {
	f.mu.Lock()
	gate := f.listGate
	f.listTrainingCalls++
	f.mu.Unlock()
	f.waitGate(gate)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listTrainingsErr != nil {
		return nil, f.listTrainingsErr
	}
	return append([]domain.Training(nil), f.trainings...), nil
}

func (f *fakeAPI) CreateTraining(ctx context.Context, in domain.TrainingInput) (*domain.Training, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutationCalls++
	if f.createTrainingErr != nil {
		return nil, f.createTrainingErr
	}
	f.nextID++
	t := domain.Training{
		Date:     in.Date.UTC().Format("2006-01-02T15:04:05.000Z"),
		Duration: in.Duration,
		Activity: in.Activity,
		Links:    domain.Links{"self": {Href: fmt.Sprintf("%s/trainings/%d", fakeBase, f.nextID)}},
	}
	t.ResolveID()
	f.trainings = append(f.trainings, t)
	return &t, nil
}

func (f *fakeAPI) DeleteTraining(ctx context.Context, id domain.TrainingID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutationCalls++
	if f.deleteTrainingErr != nil {
		return f.deleteTrainingErr
	}
	for i, t := range f.trainings {
		if t.ID == id {
			f.trainings = append(f.trainings[:i:i], f.trainings[i+1:]...)
			return nil
		}
	}
	return domain.Upstream("trainings.delete", http.StatusNotFound, "")
}

func (f *fakeAPI) calls() (listCustomers, listTrainings, mutations int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCustomerCalls, f.listTrainingCalls, f.mutationCalls
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func settled(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not settle")
	}
}

func customerFields(first, last, email string) map[string]string {
	return map[string]string{
		"firstname":     first,
		"lastname":      last,
		"email":         email,
		"phone":         "040-123",
		"streetaddress": "1 Main St",
		"postcode":      "00100",
		"city":          "London",
	}
}

func requireCode(t *testing.T, code string, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domain.ErrorCode(err))
}
