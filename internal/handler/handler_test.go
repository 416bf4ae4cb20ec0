package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/trainerdesk/internal/domain"
	"github.com/DukeRupert/trainerdesk/internal/middleware"
	"github.com/DukeRupert/trainerdesk/internal/view"
	"github.com/DukeRupert/trainerdesk/web"
)

const apiBase = "http://api.test"

// stubAPI is an in-memory remote API.
type stubAPI struct {
	mu        sync.Mutex
	customers []domain.Customer
	trainings []domain.Training
	nextID    int64
	creates   int
}

func customerAt(id int64, first, last, city string) domain.Customer {
	return domain.Customer{
		ID:            id,
		Firstname:     first,
		Lastname:      last,
		Email:         strings.ToLower(first) + "@example.com",
		Phone:         "555-0100",
		StreetAddress: "1 Main St",
		Postcode:      "00100",
		City:          city,
		Links:         domain.Links{"self": {Href: fmt.Sprintf("%s/customers/%d", apiBase, id)}},
	}
}

func newStubAPI() *stubAPI {
	ada := customerAt(1, "Ada", "Lovelace", "London")
	grace := customerAt(2, "Grace", "Hopper", "New York")
	return &stubAPI{
		nextID:    100,
		customers: []domain.Customer{ada, grace},
		trainings: []domain.Training{
			{ID: 5, Date: "2024-01-01T10:00:00.000Z", Duration: 60, Activity: "Spinning", Customer: &ada},
			{ID: 6, Date: "2024-02-01T08:30:00.000Z", Duration: 45, Activity: "Boxing", Customer: nil},
		},
	}
}

func (s *stubAPI) ListCustomers(context.Context) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Customer(nil), s.customers...), nil
}

func (s *stubAPI) CreateCustomer(_ context.Context, in domain.CustomerInput) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	s.nextID++
	c := customerAt(s.nextID, in.Firstname, in.Lastname, in.City)
	c.Email = in.Email
	s.customers = append(s.customers, c)
	return &c, nil
}

func (s *stubAPI) UpdateCustomer(_ context.Context, loc domain.CustomerLocator, in domain.CustomerInput) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.customers {
		if c.Locator() == loc {
			updated := customerAt(c.ID, in.Firstname, in.Lastname, in.City)
			s.customers[i] = updated
			return &updated, nil
		}
	}
	return nil, domain.Upstream("customers.update", http.StatusNotFound, "")
}

func (s *stubAPI) DeleteCustomer(_ context.Context, loc domain.CustomerLocator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.customers {
		if c.Locator() == loc {
			s.customers = append(s.customers[:i], s.customers[i+1:]...)
			return nil
		}
	}
	return domain.Upstream("customers.delete", http.StatusNotFound, "")
}

func (s *stubAPI) ListTrainings(context.Context) ([]domain.Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Training(nil), s.trainings...), nil
}

func (s *stubAPI) CreateTraining(_ context.Context, in domain.TrainingInput) (*domain.Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := domain.Training{
		ID:       domain.TrainingID(s.nextID),
		Date:     in.Date.UTC().Format(time.RFC3339),
		Duration: in.Duration,
		Activity: in.Activity,
	}
	s.trainings = append(s.trainings, t)
	return &t, nil
}

func (s *stubAPI) DeleteTraining(_ context.Context, id domain.TrainingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.trainings {
		if t.ID == id {
			s.trainings = append(s.trainings[:i], s.trainings[i+1:]...)
			return nil
		}
	}
	return domain.Upstream("trainings.delete", http.StatusNotFound, "")
}

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	t   *testing.T
	api *stubAPI
	ws  *view.Workspace
	mux *http.ServeMux
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithPolicy(t, view.NotifyParity)
}

func newHarnessWithPolicy(t *testing.T, policy view.FailurePolicy) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	renderer, err := NewRendererFromFS(web.Templates(), logger)
	require.NoError(t, err)

	api := newStubAPI()
	ws := view.NewWorkspace(api, api, view.Options{Logger: logger, Policy: policy, Location: time.UTC})
	t.Cleanup(ws.Close)

	mux := http.NewServeMux()
	identity := func(h http.Handler) http.Handler { return h }
	NewCustomerHandler(renderer, logger).RegisterRoutes(mux, identity)
	NewTrainingHandler(renderer, logger).RegisterRoutes(mux, identity)

	return &harness{t: t, api: api, ws: ws, mux: mux}
}

func (h *harness) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("HX-Request", "true")
	req = req.WithContext(middleware.WithWorkspace(req.Context(), h.ws))

	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

var viewIDPattern = regexp.MustCompile(`name="view" value="([^"]+)"`)

// open loads a page the way a new browser tab does and returns the view id
// it was given.
func (h *harness) open(path string) string {
	h.t.Helper()
	rec := h.do(http.MethodGet, path, nil)
	require.Equal(h.t, http.StatusOK, rec.Code)
	m := viewIDPattern.FindStringSubmatch(rec.Body.String())
	require.Len(h.t, m, 2, "page carries a view id")
	return m[1]
}

func (h *harness) customersLoaded() {
	h.t.Helper()
	h.customersLoadedIn("")
}

func (h *harness) customersLoadedIn(id string) {
	h.t.Helper()
	ctx := context.Background()
	require.NoError(h.t, h.ws.Customers(ctx, id).Wait(ctx))
}

func (h *harness) trainingsLoaded() {
	h.t.Helper()
	h.trainingsLoadedIn("")
}

func (h *harness) trainingsLoadedIn(id string) {
	h.t.Helper()
	ctx := context.Background()
	require.NoError(h.t, h.ws.Trainings(ctx, id).Wait(ctx))
}

// forgetCustomer removes a customer from the server behind the view's back.
func (s *stubAPI) forgetCustomer(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.customers {
		if c.ID == id {
			s.customers = append(s.customers[:i], s.customers[i+1:]...)
			return
		}
	}
}

func (s *stubAPI) trainingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trainings)
}

// =============================================================================
// Customer Routes
// =============================================================================

func TestCustomers_IndexRendersPage(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/customers", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Customers · Trainer Desk</title>")
	assert.Contains(t, body, `id="customer-view"`)
	assert.Equal(t, view.RouteCustomers, h.ws.Route())
}

func TestCustomers_TableSearch(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/customers", nil)
	h.customersLoaded()

	rec := h.do(http.MethodGet, "/customers/table?q=LOVE", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ada Lovelace")
	assert.NotContains(t, body, "Grace Hopper")
	assert.NotContains(t, body, "<html", "htmx gets the region only")

	rec = h.do(http.MethodGet, "/customers/table?q=zzz", nil)
	assert.Contains(t, rec.Body.String(), `No customers match "zzz".`)
}

func TestCustomers_CreateFlow(t *testing.T) {
	h := newHarness(t)
	h.customersLoaded()

	rec := h.do(http.MethodGet, "/customers/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "New customer")

	rec = h.do(http.MethodPost, "/customers/save", url.Values{
		"firstname":     {"Katherine"},
		"lastname":      {"Johnson"},
		"email":         {"kj@nasa.gov"},
		"phone":         {"555-0199"},
		"streetaddress": {"2 Orbit Rd"},
		"postcode":      {"23666"},
		"city":          {"Hampton"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Katherine Johnson")
	assert.NotContains(t, body, "customer-dialog-title", "dialog closes on success")
	assert.Equal(t, 1, h.api.creates)
}

func TestCustomers_SaveValidationKeepsDialogOpen(t *testing.T) {
	h := newHarness(t)
	h.customersLoaded()
	h.do(http.MethodGet, "/customers/new", nil)

	rec := h.do(http.MethodPost, "/customers/save", url.Values{"firstname": {"Katherine"}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "customer-dialog-title")
	assert.Contains(t, body, `aria-invalid="true"`)
	assert.Contains(t, body, `value="Katherine"`, "entered values are kept")
	assert.NotContains(t, body, "hx-swap-oob", "validation failures raise no toast")
	assert.Zero(t, h.api.creates)
}

func TestCustomers_SaveWithoutDialogConflicts(t *testing.T) {
	h := newHarness(t)
	h.customersLoaded()

	rec := h.do(http.MethodPost, "/customers/save", url.Values{"firstname": {"X"}})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "none", rec.Header().Get("HX-Reswap"))
	assert.Contains(t, rec.Body.String(), `hx-swap-oob="beforeend"`)
}

func TestCustomers_EditUnknownIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.customersLoaded()

	rec := h.do(http.MethodGet, "/customers/edit?href="+url.QueryEscape(apiBase+"/customers/99"), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
}

func TestCustomers_EditAndDelete(t *testing.T) {
	h := newHarness(t)
	h.customersLoaded()
	href := url.QueryEscape(apiBase + "/customers/2")

	rec := h.do(http.MethodGet, "/customers/edit?href="+href, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Grace"`)
	h.do(http.MethodPost, "/customers/dialog/close", url.Values{})

	rec = h.do(http.MethodGet, "/customers/delete?href="+href, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This will also delete all associated trainings.")

	rec = h.do(http.MethodPost, "/customers/delete", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "Grace Hopper")
	assert.Contains(t, body, "Ada Lovelace")
}

func TestCustomers_FailedMutationsAreSilentByDefault(t *testing.T) {
	tests := []struct {
		policy    view.FailurePolicy
		wantAlert bool
	}{
		{view.NotifyParity, false},
		{view.NotifyAlways, true},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String()+"/delete", func(t *testing.T) {
			h := newHarnessWithPolicy(t, tt.policy)
			h.customersLoaded()

			rec := h.do(http.MethodGet, "/customers/delete?href="+url.QueryEscape(apiBase+"/customers/1"), nil)
			require.Equal(t, http.StatusOK, rec.Code)
			h.api.forgetCustomer(1)

			rec = h.do(http.MethodPost, "/customers/delete", url.Values{})

			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "Ada Lovelace", "row stays until the server agrees")
			assert.Contains(t, body, view.CustomerDeleteWarning, "confirm dialog stays open")
			assert.Equal(t, tt.wantAlert, strings.Contains(body, `role="alert"`))
			assert.Equal(t, tt.wantAlert, strings.Contains(body, "Not Found"))
		})

		t.Run(tt.policy.String()+"/update", func(t *testing.T) {
			h := newHarnessWithPolicy(t, tt.policy)
			h.customersLoaded()

			rec := h.do(http.MethodGet, "/customers/edit?href="+url.QueryEscape(apiBase+"/customers/2"), nil)
			require.Equal(t, http.StatusOK, rec.Code)
			h.api.forgetCustomer(2)

			rec = h.do(http.MethodPost, "/customers/save", url.Values{
				"firstname":     {"Grace"},
				"lastname":      {"Murray"},
				"email":         {"grace@example.com"},
				"phone":         {"555-0100"},
				"streetaddress": {"1 Main St"},
				"postcode":      {"00100"},
				"city":          {"Arlington"},
			})

			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "Edit customer", "dialog stays open")
			assert.Contains(t, body, `value="Murray"`)
			assert.Equal(t, tt.wantAlert, strings.Contains(body, `role="alert"`))
		})
	}
}

func TestHandlers_TabsKeepSeparateViews(t *testing.T) {
	h := newHarness(t)

	tabB := h.open("/trainings")
	h.trainingsLoadedIn(tabB)
	rec := h.do(http.MethodGet, "/trainings/5/delete?view="+tabB, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tabA := h.open("/customers")
	require.NotEqual(t, tabA, tabB)
	h.customersLoadedIn(tabA)
	rec = h.do(http.MethodGet, "/customers/table?view="+tabA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ada Lovelace")

	rec = h.do(http.MethodPost, "/trainings/delete", url.Values{"view": {tabB}})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Training session deleted successfully")
	assert.Equal(t, 1, h.api.trainingCount())
}

func TestHandlers_RejectMalformedRequests(t *testing.T) {
	h := newHarness(t)
	h.customersLoaded()

	req := httptest.NewRequest(http.MethodPost, "/customers/save", strings.NewReader("firstname=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req = req.WithContext(middleware.WithWorkspace(req.Context(), h.ws))
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "none", rec.Header().Get("HX-Reswap"))

	rec = h.do(http.MethodGet, "/customers/table?view=not-a-view", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// Training Routes
// =============================================================================

func TestTrainings_TableFormatsRows(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/trainings", nil)
	h.trainingsLoaded()

	rec := h.do(http.MethodGet, "/trainings/table", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "01.01.2024 10:00")
	assert.Contains(t, body, domain.PlaceholderCustomer)
	assert.Less(t, strings.Index(body, "Boxing"), strings.Index(body, "Spinning"), "newest first")
}

func TestTrainings_CreateAttachesPickedCustomer(t *testing.T) {
	h := newHarness(t)
	h.trainingsLoaded()

	rec := h.do(http.MethodGet, "/trainings/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ada Lovelace", "picker lists customers")

	rec = h.do(http.MethodPost, "/trainings/save", url.Values{
		"date":     {"2024-03-01T09:15"},
		"duration": {"30"},
		"activity": {"Yoga"},
		"customer": {apiBase + "/customers/2"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "01.03.2024 09:15")
	assert.Contains(t, body, "Grace Hopper")
	assert.Contains(t, body, "Training session added successfully")
}

func TestTrainings_DeleteFlow(t *testing.T) {
	h := newHarness(t)
	h.trainingsLoaded()

	rec := h.do(http.MethodGet, "/trainings/5/delete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), view.TrainingDeleteWarning)

	rec = h.do(http.MethodPost, "/trainings/delete", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "Spinning")
	assert.Contains(t, body, "Training session deleted successfully")
}

func TestTrainings_OpenDeleteRejectsBadID(t *testing.T) {
	h := newHarness(t)
	h.trainingsLoaded()

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/trainings/abc/delete", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/trainings/42/delete", nil).Code)
}

func TestHandlers_RequireWorkspace(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/customers", nil)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
