// Package view holds the per-session list controllers for customers and
// trainings. A controller owns the local copy of one remote collection, the
// search term, and the state of its entity and confirm-delete dialogs. It
// fetches once per activation, applies confirmed mutations to its copy, and
// turns remote failures into log lines and notifications.
//
// All state changes are serialized behind the controller's mutex. Remote
// calls run without the lock held, so a slow call never blocks rendering.
// Calls are never cancelled by unmount; a completion that arrives after
// unmount is discarded.
package view

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/trainerdesk/internal/domain"
	"github.com/DukeRupert/trainerdesk/internal/metrics"
)

// CustomerService is the part of the API client the customer view uses.
type CustomerService interface {
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, in domain.CustomerInput) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, locator domain.CustomerLocator, in domain.CustomerInput) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, locator domain.CustomerLocator) error
}

// TrainingService is the part of the API client the training view uses.
// ListCustomers feeds the customer picker of the create dialog.
type TrainingService interface {
	ListTrainings(ctx context.Context) ([]domain.Training, error)
	CreateTraining(ctx context.Context, in domain.TrainingInput) (*domain.Training, error)
	DeleteTraining(ctx context.Context, id domain.TrainingID) error
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
}

// FailurePolicy decides which remote failures reach the user as a
// notification. Every failure is logged regardless.
type FailurePolicy int

const (
	// NotifyParity notifies on fetch failures and on training mutations,
	// while customer create, update and delete failures are only logged.
	NotifyParity FailurePolicy = iota
	// NotifyAlways notifies on every remote failure.
	NotifyAlways
)

// String returns the policy name used in config and logs.
func (p FailurePolicy) String() string {
	if p == NotifyAlways {
		return "always"
	}
	return "parity"
}

// Options configures a controller.
type Options struct {
	Logger   *slog.Logger
	Notifier Notifier
	Policy   FailurePolicy
	// Location is used to read and render training dates. Defaults to time.Local.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Notifier == nil {
		o.Notifier = NotifierFunc(func(Notification) {})
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

type lifecycle int

const (
	lifecycleFresh lifecycle = iota
	lifecycleMounted
	lifecycleUnmounted
)

// controller is the mount, loading and notification plumbing shared by both
// list controllers.
type controller struct {
	mu       sync.Mutex
	logger   *slog.Logger
	notifier Notifier
	policy   FailurePolicy

	state   lifecycle
	gen     uint64
	pending int
	ready   chan struct{}
}

func (c *controller) init(opts Options, resource string) {
	c.logger = opts.Logger.With("view", resource)
	c.notifier = opts.Notifier
	c.policy = opts.Policy
}

// mount starts the initial fetch exactly once. Later calls return the same
// channel, which is closed when that fetch has settled.
func (c *controller) mount(ctx context.Context, load func(context.Context, uint64)) <-chan struct{} {
	c.mu.Lock()
	if c.ready != nil {
		ready := c.ready
		c.mu.Unlock()
		return ready
	}
	ready := make(chan struct{})
	c.ready = ready
	if c.state == lifecycleUnmounted {
		close(ready)
		c.mu.Unlock()
		return ready
	}
	c.state = lifecycleMounted
	gen := c.beginLocked()
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(ready)
		load(ctx, gen)
	}()
	return ready
}

// wait blocks until the initial fetch has settled or ctx is done.
func (c *controller) wait(ctx context.Context) error {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	if ready == nil {
		return nil
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// unmount discards the view. Completions that arrive later are no-ops.
func (c *controller) unmount() {
	c.mu.Lock()
	c.state = lifecycleUnmounted
	c.mu.Unlock()
}

// beginLocked marks a fetch as in flight and returns its generation.
func (c *controller) beginLocked() uint64 {
	c.gen++
	c.pending++
	return c.gen
}

// settle releases the loading flag taken by beginLocked.
func (c *controller) settle() {
	c.mu.Lock()
	c.pending--
	c.mu.Unlock()
}

// currentLocked reports whether a fetch of generation gen may still write
// its result.
func (c *controller) currentLocked(gen uint64) bool {
	return c.state != lifecycleUnmounted && gen == c.gen
}

// liveLocked reports whether mutation results may still be applied.
func (c *controller) liveLocked() bool {
	return c.state != lifecycleUnmounted
}

func (c *controller) loadingLocked() bool {
	return c.pending > 0
}

func (c *controller) notify(level Level, message string) {
	metrics.NotificationRaised(string(level))
	c.notifier.Notify(Notification{Level: level, Message: message})
}

// logFailure writes one error line for a failed remote call.
func (c *controller) logFailure(msg, op string, err error) {
	attrs := []any{"op", op, "error", err, "code", domain.ErrorCode(err)}
	if status := domain.ErrorStatus(err); status != 0 {
		attrs = append(attrs, "status", status)
	}
	c.logger.Error(msg, attrs...)
}
