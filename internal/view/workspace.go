package view

import (
	"context"
	"sync"
)

// Route names the view shown by one browser tab.
type Route string

const (
	RouteNone      Route = ""
	RouteCustomers Route = "customers"
	RouteTrainings Route = "trainings"
)

// MaxViews is the number of tab views one session keeps. Beyond it the least
// recently used view is unmounted.
const MaxViews = 8

// Workspace is the routing surface of one browser session. Every page load
// gets its own view id; a tab holds at most one active view, and activating a
// route under an id discards the view that id showed before. Views of other
// tabs are left alone. Each view queues its notifications in its own inbox.
type Workspace struct {
	mu        sync.Mutex
	customers CustomerService
	trainings TrainingService
	opts      Options

	views map[string]*tabView
	clock uint64
	last  Route
}

type tabView struct {
	route     Route
	customers *CustomerList
	trainings *TrainingList
	inbox     *Inbox
	used      uint64
}

func (v *tabView) unmount() {
	if v.customers != nil {
		v.customers.Unmount()
	}
	if v.trainings != nil {
		v.trainings.Unmount()
	}
}

// NewWorkspace creates a workspace with no views. opts.Notifier is replaced
// by the inbox of each view.
func NewWorkspace(customers CustomerService, trainings TrainingService, opts Options) *Workspace {
	return &Workspace{
		customers: customers,
		trainings: trainings,
		opts:      opts,
		views:     make(map[string]*tabView),
	}
}

// Route returns the route of the most recently used view.
func (w *Workspace) Route() Route {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Len returns the number of live views.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.views)
}

// ActivateCustomers discards the view shown under id and mounts a fresh
// customer view, which starts its fetch.
func (w *Workspace) ActivateCustomers(ctx context.Context, id string) *CustomerList {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activateLocked(ctx, id, RouteCustomers).customers
}

// ActivateTrainings discards the view shown under id and mounts a fresh
// training view, which starts its fetch.
func (w *Workspace) ActivateTrainings(ctx context.Context, id string) *TrainingList {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activateLocked(ctx, id, RouteTrainings).trainings
}

// Customers returns the customer view shown under id, activating one when id
// is unknown or shows another route.
func (w *Workspace) Customers(ctx context.Context, id string) *CustomerList {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v := w.touchLocked(id, RouteCustomers); v != nil {
		return v.customers
	}
	return w.activateLocked(ctx, id, RouteCustomers).customers
}

// Trainings returns the training view shown under id, activating one when id
// is unknown or shows another route.
func (w *Workspace) Trainings(ctx context.Context, id string) *TrainingList {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v := w.touchLocked(id, RouteTrainings); v != nil {
		return v.trainings
	}
	return w.activateLocked(ctx, id, RouteTrainings).trainings
}

// Notifications drains the notifications queued by the view under id.
func (w *Workspace) Notifications(id string) []Notification {
	w.mu.Lock()
	v := w.views[id]
	w.mu.Unlock()
	if v == nil {
		return nil
	}
	return v.inbox.Drain()
}

// Close unmounts every view.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, v := range w.views {
		v.unmount()
		delete(w.views, id)
	}
	w.last = RouteNone
}

func (w *Workspace) touchLocked(id string, route Route) *tabView {
	v := w.views[id]
	if v == nil || v.route != route {
		return nil
	}
	w.clock++
	v.used = w.clock
	w.last = route
	return v
}

func (w *Workspace) activateLocked(ctx context.Context, id string, route Route) *tabView {
	if old := w.views[id]; old != nil {
		old.unmount()
	}

	w.clock++
	v := &tabView{route: route, inbox: &Inbox{}, used: w.clock}
	opts := w.opts
	opts.Notifier = v.inbox
	switch route {
	case RouteCustomers:
		v.customers = NewCustomerList(w.customers, opts)
		v.customers.Mount(ctx)
	case RouteTrainings:
		v.trainings = NewTrainingList(w.trainings, opts)
		v.trainings.Mount(ctx)
	}
	w.views[id] = v
	w.last = route
	w.evictLocked()
	return v
}

// evictLocked unmounts least recently used views beyond MaxViews.
func (w *Workspace) evictLocked() {
	for len(w.views) > MaxViews {
		var oldestID string
		var oldest *tabView
		for id, v := range w.views {
			if oldest == nil || v.used < oldest.used {
				oldestID, oldest = id, v
			}
		}
		oldest.unmount()
		delete(w.views, oldestID)
	}
}
