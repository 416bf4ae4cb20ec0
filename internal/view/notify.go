package view

import "sync"

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is one fire-and-forget toast.
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Inbox queues notifications until the next response drains them.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

// Notify queues n.
func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	i.items = append(i.items, n)
	i.mu.Unlock()
}

// Drain returns the queued notifications in order and empties the queue.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	return out
}

// Len returns the number of queued notifications.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}
