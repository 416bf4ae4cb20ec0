package metrics

// MutationSucceeded records a successful create, update or delete
func MutationSucceeded(resource, action string) {
	MutationsTotal.WithLabelValues(resource, action, "ok").Inc()
}

// MutationFailed records a create, update or delete the remote API refused
func MutationFailed(resource, action string) {
	MutationsTotal.WithLabelValues(resource, action, "failed").Inc()
}

// NotificationRaised records a toast shown to a user
func NotificationRaised(level string) {
	NotificationsTotal.WithLabelValues(level).Inc()
}

// SessionOpened increments the active session gauge
func SessionOpened() {
	ActiveSessions.Inc()
}

// SessionClosed decrements the active session gauge
func SessionClosed() {
	ActiveSessions.Dec()
}
