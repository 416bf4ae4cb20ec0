package view

import "github.com/DukeRupert/trainerdesk/internal/domain"

// DialogState is the state of a modal dialog.
type DialogState int

const (
	DialogClosed DialogState = iota
	DialogOpen
	DialogOpenWithError
)

func (s DialogState) String() string {
	switch s {
	case DialogOpen:
		return "open"
	case DialogOpenWithError:
		return "open_with_error"
	default:
		return "closed"
	}
}

// Dialog tracks one modal: Closed -> Open -> Closed on cancel or success,
// OpenWithError on failure. A failed dialog can be submitted again.
type Dialog struct {
	State DialogState
	Err   error
	// Fields holds per-field messages when Err is a validation error.
	Fields map[string]string
	// Quiet hides the error message; field marks are still shown.
	Quiet bool
}

// Open opens the dialog and clears any previous error.
func (d *Dialog) Open() {
	*d = Dialog{State: DialogOpen}
}

// Close closes the dialog.
func (d *Dialog) Close() {
	*d = Dialog{}
}

// Fail records err on an open dialog. A closed dialog stays closed.
func (d *Dialog) Fail(err error) {
	if d.State == DialogClosed {
		return
	}
	d.State = DialogOpenWithError
	d.Err = err
	d.Fields = domain.FieldErrors(err)
	d.Quiet = false
}

// FailQuietly records err like Fail without exposing its message.
func (d *Dialog) FailQuietly(err error) {
	d.Fail(err)
	if d.IsOpen() {
		d.Quiet = true
	}
}

// IsOpen reports whether the dialog is shown.
func (d Dialog) IsOpen() bool {
	return d.State != DialogClosed
}

// Message returns the user-facing text for the recorded error, or "" when
// the failure is quiet.
func (d Dialog) Message() string {
	if d.Err == nil || d.Quiet {
		return ""
	}
	return domain.ErrorMessage(d.Err)
}

// FieldError returns the message for one form field, if any.
func (d Dialog) FieldError(name string) string {
	return d.Fields[name]
}
