package handler

import (
	"bytes"
	"context"
	"io"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"

	"github.com/DukeRupert/trainerdesk/internal/view"
)

// ToastRegionID is the element toasts are appended to.
const ToastRegionID = "toasts"

const toastBase = "pointer-events-auto w-full max-w-sm rounded-lg p-4 text-sm shadow-lg ring-1 ring-black/5"

var toastLevelClasses = map[view.Level]string{
	view.LevelSuccess: "bg-green-50 text-green-800",
	view.LevelError:   "bg-red-50 text-red-800",
	view.LevelInfo:    "bg-white text-gray-800",
}

// Toasts renders notifications as an out-of-band swap that appends them to
// the toast region. It renders nothing for an empty slice.
func Toasts(notes []view.Notification) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(notes) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, `<div id="`+ToastRegionID+`" hx-swap-oob="beforeend">`); err != nil {
			return err
		}
		for _, n := range notes {
			if err := toast(n).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func toast(n view.Notification) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		role := "status"
		if n.Level == view.LevelError {
			role = "alert"
		}
		class := twmerge.Merge(toastBase, toastLevelClasses[n.Level])
		_, err := io.WriteString(w, `<div role="`+role+`" data-level="`+templ.EscapeString(string(n.Level))+
			`" class="`+templ.EscapeString(class)+`">`+
			templ.EscapeString(n.Message)+`</div>`)
		return err
	})
}

// renderToasts drains the inbox of the view under id into an out-of-band
// fragment.
func renderToasts(ctx context.Context, ws *view.Workspace, id string) []byte {
	var buf bytes.Buffer
	_ = Toasts(ws.Notifications(id)).Render(ctx, &buf)
	return buf.Bytes()
}
