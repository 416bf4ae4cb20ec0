package domain

import (
	"encoding/json"
	"path"
	"strconv"
	"strings"
	"time"
)

// DateLayout is how training dates are shown in tables.
const DateLayout = "02.01.2006 15:04"

// PlaceholderCustomer is shown for trainings whose customer no longer exists.
const PlaceholderCustomer = "N/A"

// InvalidDate is shown when the server sends a date that cannot be parsed.
const InvalidDate = "Invalid date"

// wireDateLayouts are the date shapes the remote API (and the HTML
// datetime-local input) are known to produce. Layouts without an offset are
// interpreted in the caller's location.
var wireDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// TrainingID is the numeric address of a training resource.
type TrainingID int64

// String returns the id in base 10.
func (id TrainingID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseTrainingID parses a base-10 training id.
func ParseTrainingID(s string) (TrainingID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, Invalid("training.parse_id", "invalid training id")
	}
	return TrainingID(n), nil
}

// Training is one training session. Customer is nil when the backing
// customer has been deleted.
type Training struct {
	ID       TrainingID `json:"id"`
	Date     string     `json:"date"`
	Duration int        `json:"duration"`
	Activity string     `json:"activity"`
	Customer *Customer  `json:"customer"`
	Links    Links      `json:"_links,omitempty"`
}

// Key returns the identity used to match a training inside a local list.
func (t Training) Key() string {
	return t.ID.String()
}

// ResolveID fills ID from the self link when the server omitted the id
// field, as it does in create responses.
func (t *Training) ResolveID() {
	if t.ID != 0 {
		return
	}
	self := t.Links.Self()
	if self == "" {
		return
	}
	if id, err := ParseTrainingID(path.Base(self)); err == nil {
		t.ID = id
	}
}

// Time parses the wire date. Dates without an offset are read in loc.
func (t Training) Time(loc *time.Location) (time.Time, error) {
	return ParseDate(t.Date, loc)
}

// FormatDate renders the date as dd.MM.yyyy HH:mm in loc, or InvalidDate.
func (t Training) FormatDate(loc *time.Location) string {
	ts, err := t.Time(loc)
	if err != nil {
		return InvalidDate
	}
	if loc != nil {
		ts = ts.In(loc)
	}
	return ts.Format(DateLayout)
}

// CustomerName returns the embedded customer's full name or the placeholder.
func (t Training) CustomerName() string {
	if t.Customer == nil {
		return PlaceholderCustomer
	}
	return t.Customer.FullName()
}

// ParseDate parses any of the known wire date layouts.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range wireDateLayouts {
		ts, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, Invalid("training.parse_date", firstErr.Error())
}

// =============================================================================
// Training Input
// =============================================================================

// TrainingInput is the request body for creating a training. The customer is
// referenced by its locator.
type TrainingInput struct {
	Date     time.Time       `json:"-"`
	Duration int             `json:"duration" validate:"gt=0"`
	Activity string          `json:"activity" validate:"required"`
	Customer CustomerLocator `json:"customer" validate:"required,url"`
}

// MarshalJSON writes the date as a UTC ISO-8601 instant with milliseconds.
func (in TrainingInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date     string `json:"date"`
		Duration int    `json:"duration"`
		Activity string `json:"activity"`
		Customer string `json:"customer"`
	}{
		Date:     in.Date.UTC().Format("2006-01-02T15:04:05.000Z"),
		Duration: in.Duration,
		Activity: in.Activity,
		Customer: string(in.Customer),
	})
}

// TrainingInputFromFields builds an input from a flat form field map. Date
// and duration parse errors are reported as field errors.
func TrainingInputFromFields(fields map[string]string, loc *time.Location) (TrainingInput, error) {
	const op = "training.from_fields"

	in := TrainingInput{
		Activity: strings.TrimSpace(fields["activity"]),
		Customer: CustomerLocator(strings.TrimSpace(fields["customer"])),
	}

	fieldErrs := make(map[string]string)
	if raw := strings.TrimSpace(fields["date"]); raw != "" {
		ts, err := ParseDate(raw, loc)
		if err != nil {
			fieldErrs["date"] = "date is invalid"
		} else {
			in.Date = ts
		}
	}
	if raw := strings.TrimSpace(fields["duration"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrs["duration"] = "duration must be a whole number of minutes"
		} else {
			in.Duration = n
		}
	}
	if len(fieldErrs) > 0 {
		return in, &ValidationError{Op: op, Fields: fieldErrs}
	}
	return in, nil
}

// Validate checks date, duration, activity and customer reference.
func (in TrainingInput) Validate() error {
	err := validateStruct("training.validate", in)
	if in.Date.IsZero() {
		ve := AddFieldError(err, "date", "field date is required")
		ve.Op = "training.validate"
		return ve
	}
	return err
}
