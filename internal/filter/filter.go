// Package filter narrows a cleaned dataset by independent per-field
// constraints. Categorical fields are applied in a fixed order (Platform,
// Sentiment, Media Type, Location) and each one's candidate values are taken
// from the output of the previous step; the date range is applied last.
package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"mediadash/internal/schema"
)

// All is the control value meaning "no restriction".
const All = "All"

// Blank is the parameter value that selects rows whose field is empty. A
// label equal to Blank cannot be selected.
const Blank = "(unspecified)"

// DateRange is an inclusive range over calendar dates. A zero Start or End
// leaves that side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Set is the current combination of per-field constraints. A field missing
// from Equals, or mapped to All, is unrestricted.
type Set struct {
	Equals map[schema.Field]string
	Dates  *DateRange
}

// Value returns the constraint on f, or All.
func (s Set) Value(f schema.Field) string {
	if v, ok := s.Equals[f]; ok {
		return v
	}
	return All
}

// Restricted reports whether f carries an active constraint.
func (s Set) Restricted(f schema.Field) bool {
	v, ok := s.Equals[f]
	return ok && v != All
}

// Key is a canonical rendering of s, stable across map iteration order.
func (s Set) Key() string {
	var b strings.Builder
	for _, f := range schema.Categorical {
		if s.Restricted(f) {
			fmt.Fprintf(&b, "%s=%s;", f, strconv.Quote(s.Equals[f]))
		}
	}
	if s.Dates != nil {
		fmt.Fprintf(&b, "Date=[%s,%s]", formatBound(s.Dates.Start), formatBound(s.Dates.End))
	}
	return b.String()
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(schema.DayLayout)
}

// ValidationError is a user input error in the filter controls. It is distinct
// from an empty result, which is a normal state.
type ValidationError struct {
	Field schema.Field
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s filter: %s", e.Field, e.Msg)
}

// Control describes one categorical filter as offered to the user.
type Control struct {
	Field schema.Field `json:"field"`
	// Options starts with All followed by the sorted distinct values present
	// when this control is evaluated.
	Options  []string `json:"options"`
	Selected string   `json:"selected"`
}

// Bounds is the allowed range of the date pickers.
type Bounds struct {
	Min   time.Time `json:"min"`
	Max   time.Time `json:"max"`
	Valid bool      `json:"valid"`
}

// Result is the outcome of Apply.
type Result struct {
	// Records is an order-preserving subsequence of the input. It is nil when
	// Apply returns a ValidationError.
	Records []schema.Record

	// Applied is the effective filter set after stale values were reset.
	Applied Set

	// Reset lists fields whose constraint named a value no longer offered and
	// was therefore treated as All.
	Reset []schema.Field

	Controls []Control
	Bounds   Bounds
}

// DistinctValues returns the sorted distinct values of f in records. It is
// recomputed on every call.
func DistinctValues(records []schema.Record, f schema.Field) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		v := r.Value(f)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Apply evaluates s against ds.
//
// Categorical constraints on columns the upload did not carry are ignored. A
// date range whose start is after its end yields a *ValidationError; the
// returned Result still carries the controls and bounds so the caller can
// redisplay them.
func Apply(ds *schema.Dataset, s Set) (Result, error) {
	res := Result{Applied: Set{Equals: make(map[schema.Field]string)}}
	cur := ds.Records

	for _, f := range schema.Categorical {
		if !ds.Has(f) {
			if s.Restricted(f) {
				res.Reset = append(res.Reset, f)
			}
			continue
		}
		values := DistinctValues(cur, f)
		ctl := Control{Field: f, Options: append([]string{All}, values...), Selected: All}

		if s.Restricted(f) {
			want := s.Equals[f]
			if contains(values, want) {
				ctl.Selected = want
				res.Applied.Equals[f] = want
				cur = keep(cur, func(r schema.Record) bool { return r.Value(f) == want })
			} else {
				res.Reset = append(res.Reset, f)
			}
		}
		res.Controls = append(res.Controls, ctl)
	}

	res.Bounds = DateBounds(cur)

	if s.Dates != nil {
		start, end := s.Dates.Start, s.Dates.End
		if !start.IsZero() && !end.IsZero() && schema.Day(start).After(schema.Day(end)) {
			return res, &ValidationError{
				Field: schema.FieldDate,
				Msg: fmt.Sprintf("start date %s is after end date %s",
					start.Format(schema.DayLayout), end.Format(schema.DayLayout)),
			}
		}
		res.Applied.Dates = &DateRange{Start: dayOrZero(start), End: dayOrZero(end)}
		cur = keep(cur, func(r schema.Record) bool { return InRange(r.Day(), start, end) })
	}

	res.Records = cur
	return res, nil
}

// InRange reports whether day lies within [start, end] by calendar date. Zero
// bounds are open.
func InRange(day, start, end time.Time) bool {
	day = schema.Day(day)
	if !start.IsZero() && day.Before(schema.Day(start)) {
		return false
	}
	if !end.IsZero() && day.After(schema.Day(end)) {
		return false
	}
	return true
}

// DateBounds returns the min and max calendar dates in records.
func DateBounds(records []schema.Record) Bounds {
	var b Bounds
	for _, r := range records {
		d := r.Day()
		if !b.Valid {
			b = Bounds{Min: d, Max: d, Valid: true}
			continue
		}
		if d.Before(b.Min) {
			b.Min = d
		}
		if d.After(b.Max) {
			b.Max = d
		}
	}
	return b
}

func dayOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return schema.Day(t)
}

func contains(sorted []string, v string) bool {
	i := sort.SearchStrings(sorted, v)
	return i < len(sorted) && sorted[i] == v
}

// keep returns the records satisfying pred, preserving order. The input is
// never modified.
func keep(in []schema.Record, pred func(schema.Record) bool) []schema.Record {
	out := make([]schema.Record, 0, len(in))
	for _, r := range in {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
