package filter

import (
	"strings"
	"time"

	"mediadash/internal/schema"
)

// Param names used by the HTML form, the JSON API and the CLI flags.
const (
	ParamStart = "start"
	ParamEnd   = "end"
)

// ParamFor maps a categorical field onto its form parameter name.
func ParamFor(f schema.Field) string {
	return strings.ReplaceAll(strings.ToLower(string(f)), " ", "_")
}

// ParamValue renders a control option as a parameter value; the empty
// category becomes Blank.
func ParamValue(v string) string {
	if v == "" {
		return Blank
	}
	return v
}

// FromParams builds a Set from string parameters looked up by get. Missing
// or "All" categorical values are unrestricted and Blank selects the empty
// category. Empty dates leave that side of the range open. A date that is
// not YYYY-MM-DD yields a *ValidationError.
func FromParams(get func(string) string) (Set, error) {
	s := Set{Equals: make(map[schema.Field]string)}
	for _, f := range schema.Categorical {
		switch v := get(ParamFor(f)); v {
		case "", All:
		case Blank:
			s.Equals[f] = ""
		default:
			s.Equals[f] = v
		}
	}

	start, err := parseDay(get(ParamStart))
	if err != nil {
		return Set{}, err
	}
	end, err := parseDay(get(ParamEnd))
	if err != nil {
		return Set{}, err
	}
	if !start.IsZero() || !end.IsZero() {
		s.Dates = &DateRange{Start: start, End: end}
	}
	return s, nil
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(schema.DayLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: schema.FieldDate, Msg: "dates must be YYYY-MM-DD, got " + s}
	}
	return t, nil
}
