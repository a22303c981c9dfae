package transformer

import (
	"fmt"
	"strings"
	"time"
)

// DateOrder decides how ambiguous numeric dates such as "03/04/2024" are read.
type DateOrder string

const (
	// DateOrderAuto picks the order that parses more values of the column,
	// preferring month-first on a tie.
	DateOrderAuto DateOrder = "auto"
	// DateOrderDMY reads day first (EU).
	DateOrderDMY DateOrder = "dmy"
	// DateOrderMDY reads month first (US).
	DateOrderMDY DateOrder = "mdy"
)

// ParseDateOrder maps a config value onto a DateOrder. "eu" and "us" are
// accepted as aliases.
func ParseDateOrder(s string) (DateOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DateOrderAuto, nil
	case "dmy", "eu":
		return DateOrderDMY, nil
	case "mdy", "us":
		return DateOrderMDY, nil
	}
	return "", fmt.Errorf("unknown date order %q (want auto, dmy or mdy)", s)
}

// timeSuffixes are appended to every date layout so datetime values parse as
// well as bare dates.
var timeSuffixes = []string{
	"",
	" 15:04:05",
	" 15:04",
	"T15:04:05",
	"T15:04",
	" 15:04:05 MST",
	" 15:04 MST",
	" 3:04:05 PM",
	" 3:04 PM",
}

// isoLayouts never depend on day/month order. The unpadded year-first forms
// follow the padded ones.
var isoLayouts = append([]string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"20060102",
}, withTimes(
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
)...)

// dmyLayouts and mdyLayouts cover the numeric forms whose reading depends on
// the chosen DateOrder. Go's "1"/"2" elements accept one or two digits.
var (
	dmyLayouts = withTimes("2/1/2006", "2.1.2006", "2-1-2006")
	mdyLayouts = withTimes("1/2/2006", "1.2.2006", "1-2-2006")
)

func withTimes(dates ...string) []string {
	out := make([]string, 0, len(dates)*len(timeSuffixes))
	for _, d := range dates {
		for _, s := range timeSuffixes {
			out = append(out, d+s)
		}
	}
	return out
}

// DateParser is a permissive calendar-date/datetime parser bound to one
// column's day/month order.
type DateParser struct {
	first, second []string
}

// NewDateParser returns a parser for values of one column. With
// DateOrderAuto the order is chosen by scoring samples against both families
// of ambiguous layouts.
func NewDateParser(order DateOrder, samples []string) DateParser {
	if order == DateOrderAuto || order == "" {
		order = chooseOrder(samples)
	}
	if order == DateOrderDMY {
		return DateParser{first: dmyLayouts, second: mdyLayouts}
	}
	return DateParser{first: mdyLayouts, second: dmyLayouts}
}

// Parse returns the wall-clock time of s with any zone offset discarded. ok is
// false when no layout matches.
func (p DateParser) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, group := range [][]string{isoLayouts, p.first, p.second} {
		if t, ok := tryLayouts(group, s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func tryLayouts(layouts []string, s string) (time.Time, bool) {
	for _, lay := range layouts {
		if t, err := time.Parse(lay, s); err == nil {
			return naive(t), true
		}
	}
	return time.Time{}, false
}

// naive keeps the wall clock of t and drops its location.
func naive(t time.Time) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m, d, hh, mm, ss, t.Nanosecond(), time.UTC)
}

// chooseOrder counts how many samples parse only as day-first versus only as
// month-first. Ties, including columns with no ambiguous values, go to
// month-first.
func chooseOrder(samples []string) DateOrder {
	var dmy, mdy int
	for _, s := range samples {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		_, okD := tryLayouts(dmyLayouts, s)
		_, okM := tryLayouts(mdyLayouts, s)
		switch {
		case okD && !okM:
			dmy++
		case okM && !okD:
			mdy++
		}
	}
	if dmy > mdy {
		return DateOrderDMY
	}
	return DateOrderMDY
}
