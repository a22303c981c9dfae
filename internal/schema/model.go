// Package schema defines the cleaned media-mention model shared by the filter
// engine, the aggregator and the presentation layer.
package schema

import (
	"strconv"
	"time"

	"mediadash/internal/parser/csv"
)

// DayLayout is the canonical calendar-date rendering.
const DayLayout = "2006-01-02"

// Field names a column of the upload. Values are the exact, case-sensitive
// header names expected in the file.
type Field string

const (
	FieldDate        Field = "Date"
	FieldEngagements Field = "Engagements"
	FieldSentiment   Field = "Sentiment"
	FieldPlatform    Field = "Platform"
	FieldMediaType   Field = "Media Type"
	FieldLocation    Field = "Location"
)

// Required lists the columns an upload must carry.
var Required = []Field{FieldDate, FieldEngagements}

// Categorical lists the free-text fields in filter order.
var Categorical = []Field{FieldPlatform, FieldSentiment, FieldMediaType, FieldLocation}

// Record is one media mention after cleaning.
type Record struct {
	// Date is a naive wall-clock time stored in UTC; zone offsets from the
	// input are discarded.
	Date        time.Time `json:"date"`
	Engagements int64     `json:"engagements"`
	Sentiment   string    `json:"sentiment"`
	Platform    string    `json:"platform"`
	MediaType   string    `json:"media_type"`
	Location    string    `json:"location"`
}

// Value returns the categorical value of f, or "" for non-categorical fields.
func (r Record) Value(f Field) string {
	switch f {
	case FieldSentiment:
		return r.Sentiment
	case FieldPlatform:
		return r.Platform
	case FieldMediaType:
		return r.MediaType
	case FieldLocation:
		return r.Location
	}
	return ""
}

// Day returns the calendar date of the record with the time of day removed.
func (r Record) Day() time.Time { return Day(r.Date) }

// Day truncates t to midnight of its own calendar date, in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dataset is the cleaned, ordered collection of records for one upload.
type Dataset struct {
	Records []Record

	// Present records which optional categorical columns the upload carried.
	// Absent columns read as the empty category.
	Present map[Field]bool
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// Has reports whether the upload carried column f. Required columns are
// always present in a cleaned dataset.
func (d *Dataset) Has(f Field) bool {
	if f == FieldDate || f == FieldEngagements {
		return true
	}
	return d.Present[f]
}

// Table renders the dataset back into raw form. Cleaning the result yields a
// dataset equal to d.
func (d *Dataset) Table() *csv.Table {
	header := []string{string(FieldDate), string(FieldEngagements)}
	var cats []Field
	for _, f := range Categorical {
		if d.Has(f) {
			cats = append(cats, f)
			header = append(header, string(f))
		}
	}
	t := &csv.Table{Header: header, Rows: make([][]string, 0, len(d.Records))}
	for _, r := range d.Records {
		row := make([]string, 0, len(header))
		row = append(row, FormatDate(r.Date), strconv.FormatInt(r.Engagements, 10))
		for _, f := range cats {
			row = append(row, r.Value(f))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FormatDate renders t as a bare date when it has no time of day, otherwise as
// an ISO timestamp without zone.
func FormatDate(t time.Time) string {
	if t.Equal(Day(t)) {
		return t.Format(DayLayout)
	}
	return t.Format("2006-01-02T15:04:05.999999999")
}
