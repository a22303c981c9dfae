// Package transformer turns an ingested Table into a cleaned schema.Dataset:
// it enforces the required columns, coerces Date and Engagements, and drops
// rows that cannot be attributed to a calendar date.
package transformer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"mediadash/internal/parser/csv"
	"mediadash/internal/schema"
)

// SchemaError reports required columns missing from an upload.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// Options configures cleaning.
type Options struct {
	// DateOrder resolves ambiguous numeric dates; zero means DateOrderAuto.
	DateOrder DateOrder
}

// Report summarizes what cleaning did to the raw rows.
type Report struct {
	Rows                 int       `json:"rows"`
	Kept                 int       `json:"kept"`
	DroppedDates         int       `json:"dropped_dates"`
	DefaultedEngagements int       `json:"defaulted_engagements"`
	DateOrder            DateOrder `json:"date_order"`
}

// Clean validates t and coerces its rows into a Dataset.
//
// Rows whose Date cannot be parsed are dropped. Missing, non-numeric or
// negative Engagements become 0 and never drop a row. Categorical values are
// trimmed and NFC-normalized so visually identical labels group together.
// Surviving rows keep their input order. t is not modified.
func Clean(t *csv.Table, opt Options) (*schema.Dataset, Report, error) {
	var missing []string
	for _, f := range schema.Required {
		if !t.Has(string(f)) {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, Report{}, &SchemaError{Missing: missing}
	}

	dateIdx := t.Index(string(schema.FieldDate))
	engIdx := t.Index(string(schema.FieldEngagements))
	catIdx := make(map[schema.Field]int, len(schema.Categorical))
	present := make(map[schema.Field]bool, len(schema.Categorical))
	for _, f := range schema.Categorical {
		if i := t.Index(string(f)); i >= 0 {
			catIdx[f] = i
			present[f] = true
		}
	}

	samples := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		samples[i] = row[dateIdx]
	}
	order := resolvedOrder(opt.DateOrder, samples)
	dp := NewDateParser(order, nil)

	rep := Report{Rows: len(t.Rows), DateOrder: order}
	ds := &schema.Dataset{
		Records: make([]schema.Record, 0, len(t.Rows)),
		Present: present,
	}
	for _, row := range t.Rows {
		d, ok := dp.Parse(row[dateIdx])
		if !ok {
			rep.DroppedDates++
			continue
		}
		eng, ok := ParseEngagements(row[engIdx])
		if !ok {
			rep.DefaultedEngagements++
		}
		ds.Records = append(ds.Records, schema.Record{
			Date:        d,
			Engagements: eng,
			Sentiment:   cell(row, catIdx, schema.FieldSentiment),
			Platform:    cell(row, catIdx, schema.FieldPlatform),
			MediaType:   cell(row, catIdx, schema.FieldMediaType),
			Location:    cell(row, catIdx, schema.FieldLocation),
		})
	}
	rep.Kept = len(ds.Records)
	return ds, rep, nil
}

func resolvedOrder(o DateOrder, samples []string) DateOrder {
	if o == "" || o == DateOrderAuto {
		return chooseOrder(samples)
	}
	return o
}

func cell(row []string, idx map[schema.Field]int, f schema.Field) string {
	i, ok := idx[f]
	if !ok {
		return ""
	}
	return NormalizeLabel(row[i])
}

// NormalizeLabel trims s and converts it to Unicode NFC.
func NormalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

var thousandsRe = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// ParseEngagements coerces s to a non-negative integer. Decimals are truncated
// toward zero and "1,234" style thousands separators are accepted. ok is false
// when s was missing, non-numeric, non-finite or negative, in which case the
// value is 0.
func ParseEngagements(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if thousandsRe.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	// ParseFloat also accepts hex floats and "inf"/"nan"; only plain decimal
	// notation counts as numeric here.
	if strings.ContainsAny(s, "xXpP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
