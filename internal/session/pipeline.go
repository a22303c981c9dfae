package session

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"mediadash/internal/aggregate"
	"mediadash/internal/filter"
	"mediadash/internal/metrics"
	"mediadash/internal/parser/csv"
	"mediadash/internal/schema"
	"mediadash/internal/transformer"
)

// IngestOptions configures parsing and cleaning of an upload.
type IngestOptions struct {
	Parse csv.Options
	Clean transformer.Options
}

// Ingest parses and cleans raw upload bytes. It is all or nothing: on any
// error no dataset is returned.
func Ingest(b []byte, opt IngestOptions) (*schema.Dataset, transformer.Report, error) {
	start := time.Now()
	tbl, err := csv.Parse(b, opt.Parse)
	metrics.RecordStep(metrics.StepParse, err, time.Since(start))
	if err != nil {
		return nil, transformer.Report{}, err
	}

	start = time.Now()
	ds, rep, err := transformer.Clean(tbl, opt.Clean)
	metrics.RecordStep(metrics.StepClean, err, time.Since(start))
	if err != nil {
		return nil, transformer.Report{Rows: tbl.Len()}, err
	}

	metrics.RecordRows("read", rep.Rows)
	metrics.RecordRows("kept", rep.Kept)
	metrics.RecordRows("dropped_date", rep.DroppedDates)
	metrics.RecordRows("defaulted_engagements", rep.DefaultedEngagements)
	logrus.WithFields(logrus.Fields{
		"rows":       rep.Rows,
		"kept":       rep.Kept,
		"dropped":    rep.DroppedDates,
		"defaulted":  rep.DefaultedEngagements,
		"date_order": rep.DateOrder,
	}).Debug("upload cleaned")
	return ds, rep, nil
}

// View is everything the presentation layer draws for one interaction.
type View struct {
	Charts   aggregate.Views  `json:"charts"`
	Facts    aggregate.Facts  `json:"facts"`
	Controls []filter.Control `json:"controls"`
	Bounds   filter.Bounds    `json:"bounds"`

	// Start and End are the date picker values: the chosen range, or the
	// bounds when a side is open.
	Start string `json:"start"`
	End   string `json:"end"`

	Reset []schema.Field `json:"reset,omitempty"`

	// Invalid carries a filter validation message. The charts are empty
	// whenever it is set.
	Invalid string `json:"invalid,omitempty"`

	Rows  int `json:"rows"`
	Total int `json:"total"`

	applied filter.Set
}

// NoData reports the valid-but-empty state.
func (v View) NoData() bool { return v.Invalid == "" && v.Charts.Empty() }

// Compute filters ds by set and aggregates the result.
func Compute(ds *schema.Dataset, set filter.Set) View {
	start := time.Now()
	res, err := filter.Apply(ds, set)
	metrics.RecordStep(metrics.StepFilter, err, time.Since(start))

	v := View{
		Controls: res.Controls,
		Bounds:   res.Bounds,
		Reset:    res.Reset,
		Total:    ds.Len(),
		applied:  res.Applied,
	}
	v.Start, v.End = pickerValues(set.Dates, res.Bounds)

	var ve *filter.ValidationError
	if errors.As(err, &ve) {
		v.Invalid = ve.Error()
		v.Facts = aggregate.FactsFrom(nil, v.Charts)
		// Keep the rejected range so the user can correct it.
		v.applied.Dates = set.Dates
		return v
	}

	start = time.Now()
	v.Charts = aggregate.Compute(res.Records)
	v.Facts = aggregate.FactsFrom(res.Records, v.Charts)
	v.Rows = len(res.Records)
	metrics.RecordStep(metrics.StepAggregate, nil, time.Since(start))
	return v
}

func pickerValues(r *filter.DateRange, b filter.Bounds) (string, string) {
	var start, end time.Time
	if b.Valid {
		start, end = b.Min, b.Max
	}
	if r != nil {
		if !r.Start.IsZero() {
			start = r.Start
		}
		if !r.End.IsZero() {
			end = r.End
		}
	}
	return dayString(start), dayString(end)
}

func dayString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(schema.DayLayout)
}
