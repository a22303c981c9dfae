package webui

import (
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mediadash/internal/aggregate"
	"mediadash/internal/filter"
	"mediadash/internal/schema"
)

var printer = message.NewPrinter(language.English)

var funcs = template.FuncMap{
	"param":     func(f schema.Field) string { return filter.ParamFor(f) },
	"optval":    filter.ParamValue,
	"thousands": func(n int64) string { return printer.Sprintf("%d", n) },
	"day":       func(t time.Time) string { return t.Format(schema.DayLayout) },
	"label":     label,
	"countPct":  countPct,
	"totalPct":  totalPct,
	"pointPct":  pointPct,
}

func label(s string) string {
	if s == "" {
		return filter.Blank
	}
	return s
}

// The *Pct helpers size the CSS bars of a series relative to its largest
// value.

func countPct(series []aggregate.Count, n int64) int {
	var max int64
	for _, c := range series {
		if c.Count > max {
			max = c.Count
		}
	}
	return pct(n, max)
}

func totalPct(series []aggregate.Total, n int64) int {
	var max int64
	for _, t := range series {
		if t.Engagements > max {
			max = t.Engagements
		}
	}
	return pct(n, max)
}

func pointPct(series []aggregate.Point, n int64) int {
	var max int64
	for _, p := range series {
		if p.Engagements > max {
			max = p.Engagements
		}
	}
	return pct(n, max)
}

func pct(n, max int64) int {
	if max <= 0 {
		return 0
	}
	return int(n * 100 / max)
}
