// Package aggregate computes the descriptive views of a filtered dataset.
// Every view is a pure function of its input records. Ties are always broken
// by first-seen order of the label in the input.
package aggregate

import (
	"math"
	"sort"
	"time"

	"mediadash/internal/schema"
)

// TopLocations is the number of locations kept by the location ranking.
const TopLocations = 5

// Count is one slice of a distribution.
type Count struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Total is a label with its summed engagements.
type Total struct {
	Label       string `json:"label"`
	Engagements int64  `json:"engagements"`
}

// Point is the engagement sum of one calendar date.
type Point struct {
	Date        time.Time `json:"date"`
	Engagements int64     `json:"engagements"`
}

// Views bundles the five dashboard series.
type Views struct {
	Sentiment    []Count `json:"sentiment"`
	MediaType    []Count `json:"media_type"`
	Trend        []Point `json:"trend"`
	Platforms    []Total `json:"platforms"`
	TopLocations []Total `json:"top_locations"`
}

// Empty reports the "no data" state: every series is empty.
func (v Views) Empty() bool {
	return len(v.Sentiment) == 0 && len(v.MediaType) == 0 && len(v.Trend) == 0 &&
		len(v.Platforms) == 0 && len(v.TopLocations) == 0
}

// Compute builds all five views over records.
func Compute(records []schema.Record) Views {
	return Views{
		Sentiment:    Distribution(records, schema.FieldSentiment),
		MediaType:    Distribution(records, schema.FieldMediaType),
		Trend:        DailyTrend(records),
		Platforms:    Ranking(records, schema.FieldPlatform),
		TopLocations: Top(records, schema.FieldLocation, TopLocations),
	}
}

// Distribution counts rows per distinct value of f, ordered by count
// descending.
func Distribution(records []schema.Record, f schema.Field) []Count {
	var out []Count
	idx := make(map[string]int)
	for _, r := range records {
		v := r.Value(f)
		i, ok := idx[v]
		if !ok {
			i = len(out)
			idx[v] = i
			out = append(out, Count{Label: v})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// DailyTrend sums engagements per calendar date, ascending by date. Dates
// without rows are not filled in. Sums saturate at math.MaxInt64.
func DailyTrend(records []schema.Record) []Point {
	var out []Point
	idx := make(map[time.Time]int)
	for _, r := range records {
		d := r.Day()
		i, ok := idx[d]
		if !ok {
			i = len(out)
			idx[d] = i
			out = append(out, Point{Date: d})
		}
		out[i].Engagements = add(out[i].Engagements, r.Engagements)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Ranking sums engagements per distinct value of f, ordered by sum
// descending.
func Ranking(records []schema.Record, f schema.Field) []Total {
	out := sums(records, f)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Engagements > out[j].Engagements })
	return out
}

// Top keeps the k largest sums of Ranking and returns them ascending by sum,
// the order horizontal bar charts draw bottom-up. A tie at the cutoff keeps
// the label seen first.
func Top(records []schema.Record, f schema.Field, k int) []Total {
	ranked := Ranking(records, f)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Engagements < ranked[j].Engagements })
	return ranked
}

// TotalEngagements sums engagements over records, saturating at
// math.MaxInt64.
func TotalEngagements(records []schema.Record) int64 {
	var n int64
	for _, r := range records {
		n = add(n, r.Engagements)
	}
	return n
}

// add returns a+b for non-negative operands, clamped to math.MaxInt64.
func add(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

// sums groups engagements by f in first-seen order. Sums saturate at
// math.MaxInt64.
func sums(records []schema.Record, f schema.Field) []Total {
	var out []Total
	idx := make(map[string]int)
	for _, r := range records {
		v := r.Value(f)
		i, ok := idx[v]
		if !ok {
			i = len(out)
			idx[v] = i
			out = append(out, Total{Label: v})
		}
		out[i].Engagements = add(out[i].Engagements, r.Engagements)
	}
	return out
}
