package aggregate

import (
	"time"

	"mediadash/internal/schema"
)

// Trend classifies the overall engagement direction.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// trendBand is the relative change between the first and last day that
// counts as movement.
const trendBand = 0.10

// ClassifyTrend compares the first and last points of a daily trend. Fewer
// than two points is always stable.
func ClassifyTrend(points []Point) Trend {
	if len(points) < 2 {
		return TrendStable
	}
	first := float64(points[0].Engagements)
	last := float64(points[len(points)-1].Engagements)
	switch {
	case last > first*(1+trendBand):
		return TrendIncreasing
	case last < first*(1-trendBand):
		return TrendDecreasing
	}
	return TrendStable
}

// Facts are the aggregate figures handed to the narrator.
type Facts struct {
	HasData bool `json:"has_data"`

	DominantSentiment string `json:"dominant_sentiment"`
	DominantMediaType string `json:"dominant_media_type"`

	TopPlatform            string `json:"top_platform"`
	TopPlatformEngagements int64  `json:"top_platform_engagements"`

	TopLocation            string `json:"top_location"`
	TopLocationEngagements int64  `json:"top_location_engagements"`

	Trend Trend     `json:"trend"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Mode returns the most frequent value of f; among equally frequent values
// the first encountered wins. ok is false for no records.
func Mode(records []schema.Record, f schema.Field) (string, bool) {
	d := Distribution(records, f)
	if len(d) == 0 {
		return "", false
	}
	return d[0].Label, true
}

// FactsFrom derives the narrator facts from the filtered records and their
// already computed views.
func FactsFrom(records []schema.Record, v Views) Facts {
	f := Facts{Trend: ClassifyTrend(v.Trend)}
	if len(records) == 0 {
		return f
	}
	f.HasData = true
	f.DominantSentiment, _ = Mode(records, schema.FieldSentiment)
	f.DominantMediaType, _ = Mode(records, schema.FieldMediaType)
	if len(v.Platforms) > 0 {
		f.TopPlatform = v.Platforms[0].Label
		f.TopPlatformEngagements = v.Platforms[0].Engagements
	}
	// TopLocations is ascending and would favor the later label on a tie at
	// the top, so rank again.
	if locs := Ranking(records, schema.FieldLocation); len(locs) > 0 {
		f.TopLocation = locs[0].Label
		f.TopLocationEngagements = locs[0].Engagements
	}
	if n := len(v.Trend); n > 0 {
		f.Start = v.Trend[0].Date
		f.End = v.Trend[n-1].Date
	}
	return f
}
