package domain

import (
	"slices"
	"strings"
	"time"
)

// Metric names a measurable column.
type Metric string

// Metric constants. Names match the output table headers.
const (
	MetricRevenue          Metric = "revenue"
	MetricViews            Metric = "views"
	MetricDuration         Metric = "duration_minutes"
	MetricUniqueViewers    Metric = "unique_viewers"
	MetricLikes            Metric = "likes"
	MetricComments         Metric = "comments"
	MetricQuantity         Metric = "quantity"
	MetricConversionRate   Metric = "conversion_rate"
	MetricEngagementRate   Metric = "engagement_rate"
	MetricRevenuePerMinute Metric = "revenue_per_minute"
	MetricShares           Metric = "shares"
	MetricScore            Metric = "engagement_score"
	MetricCoOccurrences    Metric = "co_occurrences"
)

// SessionMetrics lists the metrics every session carries.
func SessionMetrics() []Metric {
	return []Metric{
		MetricDuration, MetricViews, MetricUniqueViewers, MetricLikes,
		MetricComments, MetricRevenue, MetricConversionRate, MetricEngagementRate,
	}
}

// MetricSet is an unordered set of metrics.
type MetricSet map[Metric]struct{}

// NewMetricSet builds a set from the given metrics.
func NewMetricSet(metrics ...Metric) MetricSet {
	s := make(MetricSet, len(metrics))
	for _, m := range metrics {
		s[m] = struct{}{}
	}
	return s
}

// Has reports whether m is in the set.
func (s MetricSet) Has(m Metric) bool {
	_, ok := s[m]
	return ok
}

// Add inserts m.
func (s MetricSet) Add(m Metric) {
	s[m] = struct{}{}
}

// Sorted returns the members in name order.
func (s MetricSet) Sorted() []Metric {
	out := make([]Metric, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// String lists the members comma separated.
func (s MetricSet) String() string {
	names := make([]string, 0, len(s))
	for _, m := range s.Sorted() {
		names = append(names, string(m))
	}
	return strings.Join(names, ",")
}

// Metrics is the complete measurement bundle of a session.
type Metrics struct {
	DurationMinutes float64 `json:"duration_minutes"`
	Views           int     `json:"views"`
	UniqueViewers   int     `json:"unique_viewers"`
	Likes           int     `json:"likes"`
	Comments        int     `json:"comments"`
	Revenue         float64 `json:"revenue"`
	ConversionRate  float64 `json:"conversion_rate"`
	EngagementRate  float64 `json:"engagement_rate"`
}

// Value returns the named metric as a float.
func (m Metrics) Value(metric Metric) (float64, bool) {
	switch metric {
	case MetricDuration:
		return m.DurationMinutes, true
	case MetricViews:
		return float64(m.Views), true
	case MetricUniqueViewers:
		return float64(m.UniqueViewers), true
	case MetricLikes:
		return float64(m.Likes), true
	case MetricComments:
		return float64(m.Comments), true
	case MetricRevenue:
		return m.Revenue, true
	case MetricConversionRate:
		return m.ConversionRate, true
	case MetricEngagementRate:
		return m.EngagementRate, true
	default:
		return 0, false
	}
}

// Session is one livestream broadcast.
type Session struct {
	ID         string       `json:"id"`
	CreatorID  string       `json:"creator_id"`
	CustomerID string       `json:"customer_id,omitempty"`
	OrderID    string       `json:"order_id,omitempty"`
	Date       time.Time    `json:"date"`
	Hour       int          `json:"hour"`
	TimeSlot   TimeSlot     `json:"time_slot"`
	Weekday    time.Weekday `json:"weekday"`
	Category   string       `json:"category"`
	Metrics    Metrics      `json:"metrics"`

	// Observed lists metrics that came from source data. Everything else in
	// Metrics was filled by the fill policy.
	Observed MetricSet `json:"-"`
}

// Month returns the session month as YYYY-MM.
func (s Session) Month() string {
	return s.Date.Format("2006-01")
}

// Filled returns the session metrics that were not observed.
func (s Session) Filled() []Metric {
	var out []Metric
	for _, m := range SessionMetrics() {
		if !s.Observed.Has(m) {
			out = append(out, m)
		}
	}
	return out
}
