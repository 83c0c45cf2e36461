package aggregate

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/errors"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/outcome"
)

// Record is one input row: its dimension keys and metric values. A record
// missing a key for a requested dimension is left out of that aggregation; a
// missing or non-finite value is left out of that metric.
type Record struct {
	Keys   map[Dimension]string
	Values map[domain.Metric]float64
}

// Capabilities is the set of metrics a record source guarantees.
type Capabilities struct {
	Source  string
	metrics domain.MetricSet
}

// NewCapabilities declares the metrics of a source.
func NewCapabilities(source string, metrics ...domain.Metric) Capabilities {
	return Capabilities{Source: source, metrics: domain.NewMetricSet(metrics...)}
}

// SessionCapabilities covers completed sessions, which carry every metric.
func SessionCapabilities() Capabilities {
	return NewCapabilities("sessions", domain.SessionMetrics()...)
}

// OrderLineCapabilities covers order items.
func OrderLineCapabilities() Capabilities {
	return NewCapabilities("order_items", domain.MetricRevenue, domain.MetricQuantity)
}

// EngagementCapabilities covers engagement records.
func EngagementCapabilities() Capabilities {
	return NewCapabilities("engagement",
		domain.MetricLikes, domain.MetricComments, domain.MetricShares,
		domain.MetricScore, domain.MetricConversionRate,
	)
}

// Has reports whether the source guarantees m.
func (c Capabilities) Has(m domain.Metric) bool {
	return c.metrics.Has(m)
}

// Metrics lists the guaranteed metrics in name order.
func (c Capabilities) Metrics() []domain.Metric {
	return c.metrics.Sorted()
}

// Spec describes one aggregation.
type Spec struct {
	Name       string
	Dimensions []Dimension
	Measures   []Measure
	// RPM derives revenue per minute from summed revenue and duration.
	RPM bool
	// Count adds the group size as a column.
	Count bool
}

// Engine runs aggregations. Placeholder revenue-per-minute values come from
// the fallback provider.
type Engine struct {
	fb     fallback.Provider
	logger *slog.Logger
}

// NewEngine creates an engine.
func NewEngine(fb fallback.Provider, logger *slog.Logger) *Engine {
	return &Engine{fb: fb, logger: logger}
}

type group struct {
	keys     []string
	sums     []float64
	counts   []int
	revenue  float64
	duration float64
	n        int
}

// Aggregate groups records by spec's dimensions. Measures the capabilities do
// not cover are dropped; with nothing left the result is Skipped. A table
// without rows is Skipped with an empty table as its value. Rows whose revenue
// per minute had to be substituted make the result Degraded.
func (e *Engine) Aggregate(records []Record, spec Spec, caps Capabilities) outcome.Result[*Table] {
	measures := make([]Measure, 0, len(spec.Measures))
	var dropped []string
	for _, m := range spec.Measures {
		if caps.Has(m.Metric) {
			measures = append(measures, m)
		} else {
			dropped = append(dropped, m.Name())
		}
	}
	if len(dropped) > 0 {
		e.logger.Debug("metrics not available from source",
			"table", spec.Name,
			"source", caps.Source,
			"metrics", dropped,
		)
	}
	rpm := spec.RPM && caps.Has(domain.MetricRevenue) && caps.Has(domain.MetricDuration)

	if len(measures) == 0 && !rpm && !spec.Count {
		e.logger.Warn("aggregation skipped, no metrics available", "table", spec.Name, "source", caps.Source)
		return outcome.Result[*Table]{
			Status: outcome.StatusSkipped,
			Reason: outcome.ReasonMissingMetric,
			Err:    errors.EmptyResultf("%s: none of the requested metrics are available from %s", spec.Name, caps.Source),
		}
	}

	t := &Table{Name: spec.Name, Dimensions: slices.Clone(spec.Dimensions)}
	for _, m := range measures {
		t.Columns = append(t.Columns, Column{Name: m.Name(), Metric: m.Metric, Kind: m.Kind})
	}
	if rpm {
		t.Columns = append(t.Columns, Column{Name: ColumnRPM, Metric: domain.MetricRevenuePerMinute, Kind: KindRatio})
	}
	if spec.Count {
		t.Columns = append(t.Columns, Column{Name: ColumnCount, Kind: KindCount})
	}

	groups := make(map[string]*group)
	missingKey := 0
	for _, rec := range records {
		keys, ok := keysOf(rec, spec.Dimensions)
		if !ok {
			missingKey++
			continue
		}
		id := strings.Join(keys, "\x1f")
		g, ok := groups[id]
		if !ok {
			g = &group{keys: keys, sums: make([]float64, len(measures)), counts: make([]int, len(measures))}
			groups[id] = g
		}
		g.n++
		for i, m := range measures {
			if v, ok := finite(rec.Values, m.Metric); ok {
				g.sums[i] += v
				g.counts[i]++
			}
		}
		if rpm {
			if v, ok := finite(rec.Values, domain.MetricRevenue); ok {
				g.revenue += v
			}
			if v, ok := finite(rec.Values, domain.MetricDuration); ok {
				g.duration += v
			}
		}
	}
	if missingKey > 0 {
		e.logger.Debug("records without a grouping key left out", "table", spec.Name, "records", missingKey)
	}

	if len(groups) == 0 {
		e.logger.Info("aggregation produced no rows", "table", spec.Name)
		return outcome.Result[*Table]{
			Value:  t,
			Status: outcome.StatusSkipped,
			Reason: outcome.ReasonEmptyResult,
		}
	}

	placeholders := 0
	t.Rows = make([]Row, 0, len(groups))
	for _, g := range groups {
		row := Row{Keys: g.keys, Values: make([]float64, 0, len(t.Columns)), Count: g.n}
		for i, m := range measures {
			row.Values = append(row.Values, reduce(m.Kind, g.sums[i], g.counts[i]))
		}
		if rpm {
			v, ok := ratio(g.revenue, g.duration)
			if !ok {
				v = e.fb.Value(fallback.RevenuePerMinute, spec.Name+":"+strings.Join(g.keys, "/"))
				row.RPMPlaceholder = true
				placeholders++
			}
			row.Values = append(row.Values, v)
		}
		if spec.Count {
			row.Values = append(row.Values, float64(g.n))
		}
		t.Rows = append(t.Rows, row)
	}
	slices.SortFunc(t.Rows, func(a, b Row) int {
		return compareKeys(t.Dimensions, a.Keys, b.Keys)
	})

	e.logger.Debug("aggregated",
		"table", spec.Name,
		"records", len(records),
		"rows", len(t.Rows),
		"columns", len(t.Columns),
	)

	if placeholders > 0 {
		err := fmt.Errorf("%s: %d of %d rows have no duration; revenue per minute substituted",
			spec.Name, placeholders, len(t.Rows))
		return outcome.Degraded(t, outcome.ReasonFallbackUsed, err)
	}
	return outcome.Ok(t)
}

func keysOf(rec Record, dims []Dimension) ([]string, bool) {
	keys := make([]string, len(dims))
	for i, d := range dims {
		k := rec.Keys[d]
		if k == "" {
			return nil, false
		}
		keys[i] = k
	}
	return keys, true
}

func finite(values map[domain.Metric]float64, m domain.Metric) (float64, bool) {
	v, ok := values[m]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// reduce finishes a group's accumulated value. A mean over no values is 0.
func reduce(kind Kind, sum float64, n int) float64 {
	if kind == KindMean {
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	}
	return sum
}

// ratio divides when the result is finite and the denominator positive.
func ratio(num, den float64) (float64, bool) {
	if den <= 0 {
		return 0, false
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
