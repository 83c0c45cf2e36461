package aggregate

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/listenupapp/liveplan/internal/domain"
)

// Kind is how a metric is reduced within a group.
type Kind string

// Reduction kinds.
const (
	KindSum   Kind = "sum"
	KindMean  Kind = "mean"
	KindRatio Kind = "ratio"
	KindCount Kind = "count"
)

// KindOf returns the default reduction of m: rates and scores are averaged,
// everything else is summed.
func KindOf(m domain.Metric) Kind {
	switch m {
	case domain.MetricConversionRate, domain.MetricEngagementRate, domain.MetricScore:
		return KindMean
	case domain.MetricRevenuePerMinute:
		return KindRatio
	default:
		return KindSum
	}
}

// Measure is a metric with its reduction.
type Measure struct {
	Metric domain.Metric
	Kind   Kind
}

// Sum sums m.
func Sum(m domain.Metric) Measure { return Measure{Metric: m, Kind: KindSum} }

// Mean averages m.
func Mean(m domain.Metric) Measure { return Measure{Metric: m, Kind: KindMean} }

// Default reduces m with its declared kind.
func Default(m domain.Metric) Measure { return Measure{Metric: m, Kind: KindOf(m)} }

// Name is the column header. Non-default reductions carry a suffix, so the
// mean of revenue is "revenue_mean".
func (m Measure) Name() string {
	if m.Kind == KindOf(m.Metric) {
		return string(m.Metric)
	}
	return string(m.Metric) + "_" + string(m.Kind)
}

// Column names for derived values.
const (
	ColumnRPM         = string(domain.MetricRevenuePerMinute)
	ColumnCount       = "count"
	ColumnPlaceholder = "rpm_placeholder"
)

// Column is one value column of a table.
type Column struct {
	Name   string        `json:"name"`
	Metric domain.Metric `json:"metric,omitempty"`
	Kind   Kind          `json:"kind"`
}

// Row is one group. Values align with the table's columns.
type Row struct {
	Keys   []string  `json:"keys"`
	Values []float64 `json:"values"`
	// Count is the number of records in the group.
	Count int `json:"count"`
	// RPMPlaceholder marks a revenue-per-minute value substituted because the
	// group had no duration.
	RPMPlaceholder bool `json:"rpm_placeholder,omitempty"`
}

// Key joins the row's keys for display.
func (r Row) Key() string {
	return strings.Join(r.Keys, " / ")
}

// Name returns the last key, the entity the row describes.
func (r Row) Name() string {
	if len(r.Keys) == 0 {
		return ""
	}
	return r.Keys[len(r.Keys)-1]
}

// Table is the result of an aggregation.
type Table struct {
	Name       string      `json:"name"`
	Dimensions []Dimension `json:"dimensions"`
	Columns    []Column    `json:"columns"`
	Rows       []Row       `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	return slices.IndexFunc(t.Columns, func(c Column) bool { return c.Name == name })
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	return t != nil && t.Column(name) >= 0
}

// Dimension returns the key position of d, or -1.
func (t *Table) Dimension(d Dimension) int {
	return slices.Index(t.Dimensions, d)
}

// Value returns the named column of r.
func (t *Table) Value(r Row, name string) (float64, bool) {
	i := t.Column(name)
	if i < 0 || i >= len(r.Values) {
		return 0, false
	}
	return r.Values[i], true
}

// KeyOf returns the key of r for dimension d.
func (t *Table) KeyOf(r Row, d Dimension) string {
	i := t.Dimension(d)
	if i < 0 || i >= len(r.Keys) {
		return ""
	}
	return r.Keys[i]
}

// Find returns the row with exactly these keys.
func (t *Table) Find(keys ...string) (Row, bool) {
	for _, r := range t.Rows {
		if slices.Equal(r.Keys, keys) {
			return r, true
		}
	}
	return Row{}, false
}

// Filter returns a table holding the rows matching keep.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{Name: t.Name, Dimensions: t.Dimensions, Columns: t.Columns}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Header returns the dimension and column names. Tables with revenue per
// minute end with the placeholder flag.
func (t *Table) Header() []string {
	h := make([]string, 0, len(t.Dimensions)+len(t.Columns)+1)
	for _, d := range t.Dimensions {
		h = append(h, string(d))
	}
	for _, c := range t.Columns {
		h = append(h, c.Name)
	}
	if t.HasColumn(ColumnRPM) {
		h = append(h, ColumnPlaceholder)
	}
	return h
}

// Records renders the rows as text cells matching Header.
func (t *Table) Records() [][]string {
	rpm := t.HasColumn(ColumnRPM)
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := slices.Clone(r.Keys)
		for i, c := range t.Columns {
			rec = append(rec, FormatValue(c.Kind, r.Values[i]))
		}
		if rpm {
			rec = append(rec, strconv.FormatBool(r.RPMPlaceholder))
		}
		out = append(out, rec)
	}
	return out
}

// FormatValue renders a cell. Counts print as integers, everything else with
// up to six decimals.
func FormatValue(kind Kind, v float64) string {
	if kind == KindCount {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
