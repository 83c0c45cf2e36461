package recommend

import (
	"strings"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/errors"
	"github.com/listenupapp/liveplan/internal/outcome"
)

// topCreators ranks creators by revenue per minute and attaches the category
// and slot each performs best in.
func (b *Builder) topCreators(res *analysis.Result) outcome.Result[[]CreatorPick] {
	top := res.Sheet(analysis.WorkbookCreators, analysis.SheetTopCreators)
	if top.Len() == 0 {
		return outcome.Failed(templateCreators(), outcome.ReasonEmptyResult,
			errors.EmptyResult("no creator performance rows; using template creators"))
	}
	byCategory := res.Sheet(analysis.WorkbookCreators, analysis.SheetCreatorCategories)
	bySlot := res.Sheet(analysis.WorkbookCreators, analysis.SheetCreatorTimeSlots)

	ranked := aggregate.Top(aggregate.Rank(top, b.fb), TopCreatorsChart)
	picks := make([]CreatorPick, 0, len(ranked))
	for _, row := range ranked {
		tier := top.KeyOf(row, aggregate.DimTier)
		name := top.KeyOf(row, aggregate.DimCreator)
		rpm, _ := top.Value(row, aggregate.ColumnRPM)
		revenue, _ := top.Value(row, string(domain.MetricRevenue))

		match := map[aggregate.Dimension]string{aggregate.DimTier: tier, aggregate.DimCreator: name}
		picks = append(picks, CreatorPick{
			Tier:         domain.Tier(tier),
			Name:         name,
			BestCategory: bestKey(byCategory, match, aggregate.DimCategory, aggregate.ColumnRPM, domain.VariousCategory),
			BestSlot:     bestKey(bySlot, match, aggregate.DimTimeSlot, string(domain.MetricRevenue), domain.FlexibleSlot),
			RPM:          rpm,
			Revenue:      revenue,
			Placeholder:  row.RPMPlaceholder,
		})
	}
	return outcome.Ok(picks)
}

// bestKey returns the target key of the row with the largest column value
// among rows matching every key in match. Earlier rows win ties. Degenerate
// labels become fallback.
func bestKey(t *aggregate.Table, match map[aggregate.Dimension]string, target aggregate.Dimension, column, fallback string) string {
	if t == nil {
		return fallback
	}
	best, bestValue, found := "", 0.0, false
	for _, row := range t.Rows {
		if !matches(t, row, match) {
			continue
		}
		v, ok := t.Value(row, column)
		if !ok {
			continue
		}
		if !found || v > bestValue {
			best, bestValue, found = t.KeyOf(row, target), v, true
		}
	}
	return clean(best, fallback)
}

func matches(t *aggregate.Table, row aggregate.Row, match map[aggregate.Dimension]string) bool {
	for d, want := range match {
		if t.KeyOf(row, d) != want {
			return false
		}
	}
	return true
}

// clean replaces empty, single-character and NaN labels.
func clean(label, fallback string) string {
	s := strings.TrimSpace(label)
	if len(s) <= 1 || strings.EqualFold(s, "nan") {
		return fallback
	}
	return s
}
