package recommend

import (
	"fmt"
	"slices"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/errors"
	"github.com/listenupapp/liveplan/internal/outcome"
)

// topCategories ranks categories by revenue per minute, with each category's
// revenue trend and best converting slot.
func (b *Builder) topCategories(res *analysis.Result) outcome.Result[[]CategoryPick] {
	summary := res.Sheet(analysis.WorkbookCategories, analysis.SheetCategorySummary)
	if summary.Len() == 0 {
		var picks []CategoryPick
		for _, name := range category.Fallbacks()[:TopCategories] {
			picks = append(picks, CategoryPick{Name: name, Trend: TrendStable, BestSlot: domain.FlexibleSlot})
		}
		return outcome.Failed(picks, outcome.ReasonEmptyResult,
			errors.EmptyResult("no category performance rows; using default categories"))
	}
	trend := res.Sheet(analysis.WorkbookCategories, analysis.SheetCategoryTrend)
	slots := res.Sheet(analysis.WorkbookTimeSlots, analysis.SheetCategoryTimeSlots)

	ranked := aggregate.Top(aggregate.Rank(summary, b.fb), TopCategories)
	picks := make([]CategoryPick, 0, len(ranked))
	for _, row := range ranked {
		name := summary.KeyOf(row, aggregate.DimCategory)
		rpm, _ := summary.Value(row, aggregate.ColumnRPM)
		revenue, _ := summary.Value(row, string(domain.MetricRevenue))
		picks = append(picks, CategoryPick{
			Name:  name,
			Trend: categoryTrend(trend, name),
			BestSlot: bestKey(slots, map[aggregate.Dimension]string{aggregate.DimCategory: name},
				aggregate.DimTimeSlot, string(domain.MetricConversionRate), domain.FlexibleSlot),
			RPM:     rpm,
			Revenue: revenue,
		})
	}
	return outcome.Ok(picks)
}

// categoryTrend compares mean monthly revenue of the earlier and later half
// of the category's months. One month or none is stable.
func categoryTrend(t *aggregate.Table, name string) Trend {
	if t == nil {
		return TrendStable
	}
	var monthly []float64
	for _, row := range t.Rows {
		if t.KeyOf(row, aggregate.DimCategory) != name {
			continue
		}
		if v, ok := t.Value(row, string(domain.MetricRevenue)); ok {
			monthly = append(monthly, v)
		}
	}
	if len(monthly) <= 1 {
		return TrendStable
	}
	half := len(monthly) / 2
	if mean(monthly[half:]) > mean(monthly[:half]) {
		return TrendIncreasing
	}
	return TrendDecreasing
}

// crossPromotion returns the most frequent category pairs. Without any
// co-occurrence every pair of the top categories is suggested instead.
func crossPromotion(res *analysis.Result, top []CategoryPick) outcome.Result[[]analysis.Pair] {
	sheet := res.Sheet(analysis.WorkbookCategories, analysis.SheetCrossPromotion)
	if sheet.Len() > 0 {
		var pairs []analysis.Pair
		for _, row := range aggregate.Top(sheet.Rows, CrossPromotionPairs) {
			pairs = append(pairs, analysis.NewPair(
				sheet.KeyOf(row, aggregate.DimCategory),
				sheet.KeyOf(row, aggregate.DimPairedCategory),
			))
		}
		return outcome.Ok(pairs)
	}

	names := make([]string, 0, len(top))
	for _, c := range top {
		names = append(names, c.Name)
	}
	for _, name := range category.Fallbacks() {
		if len(names) >= 2 {
			break
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	var pairs []analysis.Pair
	for i := range names {
		for j := i + 1; j < len(names) && len(pairs) < CrossPromotionPairs; j++ {
			pairs = append(pairs, analysis.NewPair(names[i], names[j]))
		}
	}
	return outcome.Degraded(pairs, outcome.ReasonFallbackUsed,
		fmt.Errorf("no co-occurring categories; pairing the %d top categories", len(names)))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
