package recommend

import (
	"cmp"
	"slices"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/outcome"
)

// liftThreshold is how much the top engagement bin must out-convert the
// bottom one.
const liftThreshold = 1.2

// engagementDriven lists categories whose conversion rate at the highest
// engagement bin exceeds liftThreshold times the lowest bin. Lift is the
// absolute conversion gain between the two bins.
func engagementDriven(res *analysis.Result) outcome.Result[[]EngagementPick] {
	corr := res.Sheet(analysis.WorkbookEngagement, analysis.SheetEngagementConversion)
	if corr.Len() == 0 {
		return outcome.Skipped[[]EngagementPick](outcome.ReasonEmptyResult)
	}

	// Rows arrive grouped by category with bins in ascending order.
	byCategory := make(map[string][]float64)
	var order []string
	for _, row := range corr.Rows {
		v, ok := corr.Value(row, string(domain.MetricConversionRate))
		if !ok {
			continue
		}
		name := corr.KeyOf(row, aggregate.DimCategory)
		if _, seen := byCategory[name]; !seen {
			order = append(order, name)
		}
		byCategory[name] = append(byCategory[name], v)
	}

	var picks []EngagementPick
	for _, name := range order {
		rates := byCategory[name]
		if len(rates) < 2 {
			continue
		}
		low, high := rates[0], rates[len(rates)-1]
		if high > low && high > liftThreshold*low {
			picks = append(picks, EngagementPick{Category: name, Lift: high - low})
		}
	}
	slices.SortStableFunc(picks, func(a, b EngagementPick) int {
		if c := cmp.Compare(b.Lift, a.Lift); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	if len(picks) > EngagementCategories {
		picks = picks[:EngagementCategories]
	}

	tactics := EngagementTactics()
	for i := range picks {
		picks[i].Tactic = tactics[i%len(tactics)]
	}
	return outcome.Ok(picks)
}

// seasonal finds each category's peak quarter of engagement. Quarters are
// consecutive three-month windows of the observed months; at least four months
// are needed.
func seasonal(res *analysis.Result) outcome.Result[[]SeasonalPick] {
	trend := res.Sheet(analysis.WorkbookEngagement, analysis.SheetEngagementTrend)
	if trend.Len() == 0 {
		return outcome.Skipped[[]SeasonalPick](outcome.ReasonEmptyResult)
	}

	var months, categories []string
	rates := make(map[string]map[string]float64)
	for _, row := range trend.Rows {
		v, ok := trend.Value(row, string(domain.MetricEngagementRate))
		if !ok {
			continue
		}
		month := trend.KeyOf(row, aggregate.DimMonth)
		name := trend.KeyOf(row, aggregate.DimCategory)
		if !slices.Contains(months, month) {
			months = append(months, month)
		}
		if rates[name] == nil {
			rates[name] = make(map[string]float64)
			categories = append(categories, name)
		}
		rates[name][month] = v
	}
	if len(months) < 4 {
		return outcome.Skipped[[]SeasonalPick](outcome.ReasonEmptyResult)
	}
	slices.Sort(months)
	slices.Sort(categories)

	quarters := slices.Collect(slices.Chunk(months, 3))
	strategies := SeasonalStrategies()
	var picks []SeasonalPick
	for _, name := range categories {
		if len(picks) == SeasonalCategories {
			break
		}
		peak, best, counted := -1, 0.0, 0
		for qi, q := range quarters {
			var values []float64
			for _, m := range q {
				if v, ok := rates[name][m]; ok {
					values = append(values, v)
				}
			}
			if len(values) == 0 {
				continue
			}
			counted++
			if avg := mean(values); peak < 0 || avg > best {
				peak, best = qi, avg
			}
		}
		if counted < 2 {
			continue
		}
		picks = append(picks, SeasonalPick{
			Category:   name,
			PeakMonths: slices.Clone(quarters[peak]),
			Strategy:   strategies[len(picks)%len(strategies)],
		})
	}
	return outcome.Ok(picks)
}
