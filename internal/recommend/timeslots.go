package recommend

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/errors"
	"github.com/listenupapp/liveplan/internal/outcome"
)

// slotSummary reads the weekday × slot revenue heatmap: the best and worst
// slot by column mean and the best day by row mean.
func slotSummary(res *analysis.Result) outcome.Result[SlotSummary] {
	fallback := SlotSummary{Best: domain.SlotMorning, Worst: domain.SlotNight, BestDay: time.Monday}

	heat := res.Sheet(analysis.WorkbookTimeSlots, analysis.SheetHeatmap)
	m, ok := pivot(heat, aggregate.DimWeekday, aggregate.DimTimeSlot, string(domain.MetricRevenue))
	if !ok {
		return outcome.Failed(fallback, outcome.ReasonEmptyResult, errors.EmptyResult("no time slot revenue"))
	}

	cols := m.ColMeans()
	best, worst := 0, 0
	for j := range cols {
		if cols[j] > cols[best] {
			best = j
		}
		if cols[j] < cols[worst] {
			worst = j
		}
	}
	rows := m.RowMeans()
	bestDay := 0
	for i := range rows {
		if rows[i] > rows[bestDay] {
			bestDay = i
		}
	}

	out := fallback
	if s, err := domain.ParseTimeSlot(m.Cols[best]); err == nil {
		out.Best = s
	}
	if s, err := domain.ParseTimeSlot(m.Cols[worst]); err == nil {
		out.Worst = s
	}
	if d, err := domain.ParseWeekday(m.Rows[bestDay]); err == nil {
		out.BestDay = d
	}
	return outcome.Ok(out)
}

// bestHours picks, for every day, the hour with the highest mean conversion
// rate. Days without data get their realistic hour.
func bestHours(res *analysis.Result) outcome.Result[[]HourPick] {
	hd := res.Sheet(analysis.WorkbookTimeSlots, analysis.SheetHourDay)
	m, ok := pivot(hd, aggregate.DimHour, aggregate.DimWeekday, string(domain.MetricConversionRate))

	picks := make([]HourPick, 0, 7)
	missing := 0
	for _, day := range domain.Weekdays() {
		hour, found := -1, false
		if ok {
			best := 0.0
			for _, key := range m.Rows {
				v, present := m.Get(key, day.String())
				if !present || (found && v <= best) {
					continue
				}
				h, err := strconv.Atoi(key)
				if err != nil {
					continue
				}
				hour, best, found = h, v, true
			}
		}
		pick := HourPick{Day: day, Hour: hour}
		if !found {
			pick.Hour = RealisticHour(day)
			pick.Fallback = true
			missing++
		}
		pick.Description = HourDescription(pick.Hour)
		picks = append(picks, pick)
	}

	switch {
	case missing == len(picks):
		return outcome.Failed(picks, outcome.ReasonEmptyResult,
			errors.EmptyResult("no hourly conversion data; using realistic hours"))
	case missing > 0:
		return outcome.Degraded(picks, outcome.ReasonFallbackUsed,
			fmt.Errorf("%d days without hourly data use realistic hours", missing))
	default:
		return outcome.Ok(picks)
	}
}

type cellScore struct {
	category string
	slot     int
	revenue  float64
}

// calendar schedules the category × slot cells of the top revenue categories,
// best first, round-robin over the week. Cells left empty get one fallback
// category each, rotating through the list.
func calendar(res *analysis.Result) outcome.Result[Calendar] {
	slots := res.Sheet(analysis.WorkbookTimeSlots, analysis.SheetCategoryTimeSlots)
	if slots.Len() == 0 {
		return outcome.Failed(fillCalendar(Calendar{}), outcome.ReasonEmptyResult,
			errors.EmptyResult("no category time slot data; calendar uses default categories"))
	}

	totals := categoryRevenue(res.Sheet(analysis.WorkbookCategories, analysis.SheetCategoryTrend))
	if len(totals) == 0 {
		totals = categoryRevenue(slots)
	}
	top := rankTotals(totals)
	if len(top) > CalendarCategories {
		top = top[:CalendarCategories]
	}

	var cells []cellScore
	for _, cat := range top {
		for j, slot := range domain.TimeSlots() {
			row, ok := slots.Find(cat, string(slot))
			if !ok {
				continue
			}
			v, _ := slots.Value(row, string(domain.MetricRevenue))
			cells = append(cells, cellScore{category: cat, slot: j, revenue: v})
		}
	}
	slices.SortStableFunc(cells, func(a, b cellScore) int {
		if c := cmp.Compare(b.revenue, a.revenue); c != 0 {
			return c
		}
		if c := cmp.Compare(a.category, b.category); c != 0 {
			return c
		}
		return cmp.Compare(a.slot, b.slot)
	})

	var cal Calendar
	for i, c := range cells {
		day := i % len(cal)
		cal[day][c.slot] = append(cal[day][c.slot], c.category)
	}
	return outcome.Ok(fillCalendar(cal))
}

func fillCalendar(cal Calendar) Calendar {
	fallbacks := category.Fallbacks()
	for d := range cal {
		for s := range cal[d] {
			if len(cal[d][s]) == 0 {
				cal[d][s] = []string{fallbacks[(d*len(cal[d])+s)%len(fallbacks)]}
			}
		}
	}
	return cal
}

func categoryRevenue(t *aggregate.Table) map[string]float64 {
	totals := make(map[string]float64)
	if t == nil {
		return totals
	}
	for _, row := range t.Rows {
		if v, ok := t.Value(row, string(domain.MetricRevenue)); ok {
			totals[t.KeyOf(row, aggregate.DimCategory)] += v
		}
	}
	return totals
}

func rankTotals(totals map[string]float64) []string {
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(totals[b], totals[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return names
}

// pivot is aggregate.Pivot that also rejects empty tables.
func pivot(t *aggregate.Table, rowDim, colDim aggregate.Dimension, column string) (*aggregate.Matrix, bool) {
	if t.Len() == 0 {
		return nil, false
	}
	m, ok := aggregate.Pivot(t, rowDim, colDim, column)
	if !ok || len(m.Rows) == 0 || len(m.Cols) == 0 {
		return nil, false
	}
	return m, true
}
