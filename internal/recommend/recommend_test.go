package recommend

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/sample"
	"github.com/listenupapp/liveplan/internal/session"
)

func newTestBuilder(t *testing.T) (*Builder, fallback.Provider, *slog.Logger) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fb, err := fallback.New(fallback.Config{Mode: fallback.ModeMidpoint}, logger)
	require.NoError(t, err)
	return New(fb, logger), fb, logger
}

// table builds a sheet whose rows are keys followed by column values.
func table(name string, dims []aggregate.Dimension, cols []string, rows ...[]any) *aggregate.Table {
	t := &aggregate.Table{Name: name, Dimensions: dims}
	for _, c := range cols {
		t.Columns = append(t.Columns, aggregate.Column{Name: c, Kind: aggregate.KindSum})
	}
	for _, r := range rows {
		var row aggregate.Row
		for _, k := range r[:len(dims)] {
			row.Keys = append(row.Keys, k.(string))
		}
		for _, v := range r[len(dims):] {
			row.Values = append(row.Values, v.(float64))
		}
		row.Count = 1
		t.Rows = append(t.Rows, row)
	}
	return t
}

func resultWith(workbook string, sheets ...*aggregate.Table) *analysis.Result {
	return &analysis.Result{Workbooks: []*analysis.Workbook{{Name: workbook, Sheets: sheets}}}
}

func TestBuild_Sample(t *testing.T) {
	b, fb, logger := newTestBuilder(t)
	ctx := context.Background()

	ds := sample.New(sample.DefaultSeed).Dataset()
	synth, err := session.New(session.Config{SampleLimit: session.DefaultSampleLimit}, fb, logger).Run(ctx, ds)
	require.NoError(t, err)
	res, err := analysis.New(aggregate.NewEngine(fb, logger), fb, logger).Run(ctx, analysis.Input{
		Dataset: ds, Sessions: synth.Sessions, Engagement: synth.Engagement,
	})
	require.NoError(t, err)

	plan, err := b.Build(ctx, res, len(synth.Sessions))
	require.NoError(t, err)
	assert.True(t, plan.HasData())

	require.Equal(t, outcome.StatusOK, plan.Creators.Status)
	assert.NotEmpty(t, plan.Creators.Value)
	assert.LessOrEqual(t, len(plan.Creators.Value), TopCreatorsChart)
	for i := 1; i < len(plan.Creators.Value); i++ {
		assert.GreaterOrEqual(t, plan.Creators.Value[i-1].RPM, plan.Creators.Value[i].RPM)
	}
	for _, c := range plan.Creators.Value {
		assert.NotEmpty(t, c.BestCategory)
		assert.NotEmpty(t, c.BestSlot)
	}

	assert.Equal(t, outcome.StatusOK, plan.Categories.Status)
	assert.LessOrEqual(t, len(plan.Categories.Value), TopCategories)
	assert.NotEmpty(t, plan.CrossPromotion.Value)
	assert.LessOrEqual(t, len(plan.CrossPromotion.Value), CrossPromotionPairs)

	assert.Len(t, plan.TierStrategies, 3)
	assert.Len(t, plan.TierEngagementStrategies, 3)
	assert.Len(t, plan.BestHours.Value, 7)
	assertCalendarFilled(t, plan.Calendar.Value)

	assert.Equal(t, outcome.StatusOK, plan.EngagementDriven.Status)
	assert.LessOrEqual(t, len(plan.EngagementDriven.Value), EngagementCategories)
	assert.LessOrEqual(t, len(plan.Seasonal.Value), SeasonalCategories)
}

func TestBuild_EmptyAnalysisUsesFallbacks(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	plan, err := b.Build(context.Background(), &analysis.Result{}, 0)
	require.NoError(t, err)
	assert.False(t, plan.HasData())

	assert.Equal(t, outcome.StatusFailed, plan.Creators.Status)
	require.Len(t, plan.Creators.Value, 3)
	assert.Equal(t, "Top Tier - Creator-1", plan.Creators.Value[0].Label())
	assert.True(t, plan.Creators.Value[0].Placeholder)

	assert.Equal(t, outcome.StatusFailed, plan.Categories.Status)
	require.Len(t, plan.Categories.Value, TopCategories)
	assert.Equal(t, category.Fallbacks()[0], plan.Categories.Value[0].Name)
	assert.Equal(t, TrendStable, plan.Categories.Value[0].Trend)

	assert.Equal(t, outcome.StatusDegraded, plan.CrossPromotion.Status)
	assert.Len(t, plan.CrossPromotion.Value, 10)

	assert.Equal(t, outcome.StatusFailed, plan.Slots.Status)
	assert.Equal(t, SlotSummary{Best: domain.SlotMorning, Worst: domain.SlotNight, BestDay: time.Monday}, plan.Slots.Value)

	assert.Equal(t, outcome.StatusFailed, plan.BestHours.Status)
	require.Len(t, plan.BestHours.Value, 7)
	for _, h := range plan.BestHours.Value {
		assert.True(t, h.Fallback)
		assert.Equal(t, RealisticHour(h.Day), h.Hour)
	}
	assert.Equal(t, "8:00", plan.BestHours.Value[0].Clock())
	assert.Equal(t, "Morning commute/Early work hours", plan.BestHours.Value[0].Description)

	assert.Equal(t, outcome.StatusFailed, plan.Calendar.Status)
	assertCalendarFilled(t, plan.Calendar.Value)
	assert.Equal(t, []string{category.Fallbacks()[0]}, plan.Calendar.Value.Get(time.Monday, domain.SlotMorning))
	assert.Equal(t, []string{category.Fallbacks()[4]}, plan.Calendar.Value.Get(time.Tuesday, domain.SlotMorning))

	assert.Equal(t, outcome.StatusSkipped, plan.EngagementDriven.Status)
	assert.Equal(t, outcome.StatusSkipped, plan.Seasonal.Status)
	assert.Len(t, plan.TierStrategies, 3)
}

func TestBuild_Canceled(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, &analysis.Result{}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func assertCalendarFilled(t *testing.T, cal Calendar) {
	t.Helper()
	for _, day := range domain.Weekdays() {
		for _, slot := range domain.TimeSlots() {
			assert.NotEmpty(t, cal.Get(day, slot), "%s %s", day, slot)
		}
	}
}

func TestTopCreators_BestLabels(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	dims := []aggregate.Dimension{aggregate.DimTier, aggregate.DimCreator}
	res := resultWith(analysis.WorkbookCreators,
		table(analysis.SheetTopCreators, dims, []string{"revenue", aggregate.ColumnRPM},
			[]any{"Top", "Ann", 100.0, 2.0},
			[]any{"Mid", "Bob", 300.0, 4.0},
		),
		table(analysis.SheetCreatorCategories,
			[]aggregate.Dimension{aggregate.DimTier, aggregate.DimCreator, aggregate.DimCategory},
			[]string{"revenue", aggregate.ColumnRPM},
			[]any{"Top", "Ann", "Beauty", 60.0, 1.5},
			[]any{"Top", "Ann", "Gaming", 40.0, 3.0},
			[]any{"Mid", "Bob", "nan", 300.0, 4.0},
		),
		table(analysis.SheetCreatorTimeSlots,
			[]aggregate.Dimension{aggregate.DimTier, aggregate.DimCreator, aggregate.DimTimeSlot},
			[]string{"revenue", aggregate.ColumnRPM},
			[]any{"Top", "Ann", "Morning", 30.0, 1.0},
			[]any{"Top", "Ann", "Evening", 70.0, 2.5},
		),
	)

	r := b.topCreators(res)
	require.Equal(t, outcome.StatusOK, r.Status)
	require.Len(t, r.Value, 2)

	assert.Equal(t, "Mid Tier - Bob", r.Value[0].Label())
	assert.Equal(t, domain.VariousCategory, r.Value[0].BestCategory)
	assert.Equal(t, domain.FlexibleSlot, r.Value[0].BestSlot)

	assert.Equal(t, "Gaming", r.Value[1].BestCategory)
	assert.Equal(t, "Evening", r.Value[1].BestSlot)
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Beauty", "Beauty"},
		{"  Home ", "Home"},
		{"", "Various"},
		{"x", "Various"},
		{" y ", "Various"},
		{"nan", "Various"},
		{"NaN", "Various"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clean(tt.in, domain.VariousCategory), "%q", tt.in)
	}
}

func TestCategoryTrend(t *testing.T) {
	dims := []aggregate.Dimension{aggregate.DimCategory, aggregate.DimMonth}
	trend := table(analysis.SheetCategoryTrend, dims, []string{"revenue"},
		[]any{"Beauty", "2024-01", 10.0},
		[]any{"Beauty", "2024-02", 20.0},
		[]any{"Beauty", "2024-03", 30.0},
		[]any{"Home", "2024-01", 50.0},
		[]any{"Home", "2024-02", 10.0},
		[]any{"Pets", "2024-05", 10.0},
	)

	assert.Equal(t, TrendIncreasing, categoryTrend(trend, "Beauty"))
	assert.Equal(t, TrendDecreasing, categoryTrend(trend, "Home"))
	assert.Equal(t, TrendStable, categoryTrend(trend, "Pets"))
	assert.Equal(t, TrendStable, categoryTrend(trend, "Gaming"))
	assert.Equal(t, TrendStable, categoryTrend(nil, "Beauty"))
}

func TestCrossPromotion_PairsTopCategoriesWithoutData(t *testing.T) {
	r := crossPromotion(&analysis.Result{}, []CategoryPick{{Name: "Beauty"}})
	assert.Equal(t, outcome.StatusDegraded, r.Status)
	require.Len(t, r.Value, 1)
	assert.Equal(t, "Beauty + Electronics", r.Value[0].String())

	r = crossPromotion(&analysis.Result{}, []CategoryPick{{Name: "A"}, {Name: "B"}, {Name: "C"}})
	assert.Len(t, r.Value, 3)
}

func TestSlotSummary(t *testing.T) {
	dims := []aggregate.Dimension{aggregate.DimWeekday, aggregate.DimTimeSlot}
	res := resultWith(analysis.WorkbookTimeSlots,
		table(analysis.SheetHeatmap, dims, []string{"revenue"},
			[]any{"Monday", "Morning", 10.0},
			[]any{"Monday", "Evening", 50.0},
			[]any{"Friday", "Evening", 70.0},
			[]any{"Friday", "Night", 5.0},
		),
	)

	r := slotSummary(res)
	require.Equal(t, outcome.StatusOK, r.Status)
	assert.Equal(t, domain.SlotEvening, r.Value.Best)
	assert.Equal(t, domain.SlotNight, r.Value.Worst)
	assert.Equal(t, time.Friday, r.Value.BestDay)
}

func TestBestHours_PartialFallback(t *testing.T) {
	dims := []aggregate.Dimension{aggregate.DimHour, aggregate.DimWeekday}
	res := resultWith(analysis.WorkbookTimeSlots,
		table(analysis.SheetHourDay, dims, []string{"revenue_mean", "conversion_rate"},
			[]any{"9", "Monday", 10.0, 0.1},
			[]any{"14", "Monday", 10.0, 0.3},
			[]any{"20", "Monday", 10.0, 0.3},
		),
	)

	r := bestHours(res)
	assert.Equal(t, outcome.StatusDegraded, r.Status)
	require.Len(t, r.Value, 7)
	assert.Equal(t, HourPick{Day: time.Monday, Hour: 14, Description: "Peak viewing hours"}, r.Value[0])
	assert.Equal(t, 12, r.Value[1].Hour)
	assert.True(t, r.Value[1].Fallback)
}

func TestCalendar_RoundRobin(t *testing.T) {
	dims := []aggregate.Dimension{aggregate.DimCategory, aggregate.DimTimeSlot}
	res := resultWith(analysis.WorkbookTimeSlots,
		table(analysis.SheetCategoryTimeSlots, dims, []string{"revenue", "conversion_rate"},
			[]any{"Gaming", "Evening", 500.0, 0.1},
			[]any{"Gaming", "Night", 300.0, 0.1},
			[]any{"Toys", "Morning", 400.0, 0.1},
		),
	)

	r := calendar(res)
	require.Equal(t, outcome.StatusOK, r.Status)
	cal := r.Value
	assert.Equal(t, []string{"Gaming"}, cal.Get(time.Monday, domain.SlotEvening))
	assert.Equal(t, []string{"Toys"}, cal.Get(time.Tuesday, domain.SlotMorning))
	assert.Equal(t, []string{"Gaming"}, cal.Get(time.Wednesday, domain.SlotNight))
	assert.Equal(t, []string{category.Fallbacks()[0]}, cal.Get(time.Monday, domain.SlotMorning))
	assertCalendarFilled(t, cal)
}

func TestEngagementDriven_LiftThreshold(t *testing.T) {
	dims := []aggregate.Dimension{aggregate.DimCategory, aggregate.DimEngagementLevel}
	res := resultWith(analysis.WorkbookEngagement,
		table(analysis.SheetEngagementConversion, dims, []string{"conversion_rate"},
			[]any{"Beauty", "Low", 0.10},
			[]any{"Beauty", "Very High", 0.13},
			[]any{"Home", "Low", 0.10},
			[]any{"Home", "High", 0.11},
			[]any{"Kitchen", "Low", 0.20},
			[]any{"Kitchen", "Very High", 0.10},
			[]any{"Pets", "Low", 0.05},
			[]any{"Pets", "Medium", 0.10},
			[]any{"Pets", "Very High", 0.20},
			[]any{"Toys", "Medium", 0.30},
		),
	)

	r := engagementDriven(res)
	require.Equal(t, outcome.StatusOK, r.Status)
	require.Len(t, r.Value, 2)
	assert.Equal(t, "Pets", r.Value[0].Category)
	assert.InDelta(t, 0.15, r.Value[0].Lift, 1e-9)
	assert.Equal(t, EngagementTactics()[0], r.Value[0].Tactic)
	assert.Equal(t, "Beauty", r.Value[1].Category)
	assert.Equal(t, EngagementTactics()[1], r.Value[1].Tactic)
}

func TestSeasonal(t *testing.T) {
	dims := []aggregate.Dimension{aggregate.DimCategory, aggregate.DimMonth}
	cols := []string{"engagement_rate", "conversion_rate"}

	short := resultWith(analysis.WorkbookEngagement, table(analysis.SheetEngagementTrend, dims, cols,
		[]any{"Beauty", "2024-01", 0.1, 0.1},
		[]any{"Beauty", "2024-02", 0.2, 0.1},
		[]any{"Beauty", "2024-03", 0.3, 0.1},
	))
	assert.Equal(t, outcome.StatusSkipped, seasonal(short).Status)

	res := resultWith(analysis.WorkbookEngagement, table(analysis.SheetEngagementTrend, dims, cols,
		[]any{"Beauty", "2024-01", 0.1, 0.1},
		[]any{"Beauty", "2024-02", 0.1, 0.1},
		[]any{"Beauty", "2024-04", 0.5, 0.1},
		[]any{"Beauty", "2024-05", 0.4, 0.1},
		[]any{"Home", "2024-01", 0.1, 0.1},
		[]any{"Home", "2024-03", 0.1, 0.1},
	))
	r := seasonal(res)
	require.Equal(t, outcome.StatusOK, r.Status)
	require.Len(t, r.Value, 1)
	assert.Equal(t, "Beauty", r.Value[0].Category)
	assert.Equal(t, []string{"2024-04", "2024-05"}, r.Value[0].PeakMonths)
	assert.Equal(t, SeasonalStrategies()[0], r.Value[0].Strategy)
}
