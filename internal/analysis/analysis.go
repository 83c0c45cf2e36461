// Package analysis builds the four analysis workbooks: creator, category,
// time slot and viewer engagement performance.
package analysis

import (
	"context"
	"log/slog"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/outcome"
)

const stage = "aggregate"

// Workbook names.
const (
	WorkbookCreators   = "creator_performance"
	WorkbookCategories = "category_performance"
	WorkbookTimeSlots  = "time_slot_performance"
	WorkbookEngagement = "viewer_engagement"
)

// Sheet names.
const (
	SheetCreatorTimeSlots     = "creator_time_slot_performance"
	SheetCreatorCategories    = "creator_category_performance"
	SheetTopCreators          = "top_creators"
	SheetCategorySummary      = "category_summary"
	SheetCategoryTrend        = "category_time_trend"
	SheetCrossPromotion       = "category_cross_promotion"
	SheetHeatmap              = "time_slot_heatmap"
	SheetHourDay              = "hour_day_performance"
	SheetCategoryTimeSlots    = "category_time_slot_performance"
	SheetEngagementConversion = "engagement_conversion_correlation"
	SheetEngagementByTier     = "engagement_by_tier"
	SheetEngagementTrend      = "engagement_time_trend"
	SheetEngagementLevels     = "engagement_level_summary"
)

// Workbooks returns the workbook names in output order.
func Workbooks() []string {
	return []string{WorkbookCreators, WorkbookCategories, WorkbookTimeSlots, WorkbookEngagement}
}

// Workbook is a named set of tables, one per sheet.
type Workbook struct {
	Name   string
	Sheets []*aggregate.Table
}

// Sheet returns the named sheet, or nil.
func (w *Workbook) Sheet(name string) *aggregate.Table {
	if w == nil {
		return nil
	}
	for _, s := range w.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Input is what the analysis reads.
type Input struct {
	Dataset    *domain.Dataset
	Sessions   []domain.Session
	Engagement []domain.EngagementRecord
}

// Result holds the workbooks and the outcome of every sheet.
type Result struct {
	Workbooks []*Workbook
	Notes     []outcome.Note
}

// Workbook returns the named workbook, or nil.
func (r *Result) Workbook(name string) *Workbook {
	if r == nil {
		return nil
	}
	for _, w := range r.Workbooks {
		if w.Name == name {
			return w
		}
	}
	return nil
}

// Sheet returns a sheet by workbook and sheet name, or nil.
func (r *Result) Sheet(workbook, sheet string) *aggregate.Table {
	return r.Workbook(workbook).Sheet(sheet)
}

type source int

const (
	fromSessions source = iota
	fromOrderLines
	fromEngagement
)

type sheetDef struct {
	workbook string
	source   source
	spec     aggregate.Spec
	ranked   bool
}

func performance() []aggregate.Measure {
	return []aggregate.Measure{
		aggregate.Default(domain.MetricRevenue),
		aggregate.Default(domain.MetricDuration),
		aggregate.Default(domain.MetricViews),
		aggregate.Default(domain.MetricEngagementRate),
		aggregate.Default(domain.MetricConversionRate),
	}
}

func dims(d ...aggregate.Dimension) []aggregate.Dimension { return d }

// sheets lists every grouped sheet in workbook order. The cross-promotion
// sheet is built separately.
func sheets() []sheetDef {
	return []sheetDef{
		{WorkbookCreators, fromSessions, aggregate.Spec{
			Name:       SheetCreatorTimeSlots,
			Dimensions: dims(aggregate.DimTier, aggregate.DimCreator, aggregate.DimTimeSlot),
			Measures:   performance(), RPM: true, Count: true,
		}, false},
		{WorkbookCreators, fromSessions, aggregate.Spec{
			Name:       SheetCreatorCategories,
			Dimensions: dims(aggregate.DimTier, aggregate.DimCreator, aggregate.DimCategory),
			Measures:   performance(), RPM: true, Count: true,
		}, false},
		{WorkbookCreators, fromSessions, aggregate.Spec{
			Name:       SheetTopCreators,
			Dimensions: dims(aggregate.DimTier, aggregate.DimCreator),
			Measures:   performance(), RPM: true, Count: true,
		}, true},

		{WorkbookCategories, fromSessions, aggregate.Spec{
			Name:       SheetCategorySummary,
			Dimensions: dims(aggregate.DimCategory),
			Measures:   performance(), RPM: true, Count: true,
		}, true},
		{WorkbookCategories, fromOrderLines, aggregate.Spec{
			Name:       SheetCategoryTrend,
			Dimensions: dims(aggregate.DimCategory, aggregate.DimMonth),
			Measures: []aggregate.Measure{
				aggregate.Default(domain.MetricRevenue),
				aggregate.Default(domain.MetricQuantity),
			},
		}, false},

		{WorkbookTimeSlots, fromSessions, aggregate.Spec{
			Name:       SheetHeatmap,
			Dimensions: dims(aggregate.DimWeekday, aggregate.DimTimeSlot),
			Measures:   []aggregate.Measure{aggregate.Sum(domain.MetricRevenue)},
			Count:      true,
		}, false},
		{WorkbookTimeSlots, fromSessions, aggregate.Spec{
			Name:       SheetHourDay,
			Dimensions: dims(aggregate.DimHour, aggregate.DimWeekday),
			Measures: []aggregate.Measure{
				aggregate.Mean(domain.MetricRevenue),
				aggregate.Mean(domain.MetricConversionRate),
			},
			Count: true,
		}, false},
		{WorkbookTimeSlots, fromSessions, aggregate.Spec{
			Name:       SheetCategoryTimeSlots,
			Dimensions: dims(aggregate.DimCategory, aggregate.DimTimeSlot),
			Measures: []aggregate.Measure{
				aggregate.Sum(domain.MetricRevenue),
				aggregate.Mean(domain.MetricConversionRate),
			},
			Count: true,
		}, false},

		{WorkbookEngagement, fromSessions, aggregate.Spec{
			Name:       SheetEngagementConversion,
			Dimensions: dims(aggregate.DimCategory, aggregate.DimEngagementLevel),
			Measures:   []aggregate.Measure{aggregate.Mean(domain.MetricConversionRate)},
			Count:      true,
		}, false},
		{WorkbookEngagement, fromSessions, aggregate.Spec{
			Name:       SheetEngagementByTier,
			Dimensions: dims(aggregate.DimTier),
			Measures: []aggregate.Measure{
				aggregate.Mean(domain.MetricEngagementRate),
				aggregate.Mean(domain.MetricConversionRate),
				aggregate.Sum(domain.MetricRevenue),
			},
		}, false},
		{WorkbookEngagement, fromSessions, aggregate.Spec{
			Name:       SheetEngagementTrend,
			Dimensions: dims(aggregate.DimCategory, aggregate.DimMonth),
			Measures: []aggregate.Measure{
				aggregate.Mean(domain.MetricEngagementRate),
				aggregate.Mean(domain.MetricConversionRate),
			},
		}, false},
		{WorkbookEngagement, fromEngagement, aggregate.Spec{
			Name:       SheetEngagementLevels,
			Dimensions: dims(aggregate.DimEngagementLevel),
			Measures: []aggregate.Measure{
				aggregate.Default(domain.MetricLikes),
				aggregate.Default(domain.MetricComments),
				aggregate.Default(domain.MetricShares),
				aggregate.Default(domain.MetricScore),
				aggregate.Default(domain.MetricConversionRate),
			},
			Count: true,
		}, false},
	}
}

// Analyzer runs the aggregations behind the workbooks.
type Analyzer struct {
	engine *aggregate.Engine
	fb     fallback.Provider
	logger *slog.Logger
}

// New creates an analyzer.
func New(engine *aggregate.Engine, fb fallback.Provider, logger *slog.Logger) *Analyzer {
	return &Analyzer{engine: engine, fb: fb, logger: logger}
}

// Run builds every workbook. Sheets whose aggregation was skipped for lack of
// metrics are left out; sheets without rows keep their header.
func (a *Analyzer) Run(ctx context.Context, in Input) (*Result, error) {
	ds := in.Dataset
	if ds == nil {
		ds = &domain.Dataset{}
	}
	creators := ds.CreatorIndex()
	records := map[source][]aggregate.Record{
		fromSessions:   aggregate.FromSessions(in.Sessions, creators),
		fromOrderLines: aggregate.FromOrderLines(ds),
		fromEngagement: aggregate.FromEngagement(in.Engagement, creators),
	}
	caps := map[source]aggregate.Capabilities{
		fromSessions:   aggregate.SessionCapabilities(),
		fromOrderLines: aggregate.OrderLineCapabilities(),
		fromEngagement: aggregate.EngagementCapabilities(),
	}

	res := &Result{}
	books := make(map[string]*Workbook)
	for _, name := range Workbooks() {
		w := &Workbook{Name: name}
		books[name] = w
		res.Workbooks = append(res.Workbooks, w)
	}

	add := func(workbook string, r outcome.Result[*aggregate.Table], subject string) {
		res.Notes = append(res.Notes, r.Note(stage, workbook+"/"+subject))
		if r.Value == nil {
			return
		}
		books[workbook].Sheets = append(books[workbook].Sheets, r.Value)
	}

	for _, def := range sheets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := a.engine.Aggregate(records[def.source], def.spec, caps[def.source])
		if def.ranked && r.Value != nil {
			r.Value = aggregate.Ranked(r.Value, a.fb)
		}
		add(def.workbook, r, def.spec.Name)

		// Cross-promotion follows the category trend in its workbook.
		if def.spec.Name == SheetCategoryTrend {
			add(WorkbookCategories, CrossPromotion(ds), SheetCrossPromotion)
		}
	}

	for _, w := range res.Workbooks {
		rows := 0
		for _, s := range w.Sheets {
			rows += s.Len()
		}
		a.logger.Info("workbook built", "workbook", w.Name, "sheets", len(w.Sheets), "rows", rows)
	}
	return res, nil
}
