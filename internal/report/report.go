// Package report renders the programming plan as a markdown strategy document.
package report

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/errors"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/recommend"
)

// DefaultTitle heads the document.
const DefaultTitle = "Livestream Programming Strategy"

// FileName is the document's name in the output directory.
const FileName = "programming_strategy.md"

// Config configures a Renderer.
type Config struct {
	Title string
	// Language selects number formatting and title casing.
	Language language.Tag
}

// Input is everything the document shows.
type Input struct {
	RunID       string
	GeneratedAt time.Time
	Plan        *recommend.Plan
	// Notes is the run's outcome log; degraded entries go to the appendix.
	Notes     []outcome.Note
	Fallbacks []fallback.Use
	// Charts are image paths relative to the document.
	Charts []string
}

// Renderer writes strategy documents.
type Renderer struct {
	title   string
	printer *message.Printer
	caser   cases.Caser
	logger  *slog.Logger
}

// New creates a renderer.
func New(cfg Config, logger *slog.Logger) *Renderer {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Language == language.Und {
		cfg.Language = language.English
	}
	return &Renderer{
		title:   cfg.Title,
		printer: message.NewPrinter(cfg.Language),
		caser:   cases.Title(cfg.Language),
		logger:  logger,
	}
}

// Render returns the markdown document.
func (r *Renderer) Render(in Input) string {
	d := &doc{p: r.printer}
	plan := in.Plan
	if plan == nil {
		plan = &recommend.Plan{}
	}

	r.header(d, in)
	if plan.HasData() {
		r.creators(d, plan)
		r.categories(d, plan)
		r.timeSlots(d, plan)
		r.engagement(d, plan)
	} else {
		for _, title := range sectionTitles {
			d.h(2, title)
			d.line(domain.NoDataAvailable)
			d.blank()
		}
	}
	r.visualizations(d, in.Charts)
	implementationPlan(d)
	measurementFramework(d)
	r.dataQuality(d, in)
	return d.String()
}

// WriteFile renders the document to path, creating its directory. It returns
// the rendered document, also when writing it fails; write failures carry
// CodeRenderFailed.
func (r *Renderer) WriteFile(ctx context.Context, path string, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body := r.Render(in)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return body, errors.Wrap(err, errors.CodeRenderFailed, "create report directory")
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return body, errors.Wrap(err, errors.CodeRenderFailed, "write report")
	}
	r.logger.Info("report written", "path", path, "bytes", len(body))
	return body, nil
}

//nolint:gochecknoglobals // Fixed section order.
var sectionTitles = []string{
	"1. Creator Programming Recommendations",
	"2. Category Programming Recommendations",
	"3. Time Slot Optimization",
	"4. Viewer Engagement Strategies",
}

func (r *Renderer) header(d *doc, in Input) {
	d.h(1, r.title)
	generated := in.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	d.line("### Generated on " + generated.Format("January 2, 2006"))
	d.blank()
	if in.RunID != "" {
		d.linef("Run `%s`, based on %d livestream sessions.", in.RunID, sessionCount(in.Plan))
		d.blank()
	}

	d.h(2, "Executive Summary")
	d.line("This document recommends a livestream programming schedule based on analysis of " +
		"creator performance, category trends, time slot effectiveness and viewer engagement.")
	d.blank()
	d.line("The recommendations cover four areas:")
	for _, title := range sectionTitles {
		d.line(title)
	}
	d.blank()
}

func (r *Renderer) creators(d *doc, p *recommend.Plan) {
	d.h(2, sectionTitles[0])

	creators := p.Creators.Value
	if len(creators) > recommend.TopCreators {
		creators = creators[:recommend.TopCreators]
	}

	d.h(3, "Top Performing Creators")
	d.line("The following creators earn the most revenue per minute and should be prioritized in programming:")
	d.blank()
	for i, c := range creators {
		d.linef("%d. **%s** - Best in: %s (%s/min)", i+1, c.Label(), c.BestCategory, d.money(c.RPM))
	}
	d.blank()

	d.h(3, "Creator Time Slot Optimization")
	d.line("Recommended time slots for key creators:")
	d.blank()
	for _, c := range creators {
		d.linef("* **%s**: %s", c.Label(), c.BestSlot)
	}
	d.blank()

	d.h(3, "Creator Tier Strategies")
	for _, s := range p.TierStrategies {
		d.h(4, string(s.Tier)+" Tier Creators")
		d.linef("* **Focus**: %s", s.Focus)
		d.linef("* **Frequency**: %s", s.Frequency)
		d.linef("* **Cross-Promotion**: %s", s.CrossPromotion)
		d.blank()
	}
}

func (r *Renderer) categories(d *doc, p *recommend.Plan) {
	d.h(2, sectionTitles[1])

	d.h(3, "Top Performing Categories")
	d.line("The following product categories show the strongest performance and should be prioritized:")
	d.blank()
	for i, c := range p.Categories.Value {
		d.linef("%d. **%s** - Trend: %s", i+1, c.Name, r.caser.String(string(c.Trend)))
	}
	d.blank()

	d.h(3, "Category Time Slot Optimization")
	d.line("Recommended time slots for key categories:")
	d.blank()
	for _, c := range p.Categories.Value {
		d.linef("* **%s**: %s", c.Name, c.BestSlot)
	}
	d.blank()

	d.h(3, "Category Cross-Promotion Opportunities")
	d.line("The following category pairings show strong potential for cross-promotion:")
	d.blank()
	for _, pair := range p.CrossPromotion.Value {
		d.linef("* **%s** + **%s**", pair.First, pair.Second)
	}
	d.blank()
}

func (r *Renderer) timeSlots(d *doc, p *recommend.Plan) {
	d.h(2, sectionTitles[2])

	s := p.Slots.Value
	d.h(3, "Overall Time Slot Performance")
	d.linef("- **Best performing time slot**: %s", s.Best)
	d.linef("- **Weakest performing time slot**: %s", s.Worst)
	d.linef("- **Best performing day**: %s", s.BestDay)
	d.blank()

	d.h(3, "Optimal Hours by Day")
	d.line("Based on conversion rate analysis, these are the prime hours for streaming on each day:")
	d.blank()
	for _, h := range p.BestHours.Value {
		d.linef("* **%s**: %s - %s", h.Day, h.Clock(), h.Description)
	}
	d.blank()

	d.h(3, "Weekly Programming Calendar")
	d.line("Based on performance data, the following weekly programming calendar is recommended:")
	d.blank()
	slots := domain.TimeSlots()
	header := make([]string, 0, len(slots)+1)
	header = append(header, "Day")
	for _, slot := range slots {
		header = append(header, string(slot))
	}
	d.tableHeader(header...)
	cal := p.Calendar.Value
	for _, day := range domain.Weekdays() {
		cells := []string{day.String()}
		for _, slot := range slots {
			cells = append(cells, cal.Cell(day, slot))
		}
		d.tableRow(cells...)
	}
	d.blank()
}

func (r *Renderer) engagement(d *doc, p *recommend.Plan) {
	d.h(2, sectionTitles[3])

	d.h(3, "High Engagement-Conversion Categories")
	if len(p.EngagementDriven.Value) == 0 {
		d.line("No category converts markedly better at higher engagement.")
	} else {
		d.line("The following categories show a strong correlation between engagement and conversion rate:")
		d.blank()
		for _, e := range p.EngagementDriven.Value {
			d.linef("* **%s**: %s (+%s conversion)", e.Category, e.Tactic, d.percent(e.Lift))
		}
		d.blank()
		d.line("These categories should prioritize interactive elements to maximize conversion.")
	}
	d.blank()

	d.h(3, "Creator Tier Engagement Strategies")
	for _, s := range p.TierEngagementStrategies {
		d.h(4, string(s.Tier)+" Tier Creators")
		d.linef("* **Focus**: %s", s.Focus)
		d.linef("* **Cadence**: %s", s.Cadence)
		d.linef("* **Tactics**: %s", s.Tactics)
		d.blank()
	}

	d.h(3, "Seasonal Programming Strategies")
	if len(p.Seasonal.Value) == 0 {
		d.line("Not enough months of data to detect seasonal patterns.")
		d.blank()
		return
	}
	d.line("Categories with distinct seasonal engagement patterns:")
	d.blank()
	for _, s := range p.Seasonal.Value {
		d.linef("* **%s** - Peak: %s - Strategy: %s", s.Category, strings.Join(s.PeakMonths, ", "), s.Strategy)
	}
	d.blank()
}

func (r *Renderer) visualizations(d *doc, charts []string) {
	if len(charts) == 0 {
		return
	}
	d.h(2, "Visualizations")
	for _, c := range charts {
		name := strings.TrimSuffix(filepath.Base(c), filepath.Ext(c))
		d.linef("![%s](%s)", r.caser.String(strings.ReplaceAll(name, "_", " ")), filepath.ToSlash(c))
		d.blank()
	}
}

func (r *Renderer) dataQuality(d *doc, in Input) {
	d.h(2, "Appendix: Data Quality")

	var degraded []outcome.Note
	for _, n := range in.Notes {
		if n.Status.Degradation() {
			degraded = append(degraded, n)
		}
	}
	if len(degraded) == 0 && len(in.Fallbacks) == 0 {
		d.line("Every step ran on observed data.")
		d.blank()
		return
	}

	if len(degraded) > 0 {
		d.linef("%d steps ran on incomplete data:", len(degraded))
		d.blank()
		d.tableHeader("Stage", "Subject", "Status", "Reason", "Detail")
		for _, n := range degraded {
			d.tableRow(n.Stage, n.Subject, string(n.Status), string(n.Reason), n.Detail)
		}
		d.blank()
	}
	if len(in.Fallbacks) > 0 {
		d.line("Placeholder values substituted for missing measurements:")
		d.blank()
		d.tableHeader("Quantity", "Count", "First subject")
		for _, u := range in.Fallbacks {
			d.tableRow(string(u.Quantity), d.p.Sprintf("%d", u.Count), u.First)
		}
		d.blank()
	}
}

func sessionCount(p *recommend.Plan) int {
	if p == nil {
		return 0
	}
	return p.Sessions
}
