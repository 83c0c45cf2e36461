package chart

import (
	"fmt"
	"image/color"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/errors"
	"github.com/listenupapp/liveplan/internal/recommend"
)

// Chart file names.
const (
	TopCreators     = "top_creators_rpm.png"
	TopCategories   = "top_categories.png"
	TimeSlots       = "time_slot_performance.png"
	CalendarHeatmap = "programming_calendar_heatmap.png"
	CrossPromotion  = "cross_promotion_network.png"
	TierStrategy    = "tier_strategy.png"
)

// Label lengths in characters.
const (
	maxLabelChars    = 32
	calendarCellText = 16
	tierTextChars    = 36
)

// Points reserved around the plotting area for titles and tick labels.
const chrome = 110

// size is the drawing area in points. Images are rendered at 72 DPI, so one
// point is one pixel.
type size struct {
	W, H vg.Length
}

type drawFunc func(in Input, sz size) (*plot.Plot, error)

type definition struct {
	name string
	draw drawFunc
}

// definitions lists every chart in output order.
func definitions() []definition {
	return []definition{
		{TopCreators, drawTopCreators},
		{TopCategories, drawTopCategories},
		{TimeSlots, drawTimeSlots},
		{CalendarHeatmap, drawCalendar},
		{CrossPromotion, drawCrossPromotion},
		{TierStrategy, drawTierStrategy},
	}
}

// Names returns the chart file names in output order.
func Names() []string {
	defs := definitions()
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.name
	}
	return out
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(10)
	p.BackgroundColor = white
	return p
}

func dollars(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func drawTopCreators(in Input, sz size) (*plot.Plot, error) {
	creators := in.Plan.Creators.Value
	if len(creators) == 0 {
		return nil, errors.RenderFailed("no creators to chart")
	}
	labels := make([]string, len(creators))
	values := make([]float64, len(creators))
	colors := make([]color.RGBA, len(creators))
	tiers := Palette(len(domain.Tiers()))
	for i, cr := range creators {
		labels[i] = cr.Label()
		values[i] = cr.RPM
		colors[i] = tiers[max(cr.Tier.Rank(), 0)%len(tiers)]
	}
	return hbar("Top Creators by Revenue per Minute", sz, labels, values, colors, dollars)
}

func drawTopCategories(in Input, sz size) (*plot.Plot, error) {
	cats := in.Plan.Categories.Value
	if len(cats) == 0 {
		return nil, errors.RenderFailed("no categories to chart")
	}
	labels := make([]string, len(cats))
	values := make([]float64, len(cats))
	colors := make([]color.RGBA, len(cats))
	for i, cat := range cats {
		labels[i] = fmt.Sprintf("%s (%s)", cat.Name, cat.Trend)
		values[i] = cat.RPM
		colors[i] = KeyColor(cat.Name)
	}
	return hbar("Top Categories by Revenue per Minute", sz, labels, values, colors, dollars)
}

func drawTimeSlots(in Input, sz size) (*plot.Plot, error) {
	heat := in.Analysis.Sheet(analysis.WorkbookTimeSlots, analysis.SheetHeatmap)
	if heat.Len() == 0 {
		return nil, errors.RenderFailed("no time slot revenue to chart")
	}
	m, ok := aggregate.Pivot(heat, aggregate.DimWeekday, aggregate.DimTimeSlot, string(domain.MetricRevenue))
	if !ok || len(m.Cols) == 0 {
		return nil, errors.RenderFailed("time slot heatmap lacks revenue")
	}
	return vbar("Average Revenue by Time Slot", sz, m.Cols, m.ColMeans(), Palette(len(m.Cols)))
}

// calendarGrid feeds the weekday × slot intensities to a heatmap. Row 0 is
// the bottom of the plot.
type calendarGrid [][]float64

func (g calendarGrid) Dims() (c, r int) { return len(g[0]), len(g) }
func (g calendarGrid) Z(c, r int) float64 { return g[r][c] }
func (g calendarGrid) X(c int) float64 { return float64(c) }
func (g calendarGrid) Y(r int) float64 { return float64(r) }

func drawCalendar(in Input, _ size) (*plot.Plot, error) {
	cal := in.Plan.Calendar.Value
	days := domain.Weekdays()
	slots := domain.TimeSlots()

	// Intensity follows weekday × slot revenue when available, otherwise the
	// number of scheduled categories.
	var m *aggregate.Matrix
	ok := false
	if heat := in.Analysis.Sheet(analysis.WorkbookTimeSlots, analysis.SheetHeatmap); heat.Len() > 0 {
		m, ok = aggregate.Pivot(heat, aggregate.DimWeekday, aggregate.DimTimeSlot, string(domain.MetricRevenue))
	}

	// Monday is drawn on top.
	grid := make(calendarGrid, len(days))
	dayNames := make([]string, len(days))
	var cells plotter.XYs
	var cellText []string
	peak := 0.0
	for i, day := range days {
		row := len(days) - 1 - i
		dayNames[row] = day.String()
		grid[row] = make([]float64, len(slots))
		for j, slot := range slots {
			v := float64(len(cal.Get(day, slot)))
			if ok {
				if rev, present := m.Get(day.String(), string(slot)); present {
					v = rev
				}
			}
			grid[row][j] = v
			peak = math.Max(peak, v)

			cats := cal.Get(day, slot)
			if len(cats) == 0 {
				continue
			}
			label := Truncate(cats[0], calendarCellText)
			if len(cats) > 1 {
				label = fmt.Sprintf("%s +%d", Truncate(cats[0], calendarCellText-3), len(cats)-1)
			}
			cells = append(cells, plotter.XY{X: float64(j), Y: float64(row)})
			cellText = append(cellText, label)
		}
	}
	if peak == 0 {
		return nil, errors.RenderFailed("programming calendar is empty")
	}

	p := newPlot("Weekly Programming Calendar")
	hm := plotter.NewHeatMap(grid, rampPalette(32))
	hm.Min, hm.Max = 0, peak
	p.Add(hm)

	if len(cells) > 0 {
		lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: cells, Labels: cellText})
		if err != nil {
			return nil, fmt.Errorf("calendar labels: %w", err)
		}
		for i, xy := range cells {
			bg := Ramp(grid[int(xy.Y)][int(xy.X)] / peak)
			lbl.TextStyle[i].Color = textOn(bg)
			lbl.TextStyle[i].XAlign = draw.XCenter
			lbl.TextStyle[i].YAlign = draw.YCenter
		}
		p.Add(lbl)
	}

	slotNames := make([]string, len(slots))
	for j, s := range slots {
		slotNames[j] = string(s)
	}
	p.NominalX(slotNames...)
	p.NominalY(dayNames...)
	return p, nil
}

func drawCrossPromotion(in Input, _ size) (*plot.Plot, error) {
	pairs := in.Plan.CrossPromotion.Value
	if len(pairs) == 0 {
		return nil, errors.RenderFailed("no category pairs to chart")
	}
	var nodes []string
	for _, pr := range pairs {
		for _, name := range []string{pr.First, pr.Second} {
			if !slices.Contains(nodes, name) {
				nodes = append(nodes, name)
			}
		}
	}
	slices.Sort(nodes)

	// Nodes sit on the unit circle, first at the top, clockwise.
	pos := make(map[string]plotter.XY, len(nodes))
	points := make(plotter.XYs, len(nodes))
	outside := make(plotter.XYs, len(nodes))
	names := make([]string, len(nodes))
	for i, name := range nodes {
		a := math.Pi/2 - 2*math.Pi*float64(i)/float64(len(nodes))
		pos[name] = plotter.XY{X: math.Cos(a), Y: math.Sin(a)}
		points[i] = pos[name]
		outside[i] = plotter.XY{X: 1.22 * math.Cos(a), Y: 1.22 * math.Sin(a)}
		names[i] = Truncate(name, maxLabelChars)
	}

	p := newPlot("Category Cross-Promotion Network")
	p.HideAxes()
	for _, pr := range pairs {
		edge, err := plotter.NewLine(plotter.XYs{pos[pr.First], pos[pr.Second]})
		if err != nil {
			return nil, fmt.Errorf("edge %s-%s: %w", pr.First, pr.Second, err)
		}
		edge.LineStyle.Color = muted
		edge.LineStyle.Width = vg.Points(1.5)
		p.Add(edge)
	}

	dots, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("nodes: %w", err)
	}
	dots.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{Color: KeyColor(nodes[i]), Radius: vg.Points(12), Shape: draw.CircleGlyph{}}
	}
	p.Add(dots)

	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: outside, Labels: names})
	if err != nil {
		return nil, fmt.Errorf("node labels: %w", err)
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].Color = ink
		lbl.TextStyle[i].XAlign = draw.XCenter
		lbl.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(lbl)

	p.X.Min, p.X.Max = -1.6, 1.6
	p.Y.Min, p.Y.Max = -1.4, 1.4
	return p, nil
}

func drawTierStrategy(in Input, _ size) (*plot.Plot, error) {
	strategies := in.Plan.TierStrategies
	if len(strategies) == 0 {
		strategies = recommend.TierStrategies()
	}

	colors := Palette(len(strategies))
	heads := make(plotter.XYs, len(strategies))
	bodies := make(plotter.XYs, len(strategies))
	headText := make([]string, len(strategies))
	bodyText := make([]string, len(strategies))
	for i, s := range strategies {
		heads[i] = plotter.XY{X: float64(i), Y: 1}
		bodies[i] = plotter.XY{X: float64(i), Y: 0.9}
		headText[i] = string(s.Tier) + " Tier"

		var b strings.Builder
		for _, field := range []struct{ name, text string }{
			{"Focus", s.Focus},
			{"Frequency", s.Frequency},
			{"Cross-Promotion", s.CrossPromotion},
		} {
			b.WriteString(field.name + ":\n")
			for _, line := range Wrap(field.text, tierTextChars) {
				b.WriteString(line + "\n")
			}
			b.WriteString("\n")
		}
		bodyText[i] = strings.TrimRight(b.String(), "\n")
	}

	p := newPlot("Creator Tier Strategies")
	p.HideAxes()

	head, err := plotter.NewLabels(plotter.XYLabels{XYs: heads, Labels: headText})
	if err != nil {
		return nil, fmt.Errorf("tier headings: %w", err)
	}
	for i := range head.TextStyle {
		head.TextStyle[i].Color = colors[i]
		head.TextStyle[i].Font.Size = vg.Points(15)
		head.TextStyle[i].XAlign = draw.XCenter
	}
	body, err := plotter.NewLabels(plotter.XYLabels{XYs: bodies, Labels: bodyText})
	if err != nil {
		return nil, fmt.Errorf("tier text: %w", err)
	}
	for i := range body.TextStyle {
		body.TextStyle[i].Color = ink
		body.TextStyle[i].XAlign = draw.XCenter
		body.TextStyle[i].YAlign = draw.YTop
	}
	p.Add(head, body)

	p.X.Min, p.X.Max = -0.5, float64(len(strategies))-0.5
	p.Y.Min, p.Y.Max = 0, 1.1
	return p, nil
}

// barWidth fits n bars into extent points, leaving gaps between them.
func barWidth(extent vg.Length, n int) vg.Length {
	return max((extent-chrome)*0.7/vg.Length(n), 2)
}

// hbar plots one horizontal bar per label, the first label on top.
func hbar(title string, sz size, labels []string, values []float64, colors []color.RGBA, format func(float64) string) (*plot.Plot, error) {
	p := newPlot(title)
	n := len(labels)
	names := make([]string, n)
	tips := make(plotter.XYs, n)
	tipText := make([]string, n)
	for i := range labels {
		row := n - 1 - i
		v := math.Max(values[i], 0)
		names[row] = Truncate(labels[i], maxLabelChars)

		bar, err := plotter.NewBarChart(plotter.Values{v}, barWidth(sz.H, n))
		if err != nil {
			return nil, fmt.Errorf("bar %s: %w", labels[i], err)
		}
		bar.Horizontal = true
		bar.XMin = float64(row)
		bar.Color = colors[i]
		bar.LineStyle.Width = 0
		p.Add(bar)

		tips[i] = plotter.XY{X: v, Y: float64(row)}
		tipText[i] = format(values[i])
	}
	if err := addValueLabels(p, tips, tipText, vg.Point{X: vg.Points(6)}, draw.XLeft, draw.YCenter); err != nil {
		return nil, err
	}

	p.NominalY(names...)
	p.X.Min = 0
	// Headroom for the value labels.
	p.X.Max = math.Max(slices.Max(values), 1e-9) * 1.2
	return p, nil
}

// vbar plots one vertical bar per label.
func vbar(title string, sz size, labels []string, values []float64, colors []color.RGBA) (*plot.Plot, error) {
	p := newPlot(title)
	p.Y.Label.Text = "Revenue"
	tips := make(plotter.XYs, len(labels))
	tipText := make([]string, len(labels))
	for i, label := range labels {
		v := math.Max(values[i], 0)
		bar, err := plotter.NewBarChart(plotter.Values{v}, barWidth(sz.W, len(labels)))
		if err != nil {
			return nil, fmt.Errorf("bar %s: %w", label, err)
		}
		bar.XMin = float64(i)
		bar.Color = colors[i]
		bar.LineStyle.Width = 0
		p.Add(bar)

		tips[i] = plotter.XY{X: float64(i), Y: v}
		tipText[i] = fmt.Sprintf("$%.0f", values[i])
	}
	if err := addValueLabels(p, tips, tipText, vg.Point{Y: vg.Points(6)}, draw.XCenter, draw.YBottom); err != nil {
		return nil, err
	}

	p.NominalX(labels...)
	p.Y.Min = 0
	p.Y.Max = math.Max(slices.Max(values), 1e-9) * 1.15
	return p, nil
}

func addValueLabels(p *plot.Plot, at plotter.XYs, text []string, offset vg.Point, x draw.XAlignment, y draw.YAlignment) error {
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: at, Labels: text})
	if err != nil {
		return fmt.Errorf("value labels: %w", err)
	}
	lbl.Offset = offset
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].Color = muted
		lbl.TextStyle[i].XAlign = x
		lbl.TextStyle[i].YAlign = y
	}
	p.Add(lbl)
	return nil
}
