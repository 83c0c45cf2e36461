package report

import (
	"strings"

	"golang.org/x/text/message"
)

// doc accumulates markdown.
type doc struct {
	strings.Builder
	p *message.Printer
}

func (d *doc) h(level int, title string) {
	d.WriteString(strings.Repeat("#", level))
	d.WriteByte(' ')
	d.WriteString(title)
	d.WriteString("\n\n")
}

func (d *doc) line(s string) {
	d.WriteString(s)
	d.WriteByte('\n')
}

func (d *doc) linef(format string, args ...any) {
	d.line(d.p.Sprintf(format, args...))
}

func (d *doc) blank() {
	d.WriteByte('\n')
}

func (d *doc) tableHeader(cells ...string) {
	d.tableRow(cells...)
	sep := make([]string, len(cells))
	for i := range sep {
		sep[i] = "---"
	}
	d.tableRow(sep...)
}

func (d *doc) tableRow(cells ...string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	d.line("| " + strings.Join(escaped, " | ") + " |")
}

// money formats v with grouping and two decimals.
func (d *doc) money(v float64) string {
	return d.p.Sprintf("$%.2f", v)
}

func (d *doc) percent(v float64) string {
	return d.p.Sprintf("%.1f%%", v*100)
}

func implementationPlan(d *doc) {
	d.h(2, "Implementation Plan")

	d.h(3, "1. Immediate Actions (Next 30 Days)")
	d.line("- Adjust creator schedules based on time slot recommendations")
	d.line("- Implement top category and creator pairings")
	d.line("- Begin testing engagement strategies for high correlation categories")
	d.blank()

	d.h(3, "2. Medium-Term Actions (60-90 Days)")
	d.line("- Roll out the full programming calendar")
	d.line("- Implement tier-based strategies for all creator levels")
	d.line("- Develop cross-promotion campaigns for recommended category pairs")
	d.blank()

	d.h(3, "3. Long-Term Strategy (90+ Days)")
	d.line("- Develop seasonal programming plans based on engagement trends")
	d.line("- Create a creator development pipeline to elevate emerging creators")
	d.line("- Establish regular review cycles to assess programming effectiveness")
	d.blank()
}

func measurementFramework(d *doc) {
	d.h(2, "Measurement Framework")
	d.line("Key metrics to track implementation success:")
	d.blank()
	d.line("1. **Revenue Performance:** Revenue per minute (RPM) by creator, category, and time slot")
	d.line("2. **Conversion Metrics:** Conversion rate trends for optimized programming slots")
	d.line("3. **Engagement Growth:** Engagement rate growth across creator tiers")
	d.line("4. **Cross-Category Impact:** Cross-category purchase behavior and attribution")
	d.line("5. **Creator Development:** Creator retention and growth metrics")
	d.blank()
}
