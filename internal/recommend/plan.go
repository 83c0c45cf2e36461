// Package recommend turns the analysis workbooks into a programming plan:
// ranked creators and categories, time slot guidance, a weekly calendar and
// engagement strategies.
package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/outcome"
)

const stage = "recommend"

// Result sizes.
const (
	TopCreators          = 5
	TopCreatorsChart     = 10
	TopCategories        = 5
	CrossPromotionPairs  = 10
	CalendarCategories   = 10
	EngagementCategories = 5
	SeasonalCategories   = 5
)

// CreatorPick is a recommended creator with its best category and slot.
type CreatorPick struct {
	Tier         domain.Tier `json:"tier"`
	Name         string      `json:"name"`
	BestCategory string      `json:"best_category"`
	BestSlot     string      `json:"best_slot"`
	RPM          float64     `json:"revenue_per_minute"`
	Revenue      float64     `json:"revenue"`
	// Placeholder marks template entries and substituted RPM values.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Label renders the creator as "<Tier> Tier - <Name>".
func (c CreatorPick) Label() string {
	return domain.Creator{Name: c.Name, Tier: c.Tier}.Label()
}

// Trend is the direction of a category's monthly revenue.
type Trend string

// Trend constants.
const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// CategoryPick is a recommended category.
type CategoryPick struct {
	Name     string  `json:"name"`
	Trend    Trend   `json:"trend"`
	BestSlot string  `json:"best_slot"`
	RPM      float64 `json:"revenue_per_minute"`
	Revenue  float64 `json:"revenue"`
}

// SlotSummary names the strongest and weakest slot and the strongest day.
type SlotSummary struct {
	Best    domain.TimeSlot `json:"best"`
	Worst   domain.TimeSlot `json:"worst"`
	BestDay time.Weekday    `json:"best_day"`
}

// HourPick is the best streaming hour of a day.
type HourPick struct {
	Day         time.Weekday `json:"day"`
	Hour        int          `json:"hour"`
	Description string       `json:"description"`
	// Fallback is true when the day had no data.
	Fallback bool `json:"fallback,omitempty"`
}

// Clock renders the hour as "H:00".
func (h HourPick) Clock() string {
	return fmt.Sprintf("%d:00", h.Hour)
}

// Calendar holds the categories scheduled per day and slot, Monday first and
// in slot order.
type Calendar [7][4][]string

// Get returns the categories of a cell.
func (c *Calendar) Get(day time.Weekday, slot domain.TimeSlot) []string {
	i := slot.Index()
	if i < 0 {
		return nil
	}
	return c[domain.WeekdayIndex(day)][i]
}

// Cell renders a cell comma separated.
func (c *Calendar) Cell(day time.Weekday, slot domain.TimeSlot) string {
	return strings.Join(c.Get(day, slot), ", ")
}

// EngagementPick is a category whose conversion rises with engagement.
type EngagementPick struct {
	Category string  `json:"category"`
	Tactic   string  `json:"tactic"`
	Lift     float64 `json:"lift"`
}

// SeasonalPick is a category with a peak quarter.
type SeasonalPick struct {
	Category   string   `json:"category"`
	PeakMonths []string `json:"peak_months"`
	Strategy   string   `json:"strategy"`
}

// Plan is the complete set of recommendations. Each data-driven part carries
// the outcome it was produced under.
type Plan struct {
	// Sessions is the number of sessions the plan is based on.
	Sessions int

	Creators       outcome.Result[[]CreatorPick]
	TierStrategies []TierStrategy
	Categories     outcome.Result[[]CategoryPick]
	CrossPromotion outcome.Result[[]analysis.Pair]

	Slots     outcome.Result[SlotSummary]
	BestHours outcome.Result[[]HourPick]
	Calendar  outcome.Result[Calendar]

	EngagementDriven         outcome.Result[[]EngagementPick]
	TierEngagementStrategies []TierEngagementStrategy
	Seasonal                 outcome.Result[[]SeasonalPick]
}

// HasData reports whether any session backs the plan.
func (p *Plan) HasData() bool {
	return p.Sessions > 0
}

// Notes returns the outcome of every data-driven part.
func (p *Plan) Notes() []outcome.Note {
	return []outcome.Note{
		p.Creators.Note(stage, "top_creators"),
		p.Categories.Note(stage, "top_categories"),
		p.CrossPromotion.Note(stage, "cross_promotion"),
		p.Slots.Note(stage, "time_slots"),
		p.BestHours.Note(stage, "best_hours"),
		p.Calendar.Note(stage, "calendar"),
		p.EngagementDriven.Note(stage, "engagement_driven_categories"),
		p.Seasonal.Note(stage, "seasonal_engagement"),
	}
}
