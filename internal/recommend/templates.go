package recommend

import (
	"time"

	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
)

// TierStrategy is the programming guidance for one creator tier.
type TierStrategy struct {
	Tier           domain.Tier `json:"tier"`
	Focus          string      `json:"focus"`
	Frequency      string      `json:"frequency"`
	CrossPromotion string      `json:"cross_promotion"`
}

// TierEngagementStrategy is the engagement guidance for one creator tier.
type TierEngagementStrategy struct {
	Tier    domain.Tier `json:"tier"`
	Focus   string      `json:"focus"`
	Cadence string      `json:"cadence"`
	Tactics string      `json:"tactics"`
}

// TierStrategies returns the fixed strategy for every tier, best first.
func TierStrategies() []TierStrategy {
	return []TierStrategy{
		{
			Tier:           domain.TierTop,
			Focus:          "High-value categories and prime time slots",
			Frequency:      "Regular weekly schedule",
			CrossPromotion: "Pair with emerging creators",
		},
		{
			Tier:           domain.TierMid,
			Focus:          "Category specialization",
			Frequency:      "Consistent bi-weekly schedule",
			CrossPromotion: "Pair with complementary categories",
		},
		{
			Tier:           domain.TierEmerging,
			Focus:          "Building audience in niche categories",
			Frequency:      "Start with bi-weekly, test different time slots",
			CrossPromotion: "Guest appearances with Top creators",
		},
	}
}

// TierEngagementStrategies returns the fixed engagement strategy for every
// tier, best first.
func TierEngagementStrategies() []TierEngagementStrategy {
	return []TierEngagementStrategy{
		{
			Tier:    domain.TierTop,
			Focus:   "High-production value and interactive elements",
			Cadence: "Regular scheduled streams with pre-announced specials",
			Tactics: "Q&A segments, giveaways, and exclusive product reveals",
		},
		{
			Tier:    domain.TierMid,
			Focus:   "Category expertise and educational content",
			Cadence: "Consistent weekly streams with themed episodes",
			Tactics: "Tutorials, how-to segments, and viewer challenges",
		},
		{
			Tier:    domain.TierEmerging,
			Focus:   "Authentic connection and community building",
			Cadence: "Start with bi-weekly streams, then increase frequency",
			Tactics: "Personal stories, behind-the-scenes content, and direct viewer interaction",
		},
	}
}

// EngagementTactics are assigned to engagement-driven categories in turn.
func EngagementTactics() []string {
	return []string{
		"Implement interactive Q&A segments",
		"Add polls and viewer challenges",
		"Include product demonstrations",
		"Create how-to tutorials",
		"Feature user testimonials and reviews",
	}
}

// SeasonalStrategies are assigned to seasonal categories in turn.
func SeasonalStrategies() []string {
	return []string{
		"Increase frequency during peak season",
		"Develop seasonal product showcases",
		"Partner with seasonal events",
		"Create themed special episodes",
		"Implement countdown events to season",
	}
}

// RealisticHour is the fallback best streaming hour for a day.
func RealisticHour(d time.Weekday) int {
	switch d {
	case time.Monday:
		return 8
	case time.Tuesday:
		return 12
	case time.Wednesday:
		return 19
	case time.Thursday:
		return 17
	case time.Friday:
		return 20
	case time.Saturday:
		return 11
	default:
		return 15
	}
}

// HourDescription names the audience moment of an hour of day.
func HourDescription(hour int) string {
	switch hour {
	case 8:
		return "Morning commute/Early work hours"
	case 11:
		return "Late morning browsing"
	case 12:
		return "Lunch break shopping"
	case 15:
		return "Afternoon relaxation"
	case 17:
		return "End of workday"
	case 19:
		return "Evening leisure time"
	case 20:
		return "Prime time viewing"
	default:
		return "Peak viewing hours"
	}
}

// templateCreators stand in for a ranking with no rows.
func templateCreators() []CreatorPick {
	return []CreatorPick{
		{Tier: domain.TierTop, Name: domain.UnassignedPrefix + "1", BestCategory: category.Beauty, BestSlot: string(domain.SlotEvening), Placeholder: true},
		{Tier: domain.TierTop, Name: domain.UnassignedPrefix + "2", BestCategory: category.Electronics, BestSlot: string(domain.SlotMorning), Placeholder: true},
		{Tier: domain.TierMid, Name: domain.UnassignedPrefix + "3", BestCategory: category.Home, BestSlot: string(domain.SlotAfternoon), Placeholder: true},
	}
}
