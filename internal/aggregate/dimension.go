// Package aggregate groups session, order-line and engagement records by
// dimension keys and reduces their metrics into ordered tables.
package aggregate

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/listenupapp/liveplan/internal/domain"
)

// Dimension names a grouping key.
type Dimension string

// Dimension constants.
const (
	DimCreator         Dimension = "creator"
	DimTier            Dimension = "tier"
	DimCategory        Dimension = "category"
	DimTimeSlot        Dimension = "time_slot"
	DimWeekday         Dimension = "weekday"
	DimEngagementLevel Dimension = "engagement_level"
	DimMonth           Dimension = "month"
	DimHour            Dimension = "hour"

	// DimPairedCategory is the second category of a co-occurring pair.
	DimPairedCategory Dimension = "paired_category"
)

// Dimensions returns every dimension records are grouped by.
func Dimensions() []Dimension {
	return []Dimension{
		DimCreator, DimTier, DimCategory, DimTimeSlot,
		DimWeekday, DimEngagementLevel, DimMonth, DimHour,
	}
}

// Compare orders two keys of d. Tiers run best first, slots and weekdays in
// calendar order, engagement levels lowest first and hours numerically.
// Everything else compares as text. Unknown keys sort after known ones.
func (d Dimension) Compare(a, b string) int {
	if c := cmp.Compare(d.position(a), d.position(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// position returns the natural position of key, or a large value when the
// dimension has no natural order or the key is unknown.
func (d Dimension) position(key string) int {
	const unknown = 1 << 20
	switch d {
	case DimTier:
		if t, err := domain.ParseTier(key); err == nil {
			return t.Rank()
		}
	case DimTimeSlot:
		if i := domain.TimeSlot(key).Index(); i >= 0 {
			return i
		}
	case DimWeekday:
		if wd, err := domain.ParseWeekday(key); err == nil {
			return domain.WeekdayIndex(wd)
		}
	case DimEngagementLevel:
		if i := slices.Index(domain.EngagementBins(), domain.EngagementLevel(key)); i >= 0 {
			return i
		}
	case DimHour:
		if h, err := strconv.Atoi(key); err == nil {
			return h
		}
	default:
		return 0
	}
	return unknown
}

// compareKeys orders key tuples dimension by dimension.
func compareKeys(dims []Dimension, a, b []string) int {
	for i, d := range dims {
		if c := d.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
