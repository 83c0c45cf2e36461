package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeSlot is a broadcast daypart.
type TimeSlot string

// TimeSlot constants. Together they partition the 24-hour day.
const (
	SlotMorning   TimeSlot = "Morning"
	SlotAfternoon TimeSlot = "Afternoon"
	SlotEvening   TimeSlot = "Evening"
	SlotNight     TimeSlot = "Night"
)

// Placeholder labels used when a best slot or category cannot be determined.
const (
	FlexibleSlot     = "Flexible"
	VariousCategory  = "Various"
	UnknownTier      = "Unknown"
	NoDataAvailable  = "No data available"
	UnassignedPrefix = "Creator-"
)

// TimeSlots returns the slots in calendar column order.
func TimeSlots() []TimeSlot {
	return []TimeSlot{SlotMorning, SlotAfternoon, SlotEvening, SlotNight}
}

// slotBoundaries lists [start, end) hour ranges. Night wraps midnight and so
// appears twice.
//
//nolint:gochecknoglobals // Fixed partition table.
var slotBoundaries = []struct {
	start, end int
	slot       TimeSlot
}{
	{0, 5, SlotNight},
	{5, 12, SlotMorning},
	{12, 17, SlotAfternoon},
	{17, 20, SlotEvening},
	{20, 24, SlotNight},
}

// SlotForHour maps an hour of day to its slot. Hours outside [0,24) are
// reduced modulo 24 first.
func SlotForHour(hour int) TimeSlot {
	hour %= 24
	if hour < 0 {
		hour += 24
	}
	for _, b := range slotBoundaries {
		if hour >= b.start && hour < b.end {
			return b.slot
		}
	}
	return SlotNight
}

// StartHour returns the first hour of the slot. Night starts in the evening.
func (s TimeSlot) StartHour() int {
	start := -1
	for _, b := range slotBoundaries {
		if b.slot == s {
			start = b.start
		}
	}
	return start
}

// Valid returns true if s is one of the four slots.
func (s TimeSlot) Valid() bool {
	switch s {
	case SlotMorning, SlotAfternoon, SlotEvening, SlotNight:
		return true
	default:
		return false
	}
}

// Index returns the slot's column position, or -1.
func (s TimeSlot) Index() int {
	for i, slot := range TimeSlots() {
		if slot == s {
			return i
		}
	}
	return -1
}

// ParseTimeSlot accepts slot names case-insensitively.
func ParseTimeSlot(s string) (TimeSlot, error) {
	for _, slot := range TimeSlots() {
		if strings.EqualFold(strings.TrimSpace(s), string(slot)) {
			return slot, nil
		}
	}
	return "", fmt.Errorf("unknown time slot %q", s)
}

// Weekdays returns the days in calendar row order, Monday first.
func Weekdays() []time.Weekday {
	return []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
}

// WeekdayIndex returns the Monday-first row position of d.
func WeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range Weekdays() {
		name := strings.ToLower(d.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
