package domain

import (
	"fmt"
	"slices"
	"strings"
)

// EngagementLevel buckets viewer interaction intensity.
type EngagementLevel string

// Engagement levels for records. Session analysis adds a fourth bin.
const (
	EngagementLow      EngagementLevel = "Low"
	EngagementMedium   EngagementLevel = "Medium"
	EngagementHigh     EngagementLevel = "High"
	EngagementVeryHigh EngagementLevel = "Very High"
)

// EngagementLevels returns the record levels, lowest first.
func EngagementLevels() []EngagementLevel {
	return []EngagementLevel{EngagementLow, EngagementMedium, EngagementHigh}
}

// EngagementBins returns the quartile bins used for session analysis, lowest first.
func EngagementBins() []EngagementLevel {
	return []EngagementLevel{EngagementLow, EngagementMedium, EngagementHigh, EngagementVeryHigh}
}

// engagementTypeLevels maps categorical engagement types to levels.
//
//nolint:gochecknoglobals // Static lookup table.
var engagementTypeLevels = map[string]EngagementLevel{
	"view":       EngagementLow,
	"impression": EngagementLow,
	"like":       EngagementMedium,
	"reaction":   EngagementMedium,
	"comment":    EngagementHigh,
	"reply":      EngagementHigh,
	"share":      EngagementHigh,
	"retweet":    EngagementHigh,
	"purchase":   EngagementHigh,
}

// LevelForType maps a categorical engagement type ("like", "comment", ...) to a
// level. The level names themselves are accepted too.
func LevelForType(kind string) (EngagementLevel, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	if lvl, ok := engagementTypeLevels[k]; ok {
		return lvl, nil
	}
	for _, lvl := range EngagementBins() {
		if strings.EqualFold(k, string(lvl)) {
			return lvl, nil
		}
	}
	return "", fmt.Errorf("unknown engagement type %q", kind)
}

// QuantileCuts returns the n-1 interior cut points splitting values into n
// equal-frequency bins, using linear interpolation between order statistics.
func QuantileCuts(values []float64, n int) []float64 {
	if n < 2 || len(values) == 0 {
		return nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	cuts := make([]float64, 0, n-1)
	for k := 1; k < n; k++ {
		pos := float64(k) / float64(n) * float64(len(sorted)-1)
		lo := int(pos)
		frac := pos - float64(lo)
		v := sorted[lo]
		if lo+1 < len(sorted) {
			v += frac * (sorted[lo+1] - sorted[lo])
		}
		cuts = append(cuts, v)
	}
	return cuts
}

// BinIndex returns the bin of v given ascending cut points. Values equal to a
// cut fall into the lower bin.
func BinIndex(v float64, cuts []float64) int {
	for i, c := range cuts {
		if v <= c {
			return i
		}
	}
	return len(cuts)
}

// EngagementRecord is one row of the engagement source, linked to a session.
type EngagementRecord struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id,omitempty"`
	CreatorID      string          `json:"creator_id"`
	Level          EngagementLevel `json:"level"`
	Likes          int             `json:"likes"`
	Comments       int             `json:"comments"`
	Shares         int             `json:"shares"`
	Score          float64         `json:"score"`
	ConversionRate float64         `json:"conversion_rate"`
}

// EngagementScore weights interactions: likes + 2*comments + 3*shares.
func EngagementScore(likes, comments, shares int) float64 {
	return float64(likes + 2*comments + 3*shares)
}
