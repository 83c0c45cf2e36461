package domain

import (
	"fmt"
	"strings"
)

// Tier classifies creators by sales volume.
type Tier string

// Tier constants, best first.
const (
	TierTop      Tier = "Top"
	TierMid      Tier = "Mid"
	TierEmerging Tier = "Emerging"
)

// Tiers returns all tiers, best first.
func Tiers() []Tier {
	return []Tier{TierTop, TierMid, TierEmerging}
}

// Valid returns true if t is a recognized tier.
func (t Tier) Valid() bool {
	switch t {
	case TierTop, TierMid, TierEmerging:
		return true
	default:
		return false
	}
}

// Rank returns 0 for Top, 1 for Mid, 2 for Emerging and 3 otherwise.
func (t Tier) Rank() int {
	for i, tier := range Tiers() {
		if tier == t {
			return i
		}
	}
	return len(Tiers())
}

// ParseTier accepts tier names case-insensitively.
func ParseTier(s string) (Tier, error) {
	for _, t := range Tiers() {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// CyclicTier assigns tiers round-robin by position.
func CyclicTier(i int) Tier {
	tiers := Tiers()
	return tiers[i%len(tiers)]
}

// Creator hosts livestream sessions.
type Creator struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Tier     Tier   `json:"tier"`
	Category string `json:"category"` // Primary specialty, canonical
}

// Label renders a creator as "<Tier> Tier - <Name>".
func (c Creator) Label() string {
	return fmt.Sprintf("%s Tier - %s", c.Tier, c.Name)
}
