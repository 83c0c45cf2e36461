// Package fallback owns every substituted value the pipeline produces when a
// metric is missing from source data.
package fallback

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"slices"
)

// Mode selects how placeholder values are produced.
type Mode string

// Mode constants.
const (
	// ModeRandom draws uniformly from the documented range with a seeded source.
	ModeRandom Mode = "random"
	// ModeMidpoint returns the middle of the documented range.
	ModeMidpoint Mode = "midpoint"
)

// Valid returns true if m is a recognized mode.
func (m Mode) Valid() bool {
	return m == ModeRandom || m == ModeMidpoint
}

// Quantity names a value the policy can substitute.
type Quantity string

// Quantities with documented ranges. Fractions are relative to a session's views.
const (
	RevenuePerMinute      Quantity = "revenue_per_minute"
	Revenue               Quantity = "revenue"
	Duration              Quantity = "duration_minutes"
	Views                 Quantity = "views"
	LikesFraction         Quantity = "likes_fraction"
	CommentsFraction      Quantity = "comments_fraction"
	UniqueViewersFraction Quantity = "unique_viewers_fraction"
	EngagementRate        Quantity = "engagement_rate"
	ConversionRate        Quantity = "conversion_rate"
	RankScore             Quantity = "rank_score"
)

// Range is a closed interval.
type Range struct {
	Min float64
	Max float64
}

// Mid returns the midpoint.
func (r Range) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Contains reports whether v lies in the interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

//nolint:gochecknoglobals // Documented ranges.
var ranges = map[Quantity]Range{
	RevenuePerMinute:      {0.5, 5.0},
	Revenue:               {100, 10000},
	Duration:              {15, 120},
	Views:                 {100, 10000},
	LikesFraction:         {0.01, 0.10},
	CommentsFraction:      {0.001, 0.02},
	UniqueViewersFraction: {0.5, 0.95},
	EngagementRate:        {0.01, 0.3},
	ConversionRate:        {0.001, 0.1},
	RankScore:             {0, 1},
}

// RangeOf returns the documented range of q.
func RangeOf(q Quantity) (Range, bool) {
	r, ok := ranges[q]
	return r, ok
}

// Provider supplies placeholder values. Implementations record every use.
type Provider interface {
	// Value returns a placeholder for q. subject identifies what the value
	// stands in for and appears in logs.
	Value(q Quantity, subject string) float64
	// Stable is Value without the shared stream: the same subject always
	// gets the same value, whatever was drawn before it.
	Stable(q Quantity, subject string) float64
	// Pick chooses an index in [0, n) for a tie or an unattributed choice.
	Pick(subject string, n int) int
	// Uses lists substituted quantities with their counts.
	Uses() []Use
}

// Use counts substitutions of one quantity.
type Use struct {
	Quantity Quantity `json:"quantity"`
	Count    int      `json:"count"`
	// First is the subject of the first substitution.
	First string `json:"first"`
}

// Config configures a Policy.
type Config struct {
	Mode Mode
	Seed uint64
}

// Policy is the Provider used by the pipeline.
type Policy struct {
	mode   Mode
	seed   uint64
	rng    *rand.Rand
	logger *slog.Logger
	uses   map[Quantity]*Use
}

// New creates a policy. An empty mode defaults to random.
func New(cfg Config, logger *slog.Logger) (*Policy, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeRandom
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("unknown fallback mode %q", cfg.Mode)
	}
	return &Policy{
		mode:   cfg.Mode,
		seed:   cfg.Seed,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		logger: logger,
		uses:   make(map[Quantity]*Use),
	}, nil
}

// Mode returns the configured mode.
func (p *Policy) Mode() Mode {
	return p.mode
}

// Value implements Provider. Unknown quantities yield 0.
func (p *Policy) Value(q Quantity, subject string) float64 {
	r, ok := ranges[q]
	if !ok {
		p.logger.Error("no documented range for quantity", "quantity", q, "subject", subject)
		return 0
	}
	p.record(q, subject)

	if p.mode == ModeMidpoint {
		return r.Mid()
	}
	return r.Min + p.rng.Float64()*(r.Max-r.Min)
}

// Stable implements Provider. Random mode hashes the seed and subject into
// the range; midpoint mode matches Value.
func (p *Policy) Stable(q Quantity, subject string) float64 {
	r, ok := ranges[q]
	if !ok {
		p.logger.Error("no documented range for quantity", "quantity", q, "subject", subject)
		return 0
	}
	p.record(q, subject)

	if p.mode == ModeMidpoint {
		return r.Mid()
	}
	u := float64(p.hash(subject)>>11) / (1 << 53)
	return r.Min + u*(r.Max-r.Min)
}

func (p *Policy) hash(subject string) uint64 {
	h := fnv.New64a()
	_ = binary.Write(h, binary.LittleEndian, p.seed)
	_, _ = h.Write([]byte(subject))
	return h.Sum64()
}

// Pick implements Provider. Midpoint mode hashes the subject so the same
// subject always gets the same index.
func (p *Policy) Pick(subject string, n int) int {
	if n <= 1 {
		return 0
	}
	if p.mode == ModeMidpoint {
		h := fnv.New32a()
		_, _ = h.Write([]byte(subject))
		return int(h.Sum32() % uint32(n)) //nolint:gosec // n > 1 and fits in uint32
	}
	return p.rng.IntN(n)
}

// Uses implements Provider, ordered by quantity name.
func (p *Policy) Uses() []Use {
	out := make([]Use, 0, len(p.uses))
	for _, u := range p.uses {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b Use) int {
		return cmp.Compare(a.Quantity, b.Quantity)
	})
	return out
}

// record counts a use. The first use of each quantity is logged at WARN;
// later uses at DEBUG, with the totals reported by Uses.
func (p *Policy) record(q Quantity, subject string) {
	u, ok := p.uses[q]
	if !ok {
		u = &Use{Quantity: q, First: subject}
		p.uses[q] = u
		p.logger.Warn("substituting placeholder value",
			"quantity", q,
			"subject", subject,
			"mode", p.mode,
		)
	} else {
		p.logger.Debug("substituting placeholder value", "quantity", q, "subject", subject)
	}
	u.Count++
}
