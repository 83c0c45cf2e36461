package recommend

import (
	"context"
	"log/slog"

	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/fallback"
)

// Builder derives a Plan from analysis workbooks.
type Builder struct {
	fb     fallback.Provider
	logger *slog.Logger
}

// New creates a builder. fb supplies placeholder ranking scores.
func New(fb fallback.Provider, logger *slog.Logger) *Builder {
	return &Builder{fb: fb, logger: logger}
}

// Build assembles every recommendation. Parts that cannot be derived carry
// their documented fallback value with a Failed or Degraded outcome.
func (b *Builder) Build(ctx context.Context, res *analysis.Result, sessions int) (*Plan, error) {
	p := &Plan{
		Sessions:                 sessions,
		TierStrategies:           TierStrategies(),
		TierEngagementStrategies: TierEngagementStrategies(),
	}

	steps := []func(){
		func() { p.Creators = b.topCreators(res) },
		func() { p.Categories = b.topCategories(res) },
		func() { p.CrossPromotion = crossPromotion(res, p.Categories.Value) },
		func() { p.Slots = slotSummary(res) },
		func() { p.BestHours = bestHours(res) },
		func() { p.Calendar = calendar(res) },
		func() { p.EngagementDriven = engagementDriven(res) },
		func() { p.Seasonal = seasonal(res) },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step()
	}

	for _, n := range p.Notes() {
		if n.Status.Degradation() {
			b.logger.Warn("recommendation degraded", "subject", n.Subject, "status", n.Status, "reason", n.Reason, "detail", n.Detail)
		}
	}
	b.logger.Info("recommendations built",
		"sessions", sessions,
		"creators", len(p.Creators.Value),
		"categories", len(p.Categories.Value),
		"pairs", len(p.CrossPromotion.Value),
		"engagement_driven", len(p.EngagementDriven.Value),
		"seasonal", len(p.Seasonal.Value),
	)
	return p, nil
}
