// Package session builds the livestream session table, either by completing
// sessions supplied as input or by synthesizing one session per order.
package session

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/id"
	"github.com/listenupapp/liveplan/internal/outcome"
)

const stage = "sessions"

// DefaultSampleLimit caps the number of orders turned into sessions.
const DefaultSampleLimit = 500

// Config configures a Synthesizer.
type Config struct {
	// SampleLimit caps synthesized sessions; 0 means every order.
	SampleLimit int
}

// Result is the completed session table.
type Result struct {
	Sessions []domain.Session
	// Engagement is the engagement table with session links filled in.
	Engagement []domain.EngagementRecord
	// Synthesized is true when sessions were derived from orders.
	Synthesized bool
	// SkippedOrders counts orders that produced no session.
	SkippedOrders int
	// Skips breaks SkippedOrders down by reason.
	Skips Skips
	Notes []outcome.Note
}

// Skips counts orders left out of synthesis, by reason.
type Skips struct {
	// NoItems: the order has no line items.
	NoItems int
	// NoCategory: none of its line items is a known product with a category.
	NoCategory int
	// NoCreators: the dataset has no creators to assign.
	NoCreators int
}

// Total is the number of skipped orders.
func (k Skips) Total() int {
	return k.NoItems + k.NoCategory + k.NoCreators
}

func (k Skips) notes() []outcome.Note {
	var notes []outcome.Note
	for _, r := range []struct {
		n      int
		detail string
	}{
		{k.NoItems, "orders without line items skipped"},
		{k.NoCategory, "orders without a resolvable category skipped"},
		{k.NoCreators, "orders skipped because no creators are available"},
	} {
		if r.n > 0 {
			notes = append(notes, outcome.Note{
				Stage: stage, Subject: "orders", Status: outcome.StatusOK,
				Detail: fmt.Sprintf("%d %s", r.n, r.detail),
			})
		}
	}
	return notes
}

// Synthesizer produces sessions with a complete metrics bundle.
type Synthesizer struct {
	cfg    Config
	fb     fallback.Provider
	logger *slog.Logger
}

// New creates a synthesizer.
func New(cfg Config, fb fallback.Provider, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{cfg: cfg, fb: fb, logger: logger}
}

// Run completes ds.Sessions when present, otherwise synthesizes sessions from
// orders. ds is not modified.
func (s *Synthesizer) Run(ctx context.Context, ds *domain.Dataset) (*Result, error) {
	res := &Result{}
	eng := engagementByCreator(ds.Engagement)

	if len(ds.Sessions) > 0 {
		res.Sessions = make([]domain.Session, len(ds.Sessions))
		for i, sess := range ds.Sessions {
			res.Sessions[i] = s.complete(sess, eng)
		}
		s.logger.Info("completed input sessions", "sessions", len(res.Sessions))
	} else {
		sessions, skips, err := s.fromOrders(ctx, ds, eng)
		if err != nil {
			return nil, err
		}
		res.Sessions = sessions
		res.Skips = skips
		res.SkippedOrders = skips.Total()
		res.Synthesized = true
		s.logger.Info("synthesized sessions from orders",
			"sessions", len(sessions),
			"skipped_no_items", skips.NoItems,
			"skipped_no_category", skips.NoCategory,
			"skipped_no_creators", skips.NoCreators,
			"limit", s.cfg.SampleLimit,
		)
	}

	res.Engagement = s.link(ds.Engagement, res.Sessions)

	if len(res.Sessions) == 0 {
		res.Notes = append(res.Notes, outcome.Skipped[int](outcome.ReasonEmptyResult).Note(stage, "sessions"))
		s.logger.Warn("no sessions available")
	} else {
		res.Notes = append(res.Notes, outcome.Ok(len(res.Sessions)).Note(stage, "sessions"))
	}
	res.Notes = append(res.Notes, res.Skips.notes()...)
	return res, nil
}

// fromOrders builds one session per order in order-ID order.
func (s *Synthesizer) fromOrders(ctx context.Context, ds *domain.Dataset, eng map[string]engagementMeans) ([]domain.Session, Skips, error) {
	orders := slices.SortedFunc(slices.Values(ds.Orders), func(a, b domain.Order) int {
		return cmp.Compare(a.ID, b.ID)
	})

	items := ds.ItemsByOrder()
	products := ds.ProductIndex()
	creators := ds.CreatorIndex()
	bySpecialty := creatorsBySpecialty(ds.Creators)
	allCreators := slices.Sorted(maps.Keys(creators))

	var (
		sessions []domain.Session
		skips    Skips
	)
	for _, o := range orders {
		if s.cfg.SampleLimit > 0 && len(sessions) >= s.cfg.SampleLimit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, Skips{}, err
		}

		lines := items[o.ID]
		if len(lines) == 0 {
			skips.NoItems++
			continue
		}
		cat, ok := s.dominantCategory(o.ID, lines, products)
		if !ok {
			skips.NoCategory++
			continue
		}
		if len(allCreators) == 0 {
			skips.NoCreators++
			continue
		}
		creatorID := s.assignCreator(o.ID, cat, lines, products, creators, bySpecialty[cat], allCreators)

		revenue := 0.0
		for _, it := range lines {
			revenue += it.LineTotal()
		}

		sess := domain.Session{
			ID:         id.SessionID(o.ID),
			CreatorID:  creatorID,
			CustomerID: o.CustomerID,
			OrderID:    o.ID,
			Date:       o.PurchasedAt,
			Hour:       o.PurchasedAt.Hour(),
			TimeSlot:   o.TimeSlot(),
			Weekday:    o.Weekday(),
			Category:   cat,
			Metrics:    domain.Metrics{Revenue: revenue},
			Observed:   domain.NewMetricSet(domain.MetricRevenue),
		}
		sessions = append(sessions, s.complete(sess, eng))
	}
	return sessions, skips, nil
}

// dominantCategory returns the category with the most line items. Items of
// unknown products do not count; ok is false when none is left. Ties are
// broken by the fallback provider among the tied names.
func (s *Synthesizer) dominantCategory(orderID string, lines []domain.OrderItem, products map[string]domain.Product) (string, bool) {
	counts := make(map[string]int)
	for _, it := range lines {
		if p, ok := products[it.ProductID]; ok && p.Category != "" {
			counts[p.Category]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	best := 0
	var tied []string
	for cat, n := range counts {
		switch {
		case n > best:
			best, tied = n, []string{cat}
		case n == best:
			tied = append(tied, cat)
		}
	}
	slices.Sort(tied)
	return tied[s.fb.Pick("category:"+orderID, len(tied))], true
}

// assignCreator prefers the seller of the order's dominant-category items when
// that seller is a known creator, then a creator specializing in the category,
// then any creator.
func (s *Synthesizer) assignCreator(
	orderID, cat string,
	lines []domain.OrderItem,
	products map[string]domain.Product,
	creators map[string]domain.Creator,
	specialists []string,
	all []string,
) string {
	sellers := make(map[string]int)
	for _, it := range lines {
		if _, known := creators[it.SellerID]; !known {
			continue
		}
		if p, ok := products[it.ProductID]; ok && p.Category == cat {
			sellers[it.SellerID]++
		}
	}
	if len(sellers) > 0 {
		best, bestN := "", 0
		for _, sellerID := range slices.Sorted(maps.Keys(sellers)) {
			if sellers[sellerID] > bestN {
				best, bestN = sellerID, sellers[sellerID]
			}
		}
		return best
	}

	pool := specialists
	if len(pool) == 0 {
		pool = all
	}
	return pool[s.fb.Pick("creator:"+orderID, len(pool))]
}

// complete fills every metric the session lacks and derives the rates.
func (s *Synthesizer) complete(sess domain.Session, eng map[string]engagementMeans) domain.Session {
	obs := maps.Clone(sess.Observed)
	if obs == nil {
		obs = domain.NewMetricSet()
	}
	m := &sess.Metrics
	subject := sess.ID

	if !obs.Has(domain.MetricDuration) || m.DurationMinutes <= 0 {
		m.DurationMinutes = math.Round(s.fb.Value(fallback.Duration, subject))
		delete(obs, domain.MetricDuration)
	}
	if !obs.Has(domain.MetricRevenue) {
		m.Revenue = s.fb.Value(fallback.Revenue, subject)
	}

	if !obs.Has(domain.MetricLikes) || !obs.Has(domain.MetricComments) {
		if means, ok := eng[sess.CreatorID]; ok {
			if !obs.Has(domain.MetricLikes) {
				m.Likes = int(math.Round(means.likes))
				obs.Add(domain.MetricLikes)
			}
			if !obs.Has(domain.MetricComments) {
				m.Comments = int(math.Round(means.comments))
				obs.Add(domain.MetricComments)
			}
		}
	}

	if !obs.Has(domain.MetricViews) {
		m.Views = int(math.Round(s.fb.Value(fallback.Views, subject)))
		// Views never fall below observed interactions.
		m.Views = max(m.Views, m.Likes+m.Comments, m.UniqueViewers)
	}
	if !obs.Has(domain.MetricUniqueViewers) {
		m.UniqueViewers = fraction(m.Views, s.fb.Value(fallback.UniqueViewersFraction, subject))
	}
	if !obs.Has(domain.MetricLikes) {
		m.Likes = fraction(m.Views, s.fb.Value(fallback.LikesFraction, subject))
	}
	if !obs.Has(domain.MetricComments) {
		m.Comments = fraction(m.Views, s.fb.Value(fallback.CommentsFraction, subject))
	}

	if !obs.Has(domain.MetricEngagementRate) {
		m.EngagementRate = EngagementRate(m.Likes, m.Comments, m.Views)
	}
	if !obs.Has(domain.MetricConversionRate) {
		if sess.OrderID != "" {
			m.ConversionRate = ConversionRate(1, m.UniqueViewers)
		} else {
			m.ConversionRate = s.fb.Value(fallback.ConversionRate, subject)
		}
	}

	sess.Observed = obs
	return sess
}

// link attaches engagement records without a session to one of their
// creator's sessions and copies the session's conversion rate when the record
// has none.
func (s *Synthesizer) link(records []domain.EngagementRecord, sessions []domain.Session) []domain.EngagementRecord {
	if len(records) == 0 {
		return nil
	}
	byID := make(map[string]domain.Session, len(sessions))
	byCreator := make(map[string][]domain.Session)
	for _, sess := range sessions {
		byID[sess.ID] = sess
		byCreator[sess.CreatorID] = append(byCreator[sess.CreatorID], sess)
	}

	out := slices.Clone(records)
	for i := range out {
		rec := &out[i]
		sess, ok := byID[rec.SessionID]
		if !ok {
			candidates := byCreator[rec.CreatorID]
			if len(candidates) == 0 {
				continue
			}
			sess = candidates[s.fb.Pick("engagement:"+rec.ID, len(candidates))]
			rec.SessionID = sess.ID
		}
		if rec.ConversionRate == 0 {
			rec.ConversionRate = sess.Metrics.ConversionRate
		}
	}
	return out
}

// EngagementRate is (likes + comments) / views, or 0 without views.
func EngagementRate(likes, comments, views int) float64 {
	if views <= 0 {
		return 0
	}
	return float64(likes+comments) / float64(views)
}

// ConversionRate is orders / unique viewers clamped to [0, 1], or 0 without
// viewers.
func ConversionRate(orders, uniqueViewers int) float64 {
	if uniqueViewers <= 0 {
		return 0
	}
	return min(max(float64(orders)/float64(uniqueViewers), 0), 1)
}

func fraction(views int, f float64) int {
	return int(math.Round(float64(views) * f))
}

type engagementMeans struct {
	likes, comments float64
}

func engagementByCreator(records []domain.EngagementRecord) map[string]engagementMeans {
	sums := make(map[string]engagementMeans)
	counts := make(map[string]int)
	for _, r := range records {
		e := sums[r.CreatorID]
		e.likes += float64(r.Likes)
		e.comments += float64(r.Comments)
		sums[r.CreatorID] = e
		counts[r.CreatorID]++
	}
	for k, e := range sums {
		n := float64(counts[k])
		sums[k] = engagementMeans{likes: e.likes / n, comments: e.comments / n}
	}
	return sums
}

func creatorsBySpecialty(creators []domain.Creator) map[string][]string {
	out := make(map[string][]string)
	for _, c := range creators {
		out[c.Category] = append(out[c.Category], c.ID)
	}
	for k := range out {
		slices.Sort(out[k])
	}
	return out
}
