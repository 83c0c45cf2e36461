package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/id"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/sample"
)

func newTestSynth(t *testing.T, limit int) (*Synthesizer, *fallback.Policy) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fb, err := fallback.New(fallback.Config{Mode: fallback.ModeMidpoint}, logger)
	require.NoError(t, err)
	return New(Config{SampleLimit: limit}, fb, logger), fb
}

func at(hour int) time.Time {
	return time.Date(2022, 3, 16, hour, 30, 0, 0, time.UTC)
}

func marketplace() *domain.Dataset {
	return &domain.Dataset{
		Creators: []domain.Creator{
			{ID: "s1", Name: "Glow", Tier: domain.TierTop, Category: category.Beauty},
			{ID: "s2", Name: "Chip", Tier: domain.TierMid, Category: category.Electronics},
			{ID: "c3", Name: "Cook", Tier: domain.TierEmerging, Category: category.Kitchen},
		},
		Products: []domain.Product{
			{ID: "p1", Category: category.Beauty},
			{ID: "p2", Category: category.Electronics},
			{ID: "p3", Category: category.Kitchen},
		},
		Orders: []domain.Order{
			{ID: "o3", CustomerID: "u1", PurchasedAt: at(20)},
			{ID: "o1", CustomerID: "u1", PurchasedAt: at(13)},
			{ID: "o2", CustomerID: "u2", PurchasedAt: at(4)},
			{ID: "o4", CustomerID: "u3", PurchasedAt: at(9)},
		},
		OrderItems: []domain.OrderItem{
			{OrderID: "o1", ProductID: "p1", SellerID: "s1", Quantity: 2, Price: 10},
			{OrderID: "o1", ProductID: "p1", SellerID: "s1", Quantity: 1, Price: 5},
			{OrderID: "o1", ProductID: "p2", SellerID: "s2", Quantity: 1, Price: 100},
			{OrderID: "o2", ProductID: "p3", Quantity: 1, Price: 30},
			{OrderID: "o3", ProductID: "p2", SellerID: "s2", Quantity: 1, Price: 50},
		},
	}
}

func TestRun_SynthesizesFromOrders(t *testing.T) {
	synth, _ := newTestSynth(t, 0)

	res, err := synth.Run(context.Background(), marketplace())
	require.NoError(t, err)
	assert.True(t, res.Synthesized)
	assert.Equal(t, 1, res.SkippedOrders)
	require.Len(t, res.Sessions, 3)

	// Order-ID order.
	o1, o2, o3 := res.Sessions[0], res.Sessions[1], res.Sessions[2]
	assert.Equal(t, "o1", o1.OrderID)
	assert.Equal(t, id.SessionID("o1"), o1.ID)

	assert.Equal(t, category.Beauty, o1.Category)
	assert.Equal(t, "s1", o1.CreatorID)
	assert.InDelta(t, 125.0, o1.Metrics.Revenue, 1e-9)
	assert.Equal(t, domain.SlotAfternoon, o1.TimeSlot)
	assert.Equal(t, time.Wednesday, o1.Weekday)

	assert.Equal(t, category.Kitchen, o2.Category)
	assert.Equal(t, "c3", o2.CreatorID)
	assert.Equal(t, domain.SlotNight, o2.TimeSlot)

	assert.Equal(t, "s2", o3.CreatorID)
	assert.Equal(t, domain.SlotNight, o3.TimeSlot)

	assert.Equal(t, Skips{NoItems: 1}, res.Skips)
	notes := res.Notes
	require.Len(t, notes, 2)
	assert.Equal(t, outcome.StatusOK, notes[0].Status)
	assert.Equal(t, "sessions", notes[0].Subject)
	assert.Equal(t, "orders", notes[1].Subject)
	assert.Contains(t, notes[1].Detail, "1 orders without line items")
}

func TestRun_SkipReasons(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(ds *domain.Dataset)
		sessions int
		want     Skips
		details  []string
	}{
		{
			name: "unknown product is not defaulted",
			mutate: func(ds *domain.Dataset) {
				ds.Orders = append(ds.Orders, domain.Order{ID: "o9", CustomerID: "u9", PurchasedAt: at(11)})
				ds.OrderItems = append(ds.OrderItems, domain.OrderItem{OrderID: "o9", ProductID: "ghost", Quantity: 1, Price: 20})
			},
			sessions: 3,
			want:     Skips{NoItems: 1, NoCategory: 1},
			details:  []string{"1 orders without line items", "1 orders without a resolvable category"},
		},
		{
			name: "product without category is not defaulted",
			mutate: func(ds *domain.Dataset) {
				ds.Products = append(ds.Products, domain.Product{ID: "p9"})
				ds.Orders = append(ds.Orders, domain.Order{ID: "o9", CustomerID: "u9", PurchasedAt: at(11)})
				ds.OrderItems = append(ds.OrderItems, domain.OrderItem{OrderID: "o9", ProductID: "p9", Quantity: 1, Price: 20})
			},
			sessions: 3,
			want:     Skips{NoItems: 1, NoCategory: 1},
			details:  []string{"1 orders without line items", "1 orders without a resolvable category"},
		},
		{
			name: "unknown items are ignored next to known ones",
			mutate: func(ds *domain.Dataset) {
				ds.OrderItems = append(ds.OrderItems,
					domain.OrderItem{OrderID: "o2", ProductID: "ghost", Quantity: 1, Price: 1},
					domain.OrderItem{OrderID: "o2", ProductID: "ghost", Quantity: 1, Price: 1},
				)
			},
			sessions: 3,
			want:     Skips{NoItems: 1},
			details:  []string{"1 orders without line items"},
		},
		{
			name:     "no creators",
			mutate:   func(ds *domain.Dataset) { ds.Creators = nil },
			sessions: 0,
			want:     Skips{NoItems: 1, NoCreators: 3},
			details:  []string{"1 orders without line items", "3 orders skipped because no creators are available"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synth, _ := newTestSynth(t, 0)
			ds := marketplace()
			tt.mutate(ds)

			res, err := synth.Run(context.Background(), ds)
			require.NoError(t, err)
			assert.Len(t, res.Sessions, tt.sessions)
			assert.Equal(t, tt.want, res.Skips)
			assert.Equal(t, tt.want.Total(), res.SkippedOrders)
			for _, s := range res.Sessions {
				assert.NotEqual(t, "o9", s.OrderID)
			}

			var details []string
			for _, n := range res.Notes {
				if n.Subject == "orders" {
					details = append(details, n.Detail)
				}
			}
			require.Len(t, details, len(tt.details))
			for i, d := range tt.details {
				assert.Contains(t, details[i], d)
			}
		})
	}
}

func TestRun_MetricsAreComplete(t *testing.T) {
	synth, fb := newTestSynth(t, 0)

	res, err := synth.Run(context.Background(), marketplace())
	require.NoError(t, err)

	for _, s := range res.Sessions {
		m := s.Metrics
		assert.InDelta(t, 68.0, m.DurationMinutes, 1e-9)
		assert.Positive(t, m.Views)
		assert.Positive(t, m.UniqueViewers)
		assert.LessOrEqual(t, m.UniqueViewers, m.Views)
		assert.InDelta(t, EngagementRate(m.Likes, m.Comments, m.Views), m.EngagementRate, 1e-12)
		assert.InDelta(t, ConversionRate(1, m.UniqueViewers), m.ConversionRate, 1e-12)
		assert.ElementsMatch(t, []domain.Metric{
			domain.MetricDuration, domain.MetricViews, domain.MetricUniqueViewers,
			domain.MetricLikes, domain.MetricComments,
			domain.MetricConversionRate, domain.MetricEngagementRate,
		}, s.Filled())
	}

	uses := fb.Uses()
	assert.NotEmpty(t, uses)
	for _, u := range uses {
		assert.Equal(t, 3, u.Count, "quantity %s", u.Quantity)
	}
}

func TestRun_SampleLimit(t *testing.T) {
	synth, _ := newTestSynth(t, 2)

	res, err := synth.Run(context.Background(), marketplace())
	require.NoError(t, err)
	assert.Len(t, res.Sessions, 2)
}

func TestRun_CompletesInputSessions(t *testing.T) {
	synth, _ := newTestSynth(t, 0)

	ds := marketplace()
	ds.Sessions = []domain.Session{
		{
			ID: "live-1", CreatorID: "s1", Hour: 19, TimeSlot: domain.SlotEvening,
			Metrics:  domain.Metrics{Views: 200, Likes: 10, Comments: 10, DurationMinutes: 45},
			Observed: domain.NewMetricSet(domain.MetricViews, domain.MetricLikes, domain.MetricComments, domain.MetricDuration),
		},
		{
			ID: "live-2", CreatorID: "s2", Hour: 2, TimeSlot: domain.SlotNight,
			Metrics:  domain.Metrics{Views: 0, Likes: 4},
			Observed: domain.NewMetricSet(domain.MetricViews, domain.MetricLikes),
		},
	}

	res, err := synth.Run(context.Background(), ds)
	require.NoError(t, err)
	assert.False(t, res.Synthesized)
	require.Len(t, res.Sessions, 2)

	assert.InDelta(t, 0.1, res.Sessions[0].Metrics.EngagementRate, 1e-12)
	assert.InDelta(t, 45.0, res.Sessions[0].Metrics.DurationMinutes, 1e-12)
	assert.Zero(t, res.Sessions[1].Metrics.EngagementRate)

	// Input is left untouched.
	assert.False(t, ds.Sessions[0].Observed.Has(domain.MetricRevenue))
	assert.Zero(t, ds.Sessions[0].Metrics.Revenue)

	// Sessions without an order fall back to the documented conversion range.
	r, _ := fallback.RangeOf(fallback.ConversionRate)
	assert.True(t, r.Contains(res.Sessions[0].Metrics.ConversionRate))
}

func TestRun_EngagementDrivesInteractions(t *testing.T) {
	synth, _ := newTestSynth(t, 0)

	ds := marketplace()
	ds.Engagement = []domain.EngagementRecord{
		{ID: "e1", CreatorID: "s1", Likes: 30, Comments: 6},
		{ID: "e2", CreatorID: "s1", Likes: 10, Comments: 2},
	}

	res, err := synth.Run(context.Background(), ds)
	require.NoError(t, err)

	o1 := res.Sessions[0]
	require.Equal(t, "s1", o1.CreatorID)
	assert.Equal(t, 20, o1.Metrics.Likes)
	assert.Equal(t, 4, o1.Metrics.Comments)
	assert.True(t, o1.Observed.Has(domain.MetricLikes))

	require.Len(t, res.Engagement, 2)
	for _, e := range res.Engagement {
		assert.Equal(t, o1.ID, e.SessionID)
		assert.InDelta(t, o1.Metrics.ConversionRate, e.ConversionRate, 1e-12)
	}
	assert.Empty(t, ds.Engagement[0].SessionID)
}

func TestRun_NoOrders(t *testing.T) {
	synth, _ := newTestSynth(t, 0)

	res, err := synth.Run(context.Background(), &domain.Dataset{})
	require.NoError(t, err)
	assert.Empty(t, res.Sessions)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, outcome.StatusSkipped, res.Notes[0].Status)
}

func TestRun_SampleDataset(t *testing.T) {
	synth, fb := newTestSynth(t, DefaultSampleLimit)

	res, err := synth.Run(context.Background(), sample.New(sample.DefaultSeed).Dataset())
	require.NoError(t, err)
	assert.Len(t, res.Sessions, 500)
	assert.Empty(t, fb.Uses())
}

func TestRun_Canceled(t *testing.T) {
	synth, _ := newTestSynth(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := synth.Run(ctx, marketplace())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRates(t *testing.T) {
	assert.Zero(t, EngagementRate(5, 5, 0))
	assert.InDelta(t, 0.25, EngagementRate(20, 5, 100), 1e-12)

	assert.Zero(t, ConversionRate(1, 0))
	assert.InDelta(t, 0.5, ConversionRate(1, 2), 1e-12)
	assert.InDelta(t, 1.0, ConversionRate(5, 2), 1e-12)
}
