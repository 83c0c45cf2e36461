package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
)

func TestDataset_DefaultSizes(t *testing.T) {
	ds := New(DefaultSeed).Dataset()

	assert.Equal(t, domain.Counts{
		Creators:   15,
		Products:   99,
		Orders:     1000,
		OrderItems: 2000,
		Sessions:   500,
		Engagement: 500,
	}, ds.Counts())
}

func TestDataset_IsReproducible(t *testing.T) {
	a := New(7).Dataset()
	b := New(7).Dataset()
	c := New(8).Dataset()

	assert.Equal(t, a.Orders, b.Orders)
	assert.Equal(t, a.Sessions[10].Metrics, b.Sessions[10].Metrics)
	assert.NotEqual(t, a.Orders[0].PurchasedAt, c.Orders[0].PurchasedAt)
}

func TestDataset_Creators(t *testing.T) {
	ds := New(DefaultSeed).Dataset()

	require.Len(t, ds.Creators, 15)
	assert.Equal(t, "BeautyGuru", ds.Creators[0].Name)
	assert.Equal(t, domain.TierTop, ds.Creators[0].Tier)
	assert.Equal(t, domain.TierMid, ds.Creators[1].Tier)
	assert.Equal(t, domain.TierEmerging, ds.Creators[2].Tier)
	assert.Equal(t, "FinanceCoach", ds.Creators[14].Name)
	assert.Equal(t, category.Finance, ds.Creators[14].Category)
}

func TestDataset_ValueRanges(t *testing.T) {
	ds := New(DefaultSeed).Dataset()

	for _, p := range ds.Products {
		assert.True(t, category.IsCanonical(p.Category))
		assert.GreaterOrEqual(t, p.Price, 10.0)
		assert.LessOrEqual(t, p.Price, 500.0)
	}
	for _, o := range ds.Orders {
		assert.Equal(t, 2022, o.PurchasedAt.Year())
	}
	for _, it := range ds.OrderItems {
		assert.GreaterOrEqual(t, it.Quantity, 1)
		assert.LessOrEqual(t, it.Quantity, 5)
	}
	for _, s := range ds.Sessions {
		assert.Equal(t, domain.SlotForHour(s.Hour), s.TimeSlot)
		assert.Equal(t, s.Date.Weekday(), s.Weekday)
		assert.GreaterOrEqual(t, s.Metrics.DurationMinutes, 15.0)
		assert.LessOrEqual(t, s.Metrics.DurationMinutes, 120.0)
		assert.GreaterOrEqual(t, s.Metrics.Views, 100)
		assert.LessOrEqual(t, s.Metrics.Views, 10000)
		assert.LessOrEqual(t, s.Metrics.UniqueViewers, s.Metrics.Views)
		assert.Empty(t, s.Filled())
	}
}

func TestDataset_EngagementLevels(t *testing.T) {
	ds := New(DefaultSeed).Dataset()

	counts := make(map[domain.EngagementLevel]int)
	for _, e := range ds.Engagement {
		assert.InDelta(t, domain.EngagementScore(e.Likes, e.Comments, e.Shares), e.Score, 1e-9)
		counts[e.Level]++
	}

	// Tercile cuts give roughly equal bins.
	require.Len(t, counts, 3)
	for lvl, n := range counts {
		assert.InDelta(t, 500.0/3, float64(n), 5, "level %s", lvl)
	}
}

func TestWithSizes(t *testing.T) {
	g := New(1).WithSizes(Sizes{Products: 3, Orders: 4, OrderItems: 5, Customers: 2})
	ds := g.Dataset()

	assert.Len(t, ds.Products, 3)
	assert.Len(t, ds.Orders, 4)
	assert.Len(t, ds.OrderItems, 5)
	assert.Empty(t, ds.Sessions)
	assert.Empty(t, ds.Engagement)
	assert.Equal(t, 99, New(1).Sizes().Products)
}
