package aggregate

import (
	"strconv"

	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
)

// FromSessions turns completed sessions into records. The engagement level of
// a session is its engagement-rate quartile within the given sessions.
func FromSessions(sessions []domain.Session, creators map[string]domain.Creator) []Record {
	rates := make([]float64, len(sessions))
	for i, s := range sessions {
		rates[i] = s.Metrics.EngagementRate
	}
	cuts := domain.QuantileCuts(rates, len(domain.EngagementBins()))
	bins := domain.EngagementBins()

	out := make([]Record, 0, len(sessions))
	for _, s := range sessions {
		keys := map[Dimension]string{
			DimCategory:        s.Category,
			DimTimeSlot:        string(s.TimeSlot),
			DimWeekday:         s.Weekday.String(),
			DimMonth:           s.Month(),
			DimHour:            strconv.Itoa(s.Hour),
			DimEngagementLevel: string(bins[domain.BinIndex(s.Metrics.EngagementRate, cuts)]),
		}
		creatorKeys(keys, s.CreatorID, creators)

		values := make(map[domain.Metric]float64, len(domain.SessionMetrics()))
		for _, m := range domain.SessionMetrics() {
			values[m], _ = s.Metrics.Value(m)
		}
		out = append(out, Record{Keys: keys, Values: values})
	}
	return out
}

// FromOrderLines turns order items into records keyed by the product category
// and the order's time. Lines sold by a known creator carry creator keys.
func FromOrderLines(ds *domain.Dataset) []Record {
	orders := ds.OrderIndex()
	products := ds.ProductIndex()
	creators := ds.CreatorIndex()

	out := make([]Record, 0, len(ds.OrderItems))
	for _, it := range ds.OrderItems {
		o, ok := orders[it.OrderID]
		if !ok {
			continue
		}
		cat := category.Other
		if p, ok := products[it.ProductID]; ok && p.Category != "" {
			cat = p.Category
		}
		keys := map[Dimension]string{
			DimCategory: cat,
			DimTimeSlot: string(o.TimeSlot()),
			DimWeekday:  o.Weekday().String(),
			DimMonth:    o.PurchasedAt.Format("2006-01"),
			DimHour:     strconv.Itoa(o.PurchasedAt.Hour()),
		}
		if _, known := creators[it.SellerID]; known {
			creatorKeys(keys, it.SellerID, creators)
		}
		out = append(out, Record{
			Keys: keys,
			Values: map[domain.Metric]float64{
				domain.MetricRevenue:  it.LineTotal(),
				domain.MetricQuantity: float64(max(it.Quantity, 1)),
			},
		})
	}
	return out
}

// FromEngagement turns engagement records into records keyed by creator and
// engagement level.
func FromEngagement(records []domain.EngagementRecord, creators map[string]domain.Creator) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		keys := map[Dimension]string{DimEngagementLevel: string(r.Level)}
		creatorKeys(keys, r.CreatorID, creators)
		out = append(out, Record{
			Keys: keys,
			Values: map[domain.Metric]float64{
				domain.MetricLikes:          float64(r.Likes),
				domain.MetricComments:       float64(r.Comments),
				domain.MetricShares:         float64(r.Shares),
				domain.MetricScore:          r.Score,
				domain.MetricConversionRate: r.ConversionRate,
			},
		})
	}
	return out
}

func creatorKeys(keys map[Dimension]string, creatorID string, creators map[string]domain.Creator) {
	c, ok := creators[creatorID]
	if !ok {
		if creatorID != "" {
			keys[DimCreator] = creatorID
			keys[DimTier] = domain.UnknownTier
		}
		return
	}
	keys[DimCreator] = c.Name
	keys[DimTier] = string(c.Tier)
}
