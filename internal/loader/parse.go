package loader

import (
	"cmp"
	"slices"
	"strings"

	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/id"
	"github.com/listenupapp/liveplan/internal/sample"
)

// parsed holds the converted rows of one source plus the rows it had to drop.
type parsed[T any] struct {
	rows    []T
	skipped []error
}

func (p *parsed[T]) skip(err error) {
	p.skipped = append(p.skipped, err)
}

func parseTranslations(t *Table) map[string]string {
	out := make(map[string]string, t.Len())
	for _, row := range t.Rows() {
		src, dst := row.Get(colSourceLabel), row.Get(colEnglishLabel)
		if src != "" && dst != "" {
			out[src] = dst
		}
	}
	return out
}

func parseProducts(t *Table, mapper *category.Mapper) parsed[domain.Product] {
	var p parsed[domain.Product]
	for line, row := range t.Rows() {
		productID := row.Get(colProductID)
		if productID == "" {
			p.skip(rowError(t.Source, line, "empty product_id"))
			continue
		}
		price, _ := row.Float(colPrice)
		p.rows = append(p.rows, domain.Product{
			ID:       productID,
			Name:     cmp.Or(row.Get(colName), productID),
			Category: mapper.Resolve(row.Get(colCategory)),
			Price:    price,
		})
	}
	return p
}

func parseOrders(t *Table) parsed[domain.Order] {
	var p parsed[domain.Order]
	for line, row := range t.Rows() {
		orderID := row.Get(colOrderID)
		at, _, ok := row.Time(colPurchasedAt)
		if orderID == "" || !ok {
			p.skip(rowError(t.Source, line, "missing order_id or unparseable purchase time %q", row.Get(colPurchasedAt)))
			continue
		}
		p.rows = append(p.rows, domain.Order{
			ID:          orderID,
			CustomerID:  row.Get(colCustomerID),
			PurchasedAt: at,
			Status:      row.Get(colStatus),
		})
	}
	return p
}

func parseOrderItems(t *Table) parsed[domain.OrderItem] {
	var p parsed[domain.OrderItem]
	for line, row := range t.Rows() {
		orderID, productID := row.Get(colOrderID), row.Get(colProductID)
		price, ok := row.Float(colPrice)
		if orderID == "" || productID == "" || !ok {
			p.skip(rowError(t.Source, line, "missing order_id, product_id or price"))
			continue
		}
		qty, ok := row.Int(colQuantity)
		if !ok || qty <= 0 {
			qty = 1
		}
		p.rows = append(p.rows, domain.OrderItem{
			OrderID:   orderID,
			ProductID: productID,
			SellerID:  row.Get(colSellerID),
			Quantity:  qty,
			Price:     price,
		})
	}
	return p
}

func parseSellerNames(t *Table) map[string]string {
	names := make(map[string]string, t.Len())
	for _, row := range t.Rows() {
		if sellerID := row.Get(colSellerID); sellerID != "" {
			names[sellerID] = row.Get(colName)
		}
	}
	return names
}

func parseCreators(t *Table, mapper *category.Mapper) parsed[domain.Creator] {
	var p parsed[domain.Creator]
	for line, row := range t.Rows() {
		creatorID := row.Get(colCreatorID)
		if creatorID == "" {
			p.skip(rowError(t.Source, line, "empty creator_id"))
			continue
		}
		tier, err := domain.ParseTier(row.Get(colTier))
		if err != nil {
			tier = domain.CyclicTier(len(p.rows))
		}
		cat := category.Other
		if raw := row.Get(colCategory); raw != "" {
			cat = mapper.Resolve(raw)
		}
		p.rows = append(p.rows, domain.Creator{
			ID:       creatorID,
			Name:     cmp.Or(row.Get(colName), creatorName(creatorID)),
			Tier:     tier,
			Category: cat,
		})
	}
	return p
}

// creatorName labels a creator known only by ID.
func creatorName(creatorID string) string {
	short := creatorID
	if len(short) > 8 {
		short = short[:8]
	}
	return domain.UnassignedPrefix + short
}

// creatorsFromSellers derives one creator per seller appearing in the order
// items. Tiers come from revenue terciles; the specialty is the category with
// the most revenue (ties by name).
func creatorsFromSellers(items []domain.OrderItem, products map[string]domain.Product, names map[string]string) []domain.Creator {
	revenue := make(map[string]float64)
	byCategory := make(map[string]map[string]float64)
	for _, it := range items {
		if it.SellerID == "" {
			continue
		}
		total := it.LineTotal()
		revenue[it.SellerID] += total

		cat := category.Other
		if p, ok := products[it.ProductID]; ok {
			cat = p.Category
		}
		if byCategory[it.SellerID] == nil {
			byCategory[it.SellerID] = make(map[string]float64)
		}
		byCategory[it.SellerID][cat] += total
	}
	if len(revenue) == 0 {
		return nil
	}

	ids := make([]string, 0, len(revenue))
	values := make([]float64, 0, len(revenue))
	for sellerID, r := range revenue {
		ids = append(ids, sellerID)
		values = append(values, r)
	}
	slices.Sort(ids)
	cuts := domain.QuantileCuts(values, 3)
	byBin := []domain.Tier{domain.TierEmerging, domain.TierMid, domain.TierTop}

	out := make([]domain.Creator, 0, len(ids))
	for _, sellerID := range ids {
		out = append(out, domain.Creator{
			ID:       sellerID,
			Name:     cmp.Or(names[sellerID], creatorName(sellerID)),
			Tier:     byBin[domain.BinIndex(revenue[sellerID], cuts)],
			Category: dominant(byCategory[sellerID]),
		})
	}
	return out
}

// dominant returns the key with the largest value, ties broken by name.
func dominant(values map[string]float64) string {
	best, bestValue := category.Other, -1.0
	for k, v := range values {
		if v > bestValue || (v == bestValue && k < best) {
			best, bestValue = k, v
		}
	}
	return best
}

func parseSessions(t *Table, mapper *category.Mapper, creators map[string]domain.Creator) parsed[domain.Session] {
	var p parsed[domain.Session]
	for line, row := range t.Rows() {
		sessionID, creatorID := row.Get(colSessionID), row.Get(colCreatorID)
		start, hasClock, ok := row.Time(colStart)
		if sessionID == "" || creatorID == "" || !ok {
			p.skip(rowError(t.Source, line, "missing session_id, creator_id or start time"))
			continue
		}

		s := domain.Session{
			ID:         sessionID,
			CreatorID:  creatorID,
			CustomerID: row.Get(colCustomerID),
			OrderID:    row.Get(colOrderID),
			Date:       start,
			Weekday:    start.Weekday(),
			Observed:   domain.NewMetricSet(),
		}

		hour, hasHour := row.Int(colHour)
		switch {
		case hasHour:
			s.Hour = ((hour % 24) + 24) % 24
		case hasClock:
			s.Hour = start.Hour()
		default:
			slot, err := domain.ParseTimeSlot(row.Get(colTimeSlot))
			if err != nil {
				p.skip(rowError(t.Source, line, "no hour, clock time or time slot"))
				continue
			}
			s.Hour = slot.StartHour()
		}
		s.TimeSlot = domain.SlotForHour(s.Hour)

		switch raw := row.Get(colCategory); {
		case raw != "":
			s.Category = mapper.Resolve(raw)
		case creators[creatorID].Category != "":
			s.Category = creators[creatorID].Category
		default:
			s.Category = category.Other
		}

		readSessionMetrics(row, &s)
		p.rows = append(p.rows, s)
	}
	return p
}

func readSessionMetrics(row Row, s *domain.Session) {
	m := &s.Metrics
	floats := []struct {
		col    string
		metric domain.Metric
		dst    *float64
	}{
		{colDuration, domain.MetricDuration, &m.DurationMinutes},
		{colRevenue, domain.MetricRevenue, &m.Revenue},
		{colConversionRate, domain.MetricConversionRate, &m.ConversionRate},
		{colEngagementRate, domain.MetricEngagementRate, &m.EngagementRate},
	}
	for _, f := range floats {
		if v, ok := row.Float(f.col); ok && v >= 0 {
			*f.dst = v
			s.Observed.Add(f.metric)
		}
	}

	ints := []struct {
		col    string
		metric domain.Metric
		dst    *int
	}{
		{colViews, domain.MetricViews, &m.Views},
		{colUniqueViewers, domain.MetricUniqueViewers, &m.UniqueViewers},
		{colLikes, domain.MetricLikes, &m.Likes},
		{colComments, domain.MetricComments, &m.Comments},
	}
	for _, f := range ints {
		if v, ok := row.Int(f.col); ok && v >= 0 {
			*f.dst = v
			s.Observed.Add(f.metric)
		}
	}
}

// parseEngagement converts engagement rows. Rows without a creator are
// attributed round-robin over creators; the returned count reports how many.
func parseEngagement(t *Table, creators []domain.Creator) (parsed[domain.EngagementRecord], int) {
	var p parsed[domain.EngagementRecord]
	if !t.Has(colLikes) && !t.Has(colLevel) {
		return p, 0
	}

	unattributed := 0
	leveled := true
	for line, row := range t.Rows() {
		likes, _ := row.Int(colLikes)
		comments, _ := row.Int(colComments)
		shares, _ := row.Int(colShares)

		rec := domain.EngagementRecord{
			ID:        cmp.Or(row.Get(colID), rowID(t.Source, line)),
			SessionID: row.Get(colSessionID),
			CreatorID: row.Get(colCreatorID),
			Likes:     max(likes, 0),
			Comments:  max(comments, 0),
			Shares:    max(shares, 0),
		}
		rec.Score = domain.EngagementScore(rec.Likes, rec.Comments, rec.Shares)
		if score, ok := row.Float(colScore); ok && !t.Has(colLikes) {
			rec.Score = score
		}
		if cr, ok := row.Float(colConversionRate); ok {
			rec.ConversionRate = cr
		}

		if raw := row.Get(colLevel); raw != "" {
			lvl, err := domain.LevelForType(raw)
			if err != nil {
				p.skip(rowError(t.Source, line, "%v", err))
				continue
			}
			rec.Level = lvl
		} else {
			leveled = false
		}

		if rec.CreatorID == "" && len(creators) > 0 {
			rec.CreatorID = creators[len(p.rows)%len(creators)].ID
			unattributed++
		}
		p.rows = append(p.rows, rec)
	}

	if !leveled {
		sample.AssignLevels(p.rows)
	}
	return p, unattributed
}

func rowID(source Source, line int) string {
	return id.Sequential(strings.ReplaceAll(string(source), "_", "-"), line)
}
