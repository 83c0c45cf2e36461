package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/listenupapp/liveplan/internal/domain"
)

// WriteDataset writes ds as CSV files that Load reads back, one per source
// with rows. It returns the written paths in source order.
func WriteDataset(dir string, ds *domain.Dataset) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	tables := []struct {
		source Source
		header []string
		rows   [][]string
	}{
		{SourceProducts, []string{colProductID, colName, colCategory, colPrice}, productRows(ds.Products)},
		{SourceOrders, []string{colOrderID, colCustomerID, colPurchasedAt, colStatus}, orderRows(ds.Orders)},
		{SourceOrderItems, []string{colOrderID, colProductID, colSellerID, colQuantity, colPrice}, itemRows(ds.OrderItems)},
		{SourceCreators, []string{colCreatorID, colName, colTier, colCategory}, creatorRows(ds.Creators)},
		{SourceSessions, sessionHeader(), sessionRows(ds.Sessions)},
		{SourceEngagement, []string{
			"engagement_id", colCreatorID, colSessionID, colLikes, colComments, colShares,
			"engagement_level", "engagement_score", colConversionRate,
		}, engagementRows(ds.Engagement)},
	}

	var paths []string
	for _, t := range tables {
		if len(t.rows) == 0 {
			continue
		}
		path := filepath.Join(dir, t.source.DefaultFile())
		if err := writeRecords(path, t.header, t.rows); err != nil {
			return paths, fmt.Errorf("write %s: %w", t.source, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeRecords(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func productRows(products []domain.Product) [][]string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.ID, p.Name, p.Category, ftoa(p.Price)})
	}
	return rows
}

func orderRows(orders []domain.Order) [][]string {
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{o.ID, o.CustomerID, o.PurchasedAt.Format(time.DateTime), o.Status})
	}
	return rows
}

func itemRows(items []domain.OrderItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.OrderID, it.ProductID, it.SellerID, strconv.Itoa(it.Quantity), ftoa(it.Price)})
	}
	return rows
}

func creatorRows(creators []domain.Creator) [][]string {
	rows := make([][]string, 0, len(creators))
	for _, c := range creators {
		rows = append(rows, []string{c.ID, c.Name, string(c.Tier), c.Category})
	}
	return rows
}

func sessionHeader() []string {
	return []string{
		colSessionID, colCreatorID, colCustomerID, colOrderID, "start_time", colHour, colCategory,
		colDuration, colViews, colUniqueViewers, colLikes, colComments,
		colRevenue, colConversionRate, colEngagementRate,
	}
}

func sessionRows(sessions []domain.Session) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		m := s.Metrics
		rows = append(rows, []string{
			s.ID, s.CreatorID, s.CustomerID, s.OrderID, s.Date.Format(time.DateTime), strconv.Itoa(s.Hour), s.Category,
			ftoa(m.DurationMinutes), strconv.Itoa(m.Views), strconv.Itoa(m.UniqueViewers),
			strconv.Itoa(m.Likes), strconv.Itoa(m.Comments),
			ftoa(m.Revenue), ftoa(m.ConversionRate), ftoa(m.EngagementRate),
		})
	}
	return rows
}

func engagementRows(records []domain.EngagementRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID, r.CreatorID, r.SessionID,
			strconv.Itoa(r.Likes), strconv.Itoa(r.Comments), strconv.Itoa(r.Shares),
			string(r.Level), ftoa(r.Score), ftoa(r.ConversionRate),
		})
	}
	return rows
}
