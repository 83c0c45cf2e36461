package analysis

import (
	"cmp"
	"maps"
	"slices"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/outcome"
)

// Pair is an unordered category pair, First < Second.
type Pair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// NewPair orders a and b.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{First: a, Second: b}
}

// String renders the pair as "A + B".
func (p Pair) String() string {
	return p.First + " + " + p.Second
}

// CoOccurrences counts, for every pair of distinct categories, the baskets
// containing both. A basket is everything one customer bought; orders without
// a customer form their own basket.
func CoOccurrences(ds *domain.Dataset) map[Pair]int {
	orders := ds.OrderIndex()
	products := ds.ProductIndex()

	baskets := make(map[string]map[string]struct{})
	for _, it := range ds.OrderItems {
		o, ok := orders[it.OrderID]
		if !ok {
			continue
		}
		key := "customer:" + o.CustomerID
		if o.CustomerID == "" {
			key = "order:" + o.ID
		}
		cat := category.Other
		if p, ok := products[it.ProductID]; ok && p.Category != "" {
			cat = p.Category
		}
		if baskets[key] == nil {
			baskets[key] = make(map[string]struct{})
		}
		baskets[key][cat] = struct{}{}
	}

	counts := make(map[Pair]int)
	for _, basket := range baskets {
		cats := slices.Sorted(maps.Keys(basket))
		for i := range cats {
			for j := i + 1; j < len(cats); j++ {
				counts[Pair{First: cats[i], Second: cats[j]}]++
			}
		}
	}
	return counts
}

// CrossPromotion tabulates co-occurrence counts, most frequent pair first
// with ties by pair name. No pairs yields a Skipped result with an empty
// table.
func CrossPromotion(ds *domain.Dataset) outcome.Result[*aggregate.Table] {
	t := &aggregate.Table{
		Name:       SheetCrossPromotion,
		Dimensions: []aggregate.Dimension{aggregate.DimCategory, aggregate.DimPairedCategory},
		Columns: []aggregate.Column{{
			Name:   string(domain.MetricCoOccurrences),
			Metric: domain.MetricCoOccurrences,
			Kind:   aggregate.KindCount,
		}},
	}

	counts := CoOccurrences(ds)
	if len(counts) == 0 {
		return outcome.Result[*aggregate.Table]{Value: t, Status: outcome.StatusSkipped, Reason: outcome.ReasonEmptyResult}
	}
	for p, n := range counts {
		t.Rows = append(t.Rows, aggregate.Row{
			Keys:   []string{p.First, p.Second},
			Values: []float64{float64(n)},
			Count:  n,
		})
	}
	slices.SortFunc(t.Rows, func(a, b aggregate.Row) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return slices.Compare(a.Keys, b.Keys)
	})
	return outcome.Ok(t)
}
