// Package sample generates a seeded synthetic dataset with the same shape as
// real marketplace exports. It is used for demos and as the replacement for
// sources that cannot be loaded.
package sample

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/id"
)

// DefaultSeed is the seed used when none is configured.
const DefaultSeed = 42

// Sizes sets the row count of each generated table.
type Sizes struct {
	Products   int
	Orders     int
	OrderItems int
	Sessions   int
	Engagement int
	Customers  int
}

// DefaultSizes returns the standard demo sizes.
func DefaultSizes() Sizes {
	return Sizes{
		Products:   99,
		Orders:     1000,
		OrderItems: 2000,
		Sessions:   500,
		Engagement: 500,
		Customers:  500,
	}
}

// Creator names and specialties, index aligned.
//
//nolint:gochecknoglobals // Fixed demo roster.
var roster = []struct {
	name     string
	category string
}{
	{"BeautyGuru", category.Beauty},
	{"TechExpert", category.Electronics},
	{"FitnessCoach", category.Health},
	{"HomeDecor", category.Home},
	{"CookingMaster", category.Kitchen},
	{"GamingPro", category.Gaming},
	{"FashionTrends", category.Fashion},
	{"TravelVlogger", category.Travel},
	{"DIYCrafts", category.Crafts},
	{"PetLovers", category.Pets},
	{"OutdoorAdventure", category.Sports},
	{"MusicProducer", category.Music},
	{"BookReviewer", category.Books},
	{"ArtCreator", category.Art},
	{"FinanceCoach", category.Finance},
}

// ProductCategories returns the categories demo products cycle through.
func ProductCategories() []string {
	out := make([]string, len(roster))
	for i, r := range roster {
		out[i] = r.category
	}
	return out
}

// Generator produces the demo tables. The same seed and sizes always produce
// the same dataset.
type Generator struct {
	seed  uint64
	sizes Sizes
	year  int
}

// New creates a generator with default sizes.
func New(seed uint64) *Generator {
	return &Generator{seed: seed, sizes: DefaultSizes(), year: 2022}
}

// WithSizes returns a copy of g using the given sizes.
func (g *Generator) WithSizes(s Sizes) *Generator {
	cp := *g
	cp.sizes = s
	return &cp
}

// Sizes returns the configured sizes.
func (g *Generator) Sizes() Sizes {
	return g.sizes
}

// Dataset generates every table.
func (g *Generator) Dataset() *domain.Dataset {
	rng := rand.New(rand.NewPCG(g.seed, g.seed+1))

	ds := &domain.Dataset{}
	ds.Creators = g.creators()
	ds.Products = g.products(rng)
	ds.Orders = g.orders(rng)
	ds.OrderItems = g.orderItems(rng, ds.Orders, ds.Products)
	ds.Sessions = g.sessions(rng, ds.Creators)
	ds.Engagement = g.engagement(rng, ds.Creators, ds.Sessions)
	return ds
}

func (g *Generator) creators() []domain.Creator {
	out := make([]domain.Creator, len(roster))
	for i, r := range roster {
		out[i] = domain.Creator{
			ID:       id.Sequential("creator", i+1),
			Name:     r.name,
			Tier:     domain.CyclicTier(i),
			Category: r.category,
		}
	}
	return out
}

func (g *Generator) products(rng *rand.Rand) []domain.Product {
	cats := ProductCategories()
	out := make([]domain.Product, g.sizes.Products)
	for i := range out {
		n := i + 1
		out[i] = domain.Product{
			ID:       id.Sequential("product", n),
			Name:     fmt.Sprintf("Product %d", n),
			Category: cats[n%len(cats)],
			Price:    uniform(rng, 10, 500),
		}
	}
	return out
}

func (g *Generator) orders(rng *rand.Rand) []domain.Order {
	start := time.Date(g.year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := daysInYear(g.year)

	out := make([]domain.Order, g.sizes.Orders)
	for i := range out {
		at := start.AddDate(0, 0, rng.IntN(days)).
			Add(time.Duration(rng.IntN(24)) * time.Hour).
			Add(time.Duration(rng.IntN(60)) * time.Minute)
		out[i] = domain.Order{
			ID:          id.Sequential("order", i+1),
			CustomerID:  id.Sequential("customer", 1+rng.IntN(max(g.sizes.Customers, 1))),
			PurchasedAt: at,
			Status:      "delivered",
		}
	}
	return out
}

func (g *Generator) orderItems(rng *rand.Rand, orders []domain.Order, products []domain.Product) []domain.OrderItem {
	if len(orders) == 0 || len(products) == 0 {
		return nil
	}
	out := make([]domain.OrderItem, g.sizes.OrderItems)
	for i := range out {
		out[i] = domain.OrderItem{
			OrderID:   orders[rng.IntN(len(orders))].ID,
			ProductID: products[rng.IntN(len(products))].ID,
			Quantity:  1 + rng.IntN(5),
			Price:     uniform(rng, 10, 500),
		}
	}
	return out
}

func (g *Generator) sessions(rng *rand.Rand, creators []domain.Creator) []domain.Session {
	start := time.Date(g.year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := daysInYear(g.year)
	all := domain.NewMetricSet(domain.SessionMetrics()...)

	out := make([]domain.Session, g.sizes.Sessions)
	for i := range out {
		creator := creators[rng.IntN(len(creators))]
		hour := rng.IntN(24)
		date := start.AddDate(0, 0, rng.IntN(days)).Add(time.Duration(hour) * time.Hour)

		views := 100 + rng.IntN(9901)
		unique := int(float64(views) * uniform(rng, 0.5, 0.95))
		engagement := uniform(rng, 0.01, 0.3)
		likes := int(float64(views) * engagement * 0.8)
		comments := int(float64(views)*engagement) - likes

		out[i] = domain.Session{
			ID:         id.Sequential("session", i+1),
			CreatorID:  creator.ID,
			CustomerID: id.Sequential("customer", 1+rng.IntN(max(g.sizes.Customers, 1))),
			Date:       date,
			Hour:       hour,
			TimeSlot:   domain.SlotForHour(hour),
			Weekday:    date.Weekday(),
			Category:   creator.Category,
			Metrics: domain.Metrics{
				DurationMinutes: float64(15 + rng.IntN(106)),
				Views:           views,
				UniqueViewers:   unique,
				Likes:           likes,
				Comments:        comments,
				Revenue:         uniform(rng, 100, 10000),
				ConversionRate:  uniform(rng, 0.001, 0.1),
				EngagementRate:  engagement,
			},
			Observed: all,
		}
	}
	return out
}

func (g *Generator) engagement(rng *rand.Rand, creators []domain.Creator, sessions []domain.Session) []domain.EngagementRecord {
	byCreator := make(map[string][]domain.Session)
	for _, s := range sessions {
		byCreator[s.CreatorID] = append(byCreator[s.CreatorID], s)
	}

	out := make([]domain.EngagementRecord, g.sizes.Engagement)
	for i := range out {
		creator := creators[rng.IntN(len(creators))]
		likes := 10 + rng.IntN(4991)
		comments := rng.IntN(501)
		shares := rng.IntN(201)

		rec := domain.EngagementRecord{
			ID:        id.Sequential("engagement", i+1),
			CreatorID: creator.ID,
			Likes:     likes,
			Comments:  comments,
			Shares:    shares,
			Score:     domain.EngagementScore(likes, comments, shares),
		}
		if linked := byCreator[creator.ID]; len(linked) > 0 {
			s := linked[rng.IntN(len(linked))]
			rec.SessionID = s.ID
			rec.ConversionRate = s.Metrics.ConversionRate
		}
		out[i] = rec
	}

	AssignLevels(out)
	return out
}

// AssignLevels sets each record's level from the tercile of its score.
func AssignLevels(records []domain.EngagementRecord) {
	scores := make([]float64, len(records))
	for i, r := range records {
		scores[i] = r.Score
	}
	cuts := domain.QuantileCuts(scores, 3)
	levels := domain.EngagementLevels()
	for i := range records {
		records[i].Level = levels[domain.BinIndex(records[i].Score, cuts)]
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func daysInYear(year int) int {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(start.AddDate(1, 0, 0).Sub(start).Hours() / 24)
}
