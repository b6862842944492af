// Package generator fabricates demo inventory data. It is the only place in the
// module that draws random numbers; the seed is injected so runs are reproducible.
package generator

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/andresuchdata/reorder-planner/internal/domain"
)

var (
	// FrameSizes are the product variants, one SKU each.
	FrameSizes = []string{
		"10x10", "12x12", "14x14", "16x16", "16x20",
		"18x18", "18x24", "20x20", "20x24", "20x28",
		"22x22", "24x24", "24x30", "24x36", "28x28",
		"30x30", "30x40", "36x36", "36x48", "40x40",
	}

	// MOQOptions are the minimum order quantities handed out at random.
	MOQOptions = []int{10, 25, 50, 100, 200}

	// RegionTrends is how much this year's demand differs from last year's, per region.
	RegionTrends = map[string]float64{
		domain.RegionUS: 1.30,
		domain.RegionUK: 1.10,
		domain.RegionDE: 0.95,
	}
)

// Generator builds synthetic datasets from a seeded random source
type Generator struct {
	seed    uint64
	regions []string
}

// New creates a generator. A zero seed is replaced by the current time.
func New(seed uint64, regions []string) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if len(regions) == 0 {
		regions = []string{domain.RegionUS, domain.RegionUK, domain.RegionDE}
	}
	return &Generator{seed: seed, regions: regions}
}

// Seed returns the seed in use.
func (g *Generator) Seed() uint64 {
	return g.seed
}

// Generate returns one dataset per call. The same seed always yields the same data.
func (g *Generator) Generate() domain.Dataset {
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))

	skus := make([]domain.SKU, 0, len(FrameSizes))
	for _, size := range FrameSizes {
		skus = append(skus, domain.SKU{
			ID:  "FRAME-" + size,
			MOQ: MOQOptions[randInt(rng, 0, len(MOQOptions)-1)],
		})
	}

	records := make([]domain.InventoryRecord, 0, len(skus)*len(g.regions))
	for _, sku := range skus {
		for _, region := range g.regions {
			isUS := region == domain.RegionUS
			stockMultiplier := 1
			if isUS {
				stockMultiplier = 2
			}
			history := generateHistory(rng, isUS)
			records = append(records, domain.InventoryRecord{
				SKUID:         sku.ID,
				Region:        region,
				CurrentStock:  randInt(rng, 0, 200) * stockMultiplier,
				IncomingStock: randInt(rng, 0, 100) * stockMultiplier,
				ActiveOrders:  randInt(rng, 0, 50) * stockMultiplier,
				History:       history,
				RecentHistory: domain.SomeRecentHistory(generateRecentHistory(rng, history, region)),
			})
		}
	}

	return domain.Dataset{SKUs: skus, Records: records}
}

// generateHistory doubles Q4 (Oct-Dec) on top of a random monthly base.
func generateHistory(rng *rand.Rand, isUS bool) []float64 {
	baseMultiplier := 1
	if isUS {
		baseMultiplier = 2
	}
	history := make([]float64, domain.MonthsPerYear)
	for month := range history {
		base := randInt(rng, 20, 80) * baseMultiplier
		if month >= 9 {
			base *= 2
		}
		history[month] = float64(base)
	}
	return history
}

// generateRecentHistory applies the regional trend plus +/-15% noise per month.
func generateRecentHistory(rng *rand.Rand, lastYear []float64, region string) []float64 {
	trend, ok := RegionTrends[region]
	if !ok {
		trend = 1.0
	}
	recent := make([]float64, len(lastYear))
	for i, sales := range lastYear {
		noise := 0.85 + rng.Float64()*0.30
		recent[i] = math.Round(sales * trend * noise)
	}
	return recent
}

func randInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}
