package sources

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"sales-dashboard/internal/models"
)

const defaultDays = 90

var syntheticStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// productShape is the per-product baseline, its loading on the shared demand
// factor and its own noise level.
type productShape struct {
	base, loading, noise float64
}

var syntheticProducts = map[string]productShape{
	"A": {base: 200, loading: 40, noise: 20},
	"B": {base: 150, loading: 30, noise: 25},
	"C": {base: 100, loading: -20, noise: 15},
	"D": {base: 120, loading: 0, noise: 30},
	"E": {base: 80, loading: 10, noise: 30},
}

// SyntheticSource generates a deterministic placeholder series: for a given
// seed and length every call returns identical records. Every seed, zero
// included, is used as given.
type SyntheticSource struct {
	profile Profile
	seed    uint64
	days    int
}

func NewSyntheticSource(p Profile, seed uint64, days int) *SyntheticSource {
	if days <= 0 {
		days = defaultDays
	}
	return &SyntheticSource{profile: p, seed: seed, days: days}
}

func (s *SyntheticSource) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(s.seed, s.seed))

	ds := newDataset(s.profile)
	columns := ds.ProductColumns
	if len(columns) == 0 {
		columns = []string{"A", "B", "C", "D", "E"}
		ds.ProductColumns = columns
	}

	ds.Records = make([]models.SalesRecord, 0, s.days)
	for i := range s.days {
		ts := syntheticStart.AddDate(0, 0, i)

		amount := 1000 + 5*float64(i) + rng.NormFloat64()*80
		if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
			amount += 300
		}

		demand := rng.NormFloat64()
		products := make(map[string]float64, len(columns))
		for _, name := range columns {
			shape, ok := syntheticProducts[name]
			if !ok {
				shape = productShape{base: 100, noise: 25}
			}
			products[name] = round2(shape.base + shape.loading*demand + shape.noise*rng.NormFloat64())
		}

		ds.Records = append(ds.Records, models.SalesRecord{
			Timestamp: ts,
			Amount:    round2(amount),
			DayName:   ts.Weekday().String(),
			Products:  products,
		})
	}

	return ds, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
