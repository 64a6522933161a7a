package sources

import (
	"context"
	"fmt"
	"time"

	"sales-dashboard/internal/models"
)

type inlineRow struct {
	date    string
	day     string
	a, b, c float64
}

// inlineTable is the supermarket sample shipped with the first dashboard: three
// weeks of per-product daily sales. Ventas is the sum of the product columns.
var inlineTable = []inlineRow{
	{"2024-01-01", "Lunes", 45, 115, 54},
	{"2024-01-02", "Martes", 38, 87, 78},
	{"2024-01-03", "Miércoles", 68, 100, 60},
	{"2024-01-04", "Jueves", 67, 48, 58},
	{"2024-01-05", "Viernes", 30, 100, 36},
	{"2024-01-06", "Sábado", 95, 109, 42},
	{"2024-01-07", "Domingo", 105, 140, 64},
	{"2024-01-08", "Lunes", 83, 110, 50},
	{"2024-01-09", "Martes", 55, 59, 34},
	{"2024-01-10", "Miércoles", 70, 59, 75},
	{"2024-01-11", "Jueves", 89, 106, 44},
	{"2024-01-12", "Viernes", 77, 41, 62},
	{"2024-01-13", "Sábado", 109, 88, 40},
	{"2024-01-14", "Domingo", 108, 155, 32},
	{"2024-01-15", "Lunes", 49, 43, 72},
	{"2024-01-16", "Martes", 85, 74, 50},
	{"2024-01-17", "Miércoles", 68, 89, 65},
	{"2024-01-18", "Jueves", 80, 94, 45},
	{"2024-01-19", "Viernes", 76, 113, 48},
	{"2024-01-20", "Sábado", 119, 97, 86},
	{"2024-01-21", "Domingo", 83, 92, 32},
}

type InlineSource struct {
	profile Profile
}

func (s *InlineSource) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds := newDataset(s.profile)
	ds.ProductColumns = []string{"A", "B", "C"}
	ds.Records = make([]models.SalesRecord, 0, len(inlineTable))

	for _, row := range inlineTable {
		ts, err := time.Parse("2006-01-02", row.date)
		if err != nil {
			return nil, fmt.Errorf("inline row %s: %w", row.date, err)
		}
		ds.Records = append(ds.Records, models.SalesRecord{
			Timestamp: ts,
			Amount:    row.a + row.b + row.c,
			DayName:   row.day,
			Products:  map[string]float64{"A": row.a, "B": row.b, "C": row.c},
		})
	}

	return ds, nil
}
