package sources

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const symmetryTolerance = 1e-6

// CSVSource reads daily sales plus a precomputed product correlation matrix.
type CSVSource struct {
	profile         Profile
	salesPath       string
	correlationPath string
}

func (s *CSVSource) Load(ctx context.Context) (*models.Dataset, error) {
	if err := requireFiles(s.salesPath, s.correlationPath); err != nil {
		return nil, err
	}

	ds := newDataset(s.profile)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := loadSales(ctx, s.salesPath, s.profile)
		if err != nil {
			return err
		}
		ds.Records = records
		return nil
	})
	if s.correlationPath != "" {
		g.Go(func() error {
			matrix, err := loadCorrelation(ctx, s.correlationPath)
			if err != nil {
				return err
			}
			ds.Correlation = matrix
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, invalid(err)
	}

	if ds.Correlation != nil && len(ds.ProductColumns) == 0 {
		ds.ProductColumns = append([]string(nil), ds.Correlation.Labels...)
	}

	return ds, nil
}

// PriceListSource reads per-transaction sales with product columns plus a
// product price list.
type PriceListSource struct {
	profile   Profile
	salesPath string
	pricePath string
}

func (s *PriceListSource) Load(ctx context.Context) (*models.Dataset, error) {
	if err := requireFiles(s.salesPath, s.pricePath); err != nil {
		return nil, err
	}

	ds := newDataset(s.profile)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := loadSales(ctx, s.salesPath, s.profile)
		if err != nil {
			return err
		}
		ds.Records = records
		return nil
	})
	g.Go(func() error {
		prices, err := loadPrices(ctx, s.pricePath)
		if err != nil {
			return err
		}
		ds.Prices = prices
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, invalid(err)
	}

	return ds, nil
}

func invalid(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidData, err)
}

func loadSales(ctx context.Context, path string, p Profile) ([]models.SalesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return t.salesRecords(p)
}

// loadCorrelation expects the first column to hold row labels and the header to
// repeat the same labels in the same order.
func loadCorrelation(ctx context.Context, path string) (*models.CorrelationMatrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	labels := t.header[1:]
	if len(t.rows) != len(labels) {
		return nil, fmt.Errorf("%s: matrix is not square (%d rows, %d columns)", path, len(t.rows), len(labels))
	}

	m := &models.CorrelationMatrix{
		Labels: append([]string(nil), labels...),
		Values: make([][]float64, len(labels)),
	}
	for i, row := range t.rows {
		if got := strings.TrimSpace(row[0]); got != labels[i] {
			return nil, fmt.Errorf("%s: row %d label %q does not match column %q", path, i+1, got, labels[i])
		}
		m.Values[i] = make([]float64, len(labels))
		for j, raw := range row[1:] {
			v, err := parseNumber(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: cell %s/%s: %w", path, labels[i], labels[j], err)
			}
			if v < -1 || v > 1 {
				return nil, fmt.Errorf("%s: cell %s/%s out of range: %g", path, labels[i], labels[j], v)
			}
			m.Values[i][j] = v
		}
	}

	for i := range m.Values {
		if math.Abs(m.Values[i][i]-1) > symmetryTolerance {
			return nil, fmt.Errorf("%s: diagonal %s is %g, want 1", path, labels[i], m.Values[i][i])
		}
		m.Values[i][i] = 1
		for j := i + 1; j < len(m.Values); j++ {
			if math.Abs(m.Values[i][j]-m.Values[j][i]) > symmetryTolerance {
				return nil, fmt.Errorf("%s: matrix is not symmetric at %s/%s", path, labels[i], labels[j])
			}
			m.Values[j][i] = m.Values[i][j]
		}
	}

	return m, nil
}

func loadPrices(ctx context.Context, path string) ([]models.PriceEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	productIdx, err := t.column("product")
	if err != nil {
		return nil, err
	}
	priceIdx, err := t.column("price")
	if err != nil {
		return nil, err
	}

	prices := make([]models.PriceEntry, 0, len(t.rows))
	for i, row := range t.rows {
		price, err := parseNumber(row[priceIdx])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: price: %w", path, i+2, err)
		}
		prices = append(prices, models.PriceEntry{
			Product: strings.TrimSpace(row[productIdx]),
			Price:   price,
		})
	}

	return prices, nil
}
