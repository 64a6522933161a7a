// Package trend fits the straight line drawn over the weekly sales series.
package trend

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"sales-dashboard/internal/models"
)

var ErrInsufficientPoints = errors.New("trend needs at least two points")

// Fit returns the least-squares line y = Slope*x + Intercept over x = 0..n-1
// together with the fitted value at every x.
func Fit(values []float64) (models.Trend, error) {
	if len(values) < 2 {
		return models.Trend{}, fmt.Errorf("%w: got %d", ErrInsufficientPoints, len(values))
	}

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(xs, values, nil, false)

	fitted := make([]float64, len(values))
	for i, x := range xs {
		fitted[i] = slope*x + intercept
	}

	return models.Trend{Slope: slope, Intercept: intercept, Fitted: fitted}, nil
}

// Weekly fits the trend over weekly totals.
func Weekly(weekly []models.WeeklyTotal) (models.Trend, error) {
	values := make([]float64, len(weekly))
	for i, w := range weekly {
		values[i] = w.Total
	}
	return Fit(values)
}

// Direction names the sign of the slope for the summary text.
func Direction(t models.Trend) string {
	switch {
	case t.Slope > 0:
		return "upward"
	case t.Slope < 0:
		return "downward"
	default:
		return "flat"
	}
}
