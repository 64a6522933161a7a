package aggregate

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"sales-dashboard/internal/models"
)

// RollingAverage is the simple moving average of weekly totals over window
// weeks. The first point lands on the window-th week; a series shorter than
// the window yields nothing.
func RollingAverage(weekly []models.WeeklyTotal, window int) []models.RollingPoint {
	if window < 1 || len(weekly) < window {
		return nil
	}

	totals := make([]float64, len(weekly))
	for i, w := range weekly {
		totals[i] = w.Total
	}

	if window == 1 {
		out := make([]models.RollingPoint, len(weekly))
		for i, w := range weekly {
			out[i] = models.RollingPoint{WeekStart: w.WeekStart, Average: w.Total}
		}
		return out
	}

	sma := trend.NewSmaWithPeriod[float64](window)
	averages := helper.ChanToSlice(sma.Compute(helper.SliceToChan(totals)))

	offset := len(weekly) - len(averages)
	out := make([]models.RollingPoint, len(averages))
	for i, avg := range averages {
		out[i] = models.RollingPoint{WeekStart: weekly[i+offset].WeekStart, Average: avg}
	}
	return out
}
