// Package aggregate derives the dashboard views from raw sales records. Every
// function is pure: the same records always yield the same views.
package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"sales-dashboard/internal/models"
)

const day = 24 * time.Hour

// dateOf drops the clock part of ts, keeping its calendar date.
func dateOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekStart returns the Monday of the ISO week containing ts.
func weekStart(ts time.Time) time.Time {
	d := dateOf(ts)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeeklyTotals sums record amounts per ISO week. Weeks between the first and
// last record with no sales are emitted with a zero total.
func WeeklyTotals(records []models.SalesRecord) []models.WeeklyTotal {
	if len(records) == 0 {
		return nil
	}

	sums := make(map[time.Time]float64)
	first, last := weekStart(records[0].Timestamp), weekStart(records[0].Timestamp)
	for _, r := range records {
		ws := weekStart(r.Timestamp)
		sums[ws] += r.Amount
		if ws.Before(first) {
			first = ws
		}
		if ws.After(last) {
			last = ws
		}
	}

	var out []models.WeeklyTotal
	for ws := first; !ws.After(last); ws = ws.AddDate(0, 0, 7) {
		out = append(out, models.WeeklyTotal{WeekStart: ws, Total: sums[ws]})
	}
	return out
}

// DailyTotals sums record amounts per calendar day over the full date range,
// filling days without records with zero.
func DailyTotals(records []models.SalesRecord) []models.DailyDeviation {
	if len(records) == 0 {
		return nil
	}

	sums := make(map[time.Time]float64)
	first, last := dateOf(records[0].Timestamp), dateOf(records[0].Timestamp)
	for _, r := range records {
		d := dateOf(r.Timestamp)
		sums[d] += r.Amount
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	out := make([]models.DailyDeviation, 0, int(last.Sub(first)/day)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, models.DailyDeviation{Date: d, Total: sums[d]})
	}
	return out
}

// ReferenceMean is the mean deviations are measured against.
func ReferenceMean(records []models.SalesRecord, daily []models.DailyDeviation, base models.DeviationBase) float64 {
	switch base {
	case models.MeanOfRecords:
		if len(records) == 0 {
			return 0
		}
		amounts := make([]float64, len(records))
		for i, r := range records {
			amounts[i] = r.Amount
		}
		return stat.Mean(amounts, nil)
	default:
		if len(daily) == 0 {
			return 0
		}
		totals := make([]float64, len(daily))
		for i, d := range daily {
			totals[i] = d.Total
		}
		return stat.Mean(totals, nil)
	}
}

// DailyDeviations returns each day's total minus the reference mean selected by
// base, along with that mean.
func DailyDeviations(records []models.SalesRecord, base models.DeviationBase) ([]models.DailyDeviation, float64) {
	daily := DailyTotals(records)
	ref := ReferenceMean(records, daily, base)
	for i := range daily {
		daily[i].Deviation = daily[i].Total - ref
	}
	return daily, ref
}

var weekendNames = map[string]bool{
	"saturday": true,
	"sunday":   true,
	"sat":      true,
	"sun":      true,
	"sábado":   true,
	"sabado":   true,
	"domingo":  true,
}

// IsWeekend classifies a record by its day name, falling back to the
// timestamp weekday when the name is empty.
func IsWeekend(r models.SalesRecord) bool {
	name := strings.ToLower(strings.TrimSpace(r.DayName))
	if name == "" {
		wd := r.Timestamp.Weekday()
		return wd == time.Saturday || wd == time.Sunday
	}
	return weekendNames[name]
}

// SplitHolidays partitions sales into holiday and non-holiday totals. Records
// without a flag count as non-holiday under RuleFlag.
func SplitHolidays(records []models.SalesRecord, rule models.HolidayRule) models.HolidaySplit {
	split := models.HolidaySplit{Holiday: decimal.Zero, NonHoliday: decimal.Zero}
	for _, r := range records {
		amount := decimal.NewFromFloat(r.Amount)

		var holiday bool
		switch rule {
		case models.RuleWeekend:
			holiday = IsWeekend(r)
		default:
			holiday = r.Holiday != nil && *r.Holiday
		}

		if holiday {
			split.Holiday = split.Holiday.Add(amount)
		} else {
			split.NonHoliday = split.NonHoliday.Add(amount)
		}
	}
	return split
}

// Correlate computes the pairwise Pearson matrix of the product columns. A
// missing product value counts as zero; a pair involving a constant column
// is reported as 0.
func Correlate(records []models.SalesRecord, columns []string) models.CorrelationMatrix {
	series := make([][]float64, len(columns))
	for i, col := range columns {
		series[i] = make([]float64, len(records))
		for j, r := range records {
			series[i][j] = r.Products[col]
		}
	}

	m := models.CorrelationMatrix{
		Labels: append([]string(nil), columns...),
		Values: make([][]float64, len(columns)),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(columns))
		m.Values[i][i] = 1
	}

	if len(records) < 2 {
		return m
	}

	for i := range columns {
		for j := i + 1; j < len(columns); j++ {
			r := stat.Correlation(series[i], series[j], nil)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			r = math.Max(-1, math.Min(1, r))
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// StrongestPair returns the off-diagonal pair with the largest absolute
// correlation. ok is false for matrices smaller than 2x2.
func StrongestPair(m models.CorrelationMatrix) (a, b string, r float64, ok bool) {
	for i := range m.Labels {
		for j := i + 1; j < len(m.Labels); j++ {
			if !ok || math.Abs(m.Values[i][j]) > math.Abs(r) {
				a, b, r, ok = m.Labels[i], m.Labels[j], m.Values[i][j], true
			}
		}
	}
	return a, b, r, ok
}

// ProductRevenue multiplies units sold per product by the listed price, in
// price-list order. Products absent from every record report zero units.
func ProductRevenue(records []models.SalesRecord, prices []models.PriceEntry) []models.ProductRevenue {
	if len(prices) == 0 {
		return nil
	}

	units := make(map[string]decimal.Decimal)
	for _, r := range records {
		for name, qty := range r.Products {
			units[name] = units[name].Add(decimal.NewFromFloat(qty))
		}
	}

	out := make([]models.ProductRevenue, 0, len(prices))
	for _, p := range prices {
		u := units[p.Product]
		out = append(out, models.ProductRevenue{
			Product: p.Product,
			Units:   u.InexactFloat64(),
			Price:   p.Price,
			Revenue: u.Mul(decimal.NewFromFloat(p.Price)).Round(2).InexactFloat64(),
		})
	}
	return out
}

// ProductTotals sums each product column over every record, in column order.
func ProductTotals(records []models.SalesRecord, columns []string) []models.ProductTotal {
	if len(columns) == 0 {
		return nil
	}

	sums := make([]decimal.Decimal, len(columns))
	for _, r := range records {
		for i, col := range columns {
			if v, ok := r.Products[col]; ok {
				sums[i] = sums[i].Add(decimal.NewFromFloat(v))
			}
		}
	}

	out := make([]models.ProductTotal, len(columns))
	for i, col := range columns {
		out[i] = models.ProductTotal{Product: col, Total: sums[i].InexactFloat64()}
	}
	return out
}

// BestWeek returns the week with the highest total, earliest on ties.
func BestWeek(weekly []models.WeeklyTotal) (models.WeeklyTotal, bool) {
	if len(weekly) == 0 {
		return models.WeeklyTotal{}, false
	}
	sorted := append([]models.WeeklyTotal(nil), weekly...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Total > sorted[j].Total })
	return sorted[0], true
}
