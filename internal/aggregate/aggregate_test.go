package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			panic(err)
		}
	}
	return t
}

func rec(ts string, amount float64) models.SalesRecord {
	return models.SalesRecord{Timestamp: date(ts), Amount: amount}
}

func flag(v bool) *bool { return &v }

func sum(records []models.SalesRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.Amount
	}
	return total
}

func TestWeeklyTotals(t *testing.T) {
	records := []models.SalesRecord{
		rec("2024-01-07", 5),
		rec("2024-01-01", 10),
		rec("2024-01-22 18:30", 3.5),
		rec("2024-01-03 09:00", 1.25),
	}

	weekly := WeeklyTotals(records)
	require.Len(t, weekly, 4)

	assert.Equal(t, date("2024-01-01"), weekly[0].WeekStart)
	assert.Equal(t, 16.25, weekly[0].Total)
	assert.Equal(t, date("2024-01-08"), weekly[1].WeekStart)
	assert.Zero(t, weekly[1].Total)
	assert.Zero(t, weekly[2].Total)
	assert.Equal(t, date("2024-01-22"), weekly[3].WeekStart)

	var total float64
	for _, w := range weekly {
		assert.Equal(t, time.Monday, w.WeekStart.Weekday())
		total += w.Total
	}
	assert.InDelta(t, sum(records), total, 1e-9)
}

func TestWeeklyTotals_Empty(t *testing.T) {
	assert.Empty(t, WeeklyTotals(nil))
	assert.Empty(t, DailyTotals(nil))
}

func TestWeekStart_SundayBelongsToPreviousMonday(t *testing.T) {
	assert.Equal(t, date("2024-03-04"), weekStart(date("2024-03-10 23:59")))
	assert.Equal(t, date("2024-03-11"), weekStart(date("2024-03-11")))
}

func TestDailyDeviations_MeanOfDays(t *testing.T) {
	records := []models.SalesRecord{
		rec("2024-02-01", 100),
		rec("2024-02-02", 40),
		rec("2024-02-04", 70),
	}

	daily, ref := DailyDeviations(records, models.MeanOfDays)
	require.Len(t, daily, 4, "gap day is resampled")
	assert.Equal(t, date("2024-02-03"), daily[2].Date)
	assert.Zero(t, daily[2].Total)
	assert.InDelta(t, 52.5, ref, 1e-9)

	var devSum float64
	for _, d := range daily {
		devSum += d.Deviation
		assert.InDelta(t, d.Total-ref, d.Deviation, 1e-9)
	}
	assert.InDelta(t, 0, devSum, 1e-9)
}

func TestDailyDeviations_MeanOfRecords(t *testing.T) {
	records := []models.SalesRecord{
		rec("2024-02-01 09:00", 10),
		rec("2024-02-01 15:00", 20),
		rec("2024-02-02 11:00", 30),
	}

	daily, ref := DailyDeviations(records, models.MeanOfRecords)
	require.Len(t, daily, 2)
	assert.InDelta(t, 20, ref, 1e-9)
	assert.InDelta(t, 30, daily[0].Total, 1e-9)

	dayMean := ReferenceMean(records, daily, models.MeanOfDays)
	var devSum float64
	for _, d := range daily {
		devSum += d.Deviation
	}
	assert.InDelta(t, float64(len(daily))*(dayMean-ref), devSum, 1e-9)
}

func TestSplitHolidays_Flag(t *testing.T) {
	records := []models.SalesRecord{
		{Timestamp: date("2024-01-01"), Amount: 10.1, Holiday: flag(true)},
		{Timestamp: date("2024-01-02"), Amount: 20.2, Holiday: flag(false)},
		{Timestamp: date("2024-01-06"), Amount: 30.3},
	}

	split := SplitHolidays(records, models.RuleFlag)
	assert.True(t, split.Holiday.Equal(decimal.RequireFromString("10.1")))
	assert.True(t, split.NonHoliday.Equal(decimal.RequireFromString("50.5")))
	assert.InDelta(t, sum(records), split.Total().InexactFloat64(), 1e-9)
}

func TestSplitHolidays_Weekend(t *testing.T) {
	records := []models.SalesRecord{
		{Timestamp: date("2024-01-05"), Amount: 1, DayName: "Viernes"},
		{Timestamp: date("2024-01-06"), Amount: 2, DayName: "Sábado"},
		{Timestamp: date("2024-01-07"), Amount: 4, DayName: "domingo"},
		{Timestamp: date("2024-01-13"), Amount: 8, DayName: "Saturday"},
		{Timestamp: date("2024-01-14"), Amount: 16},
		{Timestamp: date("2024-01-15"), Amount: 32},
	}

	split := SplitHolidays(records, models.RuleWeekend)
	assert.Equal(t, "30", split.Holiday.String())
	assert.Equal(t, "33", split.NonHoliday.String())
	assert.InDelta(t, 30.0/63.0, split.HolidayShare(), 1e-9)
}

func TestSplitHolidays_Empty(t *testing.T) {
	split := SplitHolidays(nil, models.RuleFlag)
	assert.True(t, split.Total().IsZero())
	assert.Zero(t, split.HolidayShare())
}

func TestCorrelate(t *testing.T) {
	products := []map[string]float64{
		{"A": 1, "B": 2, "C": 5, "D": 9},
		{"A": 2, "B": 4, "C": 5, "D": 7},
		{"A": 3, "B": 6, "C": 5, "D": 4},
		{"A": 4, "B": 8, "C": 5, "D": 1},
	}
	records := make([]models.SalesRecord, len(products))
	for i, p := range products {
		records[i] = models.SalesRecord{Timestamp: date("2024-01-01").AddDate(0, 0, i), Products: p}
	}

	m := Correlate(records, []string{"A", "B", "C", "D"})
	require.Equal(t, 4, m.Size())

	for i := range m.Values {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Values {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
			assert.GreaterOrEqual(t, m.Values[i][j], -1.0)
			assert.LessOrEqual(t, m.Values[i][j], 1.0)
		}
	}

	assert.InDelta(t, 1, m.Values[0][1], 1e-9)
	assert.Zero(t, m.Values[0][2], "constant column")
	assert.Less(t, m.Values[0][3], -0.9)

	a, b, r, ok := StrongestPair(m)
	require.True(t, ok)
	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.InDelta(t, 1, r, 1e-9)
}

func TestCorrelate_TooFewRecords(t *testing.T) {
	m := Correlate([]models.SalesRecord{rec("2024-01-01", 1)}, []string{"A", "B"})
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, m.Values)

	_, _, _, ok := StrongestPair(models.CorrelationMatrix{Labels: []string{"A"}, Values: [][]float64{{1}}})
	assert.False(t, ok)
}

func TestRollingAverage(t *testing.T) {
	weekly := make([]models.WeeklyTotal, 5)
	for i := range weekly {
		weekly[i] = models.WeeklyTotal{WeekStart: date("2024-01-01").AddDate(0, 0, 7*i), Total: float64(i + 1)}
	}

	points := RollingAverage(weekly, 2)
	require.Len(t, points, 4)
	assert.Equal(t, weekly[1].WeekStart, points[0].WeekStart)
	for i, want := range []float64{1.5, 2.5, 3.5, 4.5} {
		assert.InDelta(t, want, points[i].Average, 1e-9)
	}

	assert.Len(t, RollingAverage(weekly, 1), 5)
	assert.Nil(t, RollingAverage(weekly, 6))
	assert.Nil(t, RollingAverage(weekly, 0))
}

func TestProductRevenue(t *testing.T) {
	records := []models.SalesRecord{
		{Products: map[string]float64{"product_a": 1, "product_b": 2}},
		{Products: map[string]float64{"product_a": 2, "product_b": 1}},
	}
	prices := []models.PriceEntry{{Product: "product_b", Price: 4}, {Product: "product_a", Price: 2.5}, {Product: "product_x", Price: 9}}

	rev := ProductRevenue(records, prices)
	require.Len(t, rev, 3)
	assert.Equal(t, models.ProductRevenue{Product: "product_b", Units: 3, Price: 4, Revenue: 12}, rev[0])
	assert.Equal(t, 7.5, rev[1].Revenue)
	assert.Zero(t, rev[2].Units)

	assert.Nil(t, ProductRevenue(records, nil))
}

func TestProductTotals(t *testing.T) {
	records := []models.SalesRecord{
		{Products: map[string]float64{"A": 0.1, "B": 2, "C": 5}},
		{Products: map[string]float64{"A": 0.2, "B": 1}},
		{},
	}

	totals := ProductTotals(records, []string{"B", "A", "C", "D"})
	assert.Equal(t, []models.ProductTotal{
		{Product: "B", Total: 3},
		{Product: "A", Total: 0.3},
		{Product: "C", Total: 5},
		{Product: "D", Total: 0},
	}, totals)

	assert.Nil(t, ProductTotals(records, nil))
}

func TestBestWeek(t *testing.T) {
	_, ok := BestWeek(nil)
	assert.False(t, ok)

	weekly := []models.WeeklyTotal{
		{WeekStart: date("2024-01-01"), Total: 5},
		{WeekStart: date("2024-01-08"), Total: 9},
		{WeekStart: date("2024-01-15"), Total: 9},
	}
	best, ok := BestWeek(weekly)
	require.True(t, ok)
	assert.Equal(t, date("2024-01-08"), best.WeekStart)
}
