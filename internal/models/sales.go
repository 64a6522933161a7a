package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HolidayRule selects how records are partitioned into holiday and non-holiday sales.
type HolidayRule string

const (
	// RuleFlag uses the record's explicit holiday flag.
	RuleFlag HolidayRule = "flag"
	// RuleWeekend treats Saturday and Sunday as holidays.
	RuleWeekend HolidayRule = "weekend"
)

// DeviationBase selects the reference mean daily deviations are measured against.
type DeviationBase string

const (
	// MeanOfDays averages the daily totals.
	MeanOfDays DeviationBase = "days"
	// MeanOfRecords averages the individual record amounts.
	MeanOfRecords DeviationBase = "records"
)

type SalesRecord struct {
	Timestamp time.Time
	Amount    float64
	DayName   string
	// Holiday is nil when the source has no explicit flag column.
	Holiday  *bool
	Products map[string]float64
}

type PriceEntry struct {
	Product string  `json:"product"`
	Price   float64 `json:"price"`
}

type Dataset struct {
	Profile        string
	HolidayRule    HolidayRule
	DeviationBase  DeviationBase
	Records        []SalesRecord
	ProductColumns []string
	// Correlation is set when the source ships a precomputed matrix.
	Correlation *CorrelationMatrix
	Prices      []PriceEntry
}

type WeeklyTotal struct {
	WeekStart time.Time `json:"week_start"`
	Total     float64   `json:"total"`
}

type DailyDeviation struct {
	Date      time.Time `json:"date"`
	Total     float64   `json:"total"`
	Deviation float64   `json:"deviation"`
}

type HolidaySplit struct {
	Holiday    decimal.Decimal `json:"holiday"`
	NonHoliday decimal.Decimal `json:"non_holiday"`
}

func (h HolidaySplit) Total() decimal.Decimal {
	return h.Holiday.Add(h.NonHoliday)
}

// HolidayShare returns the holiday fraction of total sales, 0 when there are no sales.
func (h HolidaySplit) HolidayShare() float64 {
	total := h.Total()
	if total.IsZero() {
		return 0
	}
	return h.Holiday.Div(total).InexactFloat64()
}

type CorrelationMatrix struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
}

func (m *CorrelationMatrix) Size() int {
	if m == nil {
		return 0
	}
	return len(m.Labels)
}

type Trend struct {
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	Fitted    []float64 `json:"fitted"`
}

type RollingPoint struct {
	WeekStart time.Time `json:"week_start"`
	Average   float64   `json:"average"`
}

// ProductTotal is the summed product column over every record.
type ProductTotal struct {
	Product string  `json:"product"`
	Total   float64 `json:"total"`
}

type ProductRevenue struct {
	Product string  `json:"product"`
	Units   float64 `json:"units"`
	Price   float64 `json:"price"`
	Revenue float64 `json:"revenue"`
}

type Report struct {
	Profile       string            `json:"profile"`
	RecordCount   int               `json:"record_count"`
	GrandTotal    decimal.Decimal   `json:"grand_total"`
	Weekly        []WeeklyTotal     `json:"weekly"`
	Rolling       []RollingPoint    `json:"rolling"`
	Trend         Trend             `json:"trend"`
	Daily         []DailyDeviation  `json:"daily"`
	DeviationBase DeviationBase     `json:"deviation_base"`
	ReferenceAvg  float64           `json:"reference_mean"`
	Holidays      HolidaySplit      `json:"holidays"`
	Correlation   CorrelationMatrix `json:"correlation"`
	Products      []ProductTotal    `json:"products"`
	Revenue       []ProductRevenue  `json:"product_revenue,omitempty"`
	// Records is the loaded table, kept for the page's records view.
	Records     []SalesRecord `json:"-"`
	Summary     string        `json:"summary"`
	GeneratedAt time.Time     `json:"generated_at"`
}
