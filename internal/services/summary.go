package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/trend"
)

// Summarize writes the closing paragraph shown under the charts.
func Summarize(r *models.Report) string {
	var sentences []string

	sentences = append(sentences, fmt.Sprintf("Total sales reached %s across %d records.",
		FormatAmount(r.GrandTotal), r.RecordCount))

	if best, ok := aggregate.BestWeek(r.Weekly); ok {
		sentences = append(sentences, fmt.Sprintf("The best week started on %s with %s.",
			best.WeekStart.Format("2006-01-02"), FormatAmount(decimal.NewFromFloat(best.Total))))
	}

	if len(r.Trend.Fitted) > 0 {
		sentences = append(sentences, fmt.Sprintf("Weekly sales follow a %s trend of %s per week.",
			trend.Direction(r.Trend), FormatAmount(decimal.NewFromFloat(r.Trend.Slope))))
	}

	if !r.Holidays.Total().IsZero() {
		share := decimal.NewFromFloat(r.Holidays.HolidayShare() * 100).StringFixed(1)
		sentences = append(sentences, fmt.Sprintf("Holidays account for %s%% of sales.", share))
	}

	if a, b, corr, ok := aggregate.StrongestPair(r.Correlation); ok {
		sentences = append(sentences, fmt.Sprintf("The strongest product correlation is between %s and %s (%.2f).", a, b, corr))
	}

	if top, ok := topRevenue(r.Revenue); ok {
		sentences = append(sentences, fmt.Sprintf("%s brings the most revenue at %s.",
			top.Product, FormatAmount(decimal.NewFromFloat(top.Revenue))))
	}

	return strings.Join(sentences, " ")
}

func topRevenue(revenue []models.ProductRevenue) (models.ProductRevenue, bool) {
	if len(revenue) == 0 {
		return models.ProductRevenue{}, false
	}
	top := revenue[0]
	for _, r := range revenue[1:] {
		if r.Revenue > top.Revenue {
			top = r
		}
	}
	return top, true
}

// FormatAmount renders d with two decimals and thousands separators.
func FormatAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
