// Package export writes a report as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/models"
)

const (
	SheetWeekly      = "Weekly"
	SheetDaily       = "Daily"
	SheetHoliday     = "Holiday"
	SheetCorrelation = "Correlation"
	SheetRevenue     = "Revenue"
	SheetSummary     = "Summary"
)

const dateFormat = "2006-01-02"

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheetWriter struct {
	f      *excelize.File
	header int
}

// WriteWorkbook writes one sheet per report view. The Revenue sheet is only
// present when the report carries product revenue.
func WriteWorkbook(w io.Writer, r *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	sw := &sheetWriter{f: f, header: header}

	if err := f.SetSheetName("Sheet1", SheetWeekly); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}

	steps := []struct {
		sheet string
		fill  func(string, *models.Report) error
	}{
		{SheetWeekly, sw.weekly},
		{SheetDaily, sw.daily},
		{SheetHoliday, sw.holiday},
		{SheetCorrelation, sw.correlation},
		{SheetRevenue, sw.revenue},
		{SheetSummary, sw.summary},
	}
	for _, step := range steps {
		if step.sheet == SheetRevenue && len(r.Revenue) == 0 {
			continue
		}
		if step.sheet != SheetWeekly {
			if _, err := f.NewSheet(step.sheet); err != nil {
				return fmt.Errorf("create sheet %s: %w", step.sheet, err)
			}
		}
		if err := step.fill(step.sheet, r); err != nil {
			return fmt.Errorf("fill sheet %s: %w", step.sheet, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (s *sheetWriter) row(sheet string, n int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return s.f.SetSheetRow(sheet, cell, &values)
}

func (s *sheetWriter) headerRow(sheet string, titles ...any) error {
	if err := s.row(sheet, 1, titles...); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		return err
	}
	if err := s.f.SetCellStyle(sheet, "A1", last, s.header); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(titles))
	if err != nil {
		return err
	}
	return s.f.SetColWidth(sheet, "A", lastCol, 16)
}

func (s *sheetWriter) weekly(sheet string, r *models.Report) error {
	if err := s.headerRow(sheet, "Week start", "Total", "Trend", "Rolling average"); err != nil {
		return err
	}

	rolling := make(map[string]float64, len(r.Rolling))
	for _, p := range r.Rolling {
		rolling[p.WeekStart.Format(dateFormat)] = p.Average
	}

	for i, w := range r.Weekly {
		values := []any{w.WeekStart.Format(dateFormat), w.Total}
		if i < len(r.Trend.Fitted) {
			values = append(values, r.Trend.Fitted[i])
		} else {
			values = append(values, nil)
		}
		if avg, ok := rolling[w.WeekStart.Format(dateFormat)]; ok {
			values = append(values, avg)
		}
		if err := s.row(sheet, i+2, values...); err != nil {
			return err
		}
	}
	return nil
}

func (s *sheetWriter) daily(sheet string, r *models.Report) error {
	if err := s.headerRow(sheet, "Date", "Total", "Deviation"); err != nil {
		return err
	}
	for i, d := range r.Daily {
		if err := s.row(sheet, i+2, d.Date.Format(dateFormat), d.Total, d.Deviation); err != nil {
			return err
		}
	}
	return nil
}

func (s *sheetWriter) holiday(sheet string, r *models.Report) error {
	if err := s.headerRow(sheet, "Category", "Sales", "Share"); err != nil {
		return err
	}
	share := r.Holidays.HolidayShare()
	nonShare := 0.0
	if !r.Holidays.Total().IsZero() {
		nonShare = 1 - share
	}
	if err := s.row(sheet, 2, "Holiday", r.Holidays.Holiday.InexactFloat64(), share); err != nil {
		return err
	}
	return s.row(sheet, 3, "Non-holiday", r.Holidays.NonHoliday.InexactFloat64(), nonShare)
}

func (s *sheetWriter) correlation(sheet string, r *models.Report) error {
	titles := []any{""}
	for _, l := range r.Correlation.Labels {
		titles = append(titles, l)
	}
	if err := s.headerRow(sheet, titles...); err != nil {
		return err
	}
	for i, l := range r.Correlation.Labels {
		values := []any{l}
		for _, v := range r.Correlation.Values[i] {
			values = append(values, v)
		}
		if err := s.row(sheet, i+2, values...); err != nil {
			return err
		}
	}
	return nil
}

func (s *sheetWriter) revenue(sheet string, r *models.Report) error {
	if err := s.headerRow(sheet, "Product", "Units", "Price", "Revenue"); err != nil {
		return err
	}
	for i, p := range r.Revenue {
		if err := s.row(sheet, i+2, p.Product, p.Units, p.Price, p.Revenue); err != nil {
			return err
		}
	}
	return nil
}

func (s *sheetWriter) summary(sheet string, r *models.Report) error {
	rows := [][]any{
		{"Profile", r.Profile},
		{"Records", r.RecordCount},
		{"Grand total", r.GrandTotal.InexactFloat64()},
		{"Deviation base", string(r.DeviationBase)},
		{"Reference mean", r.ReferenceAvg},
		{"Trend slope", r.Trend.Slope},
		{"Trend intercept", r.Trend.Intercept},
		{"Generated at", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Summary", r.Summary},
	}
	for i, values := range rows {
		if err := s.row(sheet, i+1, values...); err != nil {
			return err
		}
	}
	return s.f.SetColWidth(sheet, "A", "A", 18)
}
