package sources

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

type table struct {
	path   string
	header []string
	index  map[string]int
	rows   [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return parseTable(path, f)
}

func parseTable(path string, r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	t := &table{
		path:   path,
		header: make([]string, len(records[0])),
		index:  make(map[string]int, len(records[0])),
		rows:   records[1:],
	}
	for i, name := range records[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		t.header[i] = name
		t.index[strings.ToLower(name)] = i
	}

	return t, nil
}

// column looks a header up case-insensitively.
func (t *table) column(name string) (int, error) {
	idx, ok := t.index[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%s: column %q not found", t.path, name)
	}
	return idx, nil
}

type columnSet struct {
	date, amount, day, holiday int
	products                   map[string]int
}

func (t *table) resolveColumns(p Profile) (columnSet, error) {
	cols := columnSet{day: -1, holiday: -1, products: make(map[string]int)}
	var err error

	if cols.date, err = t.column(p.DateColumn); err != nil {
		return cols, err
	}
	if cols.amount, err = t.column(p.AmountColumn); err != nil {
		return cols, err
	}
	if p.DayColumn != "" {
		if cols.day, err = t.column(p.DayColumn); err != nil {
			return cols, err
		}
	}
	if p.HolidayColumn != "" {
		if cols.holiday, err = t.column(p.HolidayColumn); err != nil {
			return cols, err
		}
	}
	for _, name := range p.ProductColumns {
		idx, err := t.column(name)
		if err != nil {
			return cols, err
		}
		cols.products[name] = idx
	}

	return cols, nil
}

func (t *table) salesRecords(p Profile) ([]models.SalesRecord, error) {
	cols, err := t.resolveColumns(p)
	if err != nil {
		return nil, err
	}

	records := make([]models.SalesRecord, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2

		ts, err := parseDate(row[cols.date], p.layouts())
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", t.path, line, err)
		}

		amount, err := parseNumber(row[cols.amount])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: amount: %w", t.path, line, err)
		}

		rec := models.SalesRecord{Timestamp: ts, Amount: amount}

		if cols.day >= 0 {
			rec.DayName = strings.TrimSpace(row[cols.day])
		}

		if cols.holiday >= 0 {
			flag, err := parseFlag(row[cols.holiday])
			if err != nil {
				return nil, fmt.Errorf("%s line %d: holiday: %w", t.path, line, err)
			}
			rec.Holiday = &flag
		}

		if len(cols.products) > 0 {
			rec.Products = make(map[string]float64, len(cols.products))
			for name, idx := range cols.products {
				v, err := parseNumber(row[idx])
				if err != nil {
					return nil, fmt.Errorf("%s line %d: %s: %w", t.path, line, name, err)
				}
				rec.Products[name] = v
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

func parseDate(raw string, layouts []string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func parseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "si", "sí", "s":
		return true, nil
	case "0", "false", "f", "no", "n", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid flag %q", raw)
	}
}
