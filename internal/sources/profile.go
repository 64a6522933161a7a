package sources

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"sales-dashboard/internal/models"
)

type Kind string

const (
	KindInline    Kind = "inline"
	KindCSV       Kind = "csv"
	KindPriceList Kind = "csv-prices"
	KindSynthetic Kind = "synthetic"
)

// Profile describes one data source layout: where the tables live, what the
// columns are called and which partition/averaging rules apply.
type Profile struct {
	Name           string               `yaml:"name"`
	Kind           Kind                 `yaml:"kind"`
	SalesFile      string               `yaml:"sales_file"`
	SecondaryFile  string               `yaml:"secondary_file"`
	DateColumn     string               `yaml:"date_column"`
	DateLayouts    []string             `yaml:"date_layouts"`
	AmountColumn   string               `yaml:"amount_column"`
	DayColumn      string               `yaml:"day_column"`
	HolidayColumn  string               `yaml:"holiday_column"`
	ProductColumns []string             `yaml:"product_columns"`
	HolidayRule    models.HolidayRule   `yaml:"holiday_rule"`
	DeviationBase  models.DeviationBase `yaml:"deviation_base"`
}

func (p Profile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}

	switch p.Kind {
	case KindInline, KindSynthetic:
	case KindCSV, KindPriceList:
		if p.SalesFile == "" {
			return fmt.Errorf("profile %q: sales_file is required", p.Name)
		}
		if p.DateColumn == "" || p.AmountColumn == "" {
			return fmt.Errorf("profile %q: date_column and amount_column are required", p.Name)
		}
		if p.Kind == KindPriceList && p.SecondaryFile == "" {
			return fmt.Errorf("profile %q: secondary_file (price list) is required", p.Name)
		}
	default:
		return fmt.Errorf("profile %q: unknown kind %q", p.Name, p.Kind)
	}

	switch p.HolidayRule {
	case models.RuleWeekend:
	case models.RuleFlag:
		if p.Kind != KindInline && p.Kind != KindSynthetic && p.HolidayColumn == "" {
			return fmt.Errorf("profile %q: flag holiday rule needs holiday_column", p.Name)
		}
	default:
		return fmt.Errorf("profile %q: unknown holiday_rule %q", p.Name, p.HolidayRule)
	}

	switch p.DeviationBase {
	case models.MeanOfDays, models.MeanOfRecords:
	default:
		return fmt.Errorf("profile %q: unknown deviation_base %q", p.Name, p.DeviationBase)
	}

	return nil
}

var defaultDateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00", "02/01/2006"}

// builtinProfiles mirror the four historical dashboard versions.
func builtinProfiles() []Profile {
	return []Profile{
		{
			Name:           "inline",
			Kind:           KindInline,
			ProductColumns: []string{"A", "B", "C"},
			HolidayRule:    models.RuleWeekend,
			DeviationBase:  models.MeanOfDays,
		},
		{
			Name:          "csv",
			Kind:          KindCSV,
			SalesFile:     "sales.csv",
			SecondaryFile: "correlation.csv",
			DateColumn:    "Fecha",
			DateLayouts:   []string{"2006-01-02", "02/01/2006"},
			AmountColumn:  "Ventas",
			HolidayColumn: "Festivo",
			HolidayRule:   models.RuleFlag,
			DeviationBase: models.MeanOfDays,
		},
		{
			Name:           "csv-prices",
			Kind:           KindPriceList,
			SalesFile:      "transactions.csv",
			SecondaryFile:  "prices.csv",
			DateColumn:     "timestamp",
			AmountColumn:   "amount",
			HolidayColumn:  "is_holiday",
			ProductColumns: []string{"product_a", "product_b", "product_c", "product_d"},
			HolidayRule:    models.RuleFlag,
			DeviationBase:  models.MeanOfRecords,
		},
		{
			Name:           "synthetic",
			Kind:           KindSynthetic,
			ProductColumns: []string{"A", "B", "C", "D", "E"},
			HolidayRule:    models.RuleWeekend,
			DeviationBase:  models.MeanOfDays,
		},
	}
}

type Registry struct {
	profiles map[string]Profile
}

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// NewRegistry returns the built-in profiles, extended or overridden by the
// profiles listed in the YAML file at path. An empty path skips the file.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range builtinProfiles() {
		r.profiles[p.Name] = p
	}

	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles file %s: %w", path, err)
	}

	for _, p := range file.Profiles {
		if err := p.validate(); err != nil {
			return nil, err
		}
		r.profiles[p.Name] = p
	}

	return r, nil
}

func (r *Registry) Lookup(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown data profile %q (known: %v)", name, r.Names())
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Profile) layouts() []string {
	if len(p.DateLayouts) > 0 {
		return p.DateLayouts
	}
	return defaultDateLayouts
}
