// Package sources loads the sales dataset for a profile: a hard-coded table,
// one or two CSV files, or a seeded synthetic series.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"sales-dashboard/internal/models"
)

// ErrSourceNotFound is returned when an expected input file is absent. It is the
// only load failure the dashboard reports to the user instead of failing the run.
var ErrSourceNotFound = errors.New("input file not found")

// ErrInvalidData wraps every parse or validation failure of an input table.
var ErrInvalidData = errors.New("invalid input data")

type Source interface {
	Load(ctx context.Context) (*models.Dataset, error)
}

// Options carry the deployment-specific parts of a source. Empty file paths
// fall back to the profile defaults resolved against Dir.
type Options struct {
	Dir           string
	SalesFile     string
	SecondaryFile string
	Seed          uint64
	Days          int
}

func New(p Profile, opts Options) (Source, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	switch p.Kind {
	case KindInline:
		return &InlineSource{profile: p}, nil
	case KindSynthetic:
		return NewSyntheticSource(p, opts.Seed, opts.Days), nil
	case KindCSV:
		return &CSVSource{
			profile:         p,
			salesPath:       resolvePath(opts.Dir, opts.SalesFile, p.SalesFile),
			correlationPath: resolvePath(opts.Dir, opts.SecondaryFile, p.SecondaryFile),
		}, nil
	case KindPriceList:
		return &PriceListSource{
			profile:   p,
			salesPath: resolvePath(opts.Dir, opts.SalesFile, p.SalesFile),
			pricePath: resolvePath(opts.Dir, opts.SecondaryFile, p.SecondaryFile),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", p.Kind)
	}
}

func resolvePath(dir, override, fallback string) string {
	name := fallback
	if override != "" {
		name = override
	}
	if name == "" || filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// requireFiles checks every path before any parsing starts so a missing second
// table halts the run as early as a missing first one.
func requireFiles(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return nil
}

func newDataset(p Profile) *models.Dataset {
	return &models.Dataset{
		Profile:        p.Name,
		HolidayRule:    p.HolidayRule,
		DeviationBase:  p.DeviationBase,
		ProductColumns: append([]string(nil), p.ProductColumns...),
	}
}
