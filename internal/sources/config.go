package sources

import (
	"fmt"

	"sales-dashboard/internal/config"
)

// FromConfig resolves the configured profile, built-in or from the profiles
// file, into a data source.
func FromConfig(cfg config.DataConfig) (Source, error) {
	registry, err := NewRegistry(cfg.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	profile, err := registry.Lookup(cfg.Profile)
	if err != nil {
		return nil, err
	}

	return New(profile, Options{
		Dir:           cfg.Dir,
		SalesFile:     cfg.SalesFile,
		SecondaryFile: cfg.SecondaryFile,
		Seed:          cfg.Seed,
		Days:          cfg.SyntheticDays,
	})
}
