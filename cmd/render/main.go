// Command render runs the sales pipeline once and writes the charts, the
// workbook and the summary to a directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/sources"
)

const runTimeout = 2 * time.Minute

func main() {
	outDir := flag.String("out", "out", "directory for the generated files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	written, err := run(ctx, cfg, *outDir, logger)
	if err != nil {
		if errors.Is(err, sources.ErrSourceNotFound) {
			logger.Error("sales data not found", "error", err)
		} else {
			logger.Error("render failed", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("report written", "dir", *outDir, "files", written)
}

// run builds one report and returns the paths it wrote.
func run(ctx context.Context, cfg *config.Config, outDir string, logger *slog.Logger) ([]string, error) {
	src, err := sources.FromConfig(cfg.Data)
	if err != nil {
		return nil, err
	}

	analytics := services.NewAnalytics(src, logger, services.WithRollingWindow(cfg.Data.RollingWindow))
	report, set, err := analytics.Dashboard(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	for _, ch := range set.All() {
		if err := write(ch.Name+".png", ch.PNG); err != nil {
			return written, err
		}
	}

	f, err := os.Create(filepath.Join(outDir, "report.xlsx"))
	if err != nil {
		return written, fmt.Errorf("create workbook: %w", err)
	}
	if err := export.WriteWorkbook(f, report); err != nil {
		f.Close()
		return written, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("close workbook: %w", err)
	}
	written = append(written, f.Name())

	if err := write("summary.txt", []byte(report.Summary+"\n")); err != nil {
		return written, err
	}

	return written, nil
}
