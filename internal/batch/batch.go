// Package batch runs one full pipeline cycle: every configured
// category is aggregated and exported, then the JSON aggregate is
// written for the static site.
package batch

import (
	"context"
	"time"

	"vuorokal/internal/aggregate"
	"vuorokal/internal/config"
	"vuorokal/internal/fsutil"
	"vuorokal/internal/ics"
	appLog "vuorokal/internal/log"
)

// Run executes one batch cycle. Categories are processed in configured
// order and every one must succeed before the aggregate document is
// written; any failure aborts the run with no partial output.
func Run(ctx context.Context, cfg *config.Config, src aggregate.Source) error {
	started := time.Now()

	outDir, err := fsutil.Mkdir(cfg.OutputDir)
	if err != nil {
		return err
	}

	agg := aggregate.New(src, cfg.Location(), cfg.DateRange)

	categories := make([]aggregate.Category, 0, len(cfg.Categories))
	for _, cat := range cfg.Categories {
		res, err := agg.Generate(ctx, cat)
		if err != nil {
			return err
		}

		fileName, err := ics.WriteFile(outDir, cat.Name, res.Events, res.Resources, res.Locations)
		if err != nil {
			return err
		}
		appLog.Info("calendar generated",
			"category", cat.Name,
			"file", fileName,
			"events", len(res.Events),
			"resources", len(res.Resources),
			"locations", len(res.Locations),
		)

		categories = append(categories, aggregate.Category{
			Name:     cat.Name,
			FileName: fileName,
			Events:   res.Events,
		})
	}

	if err := aggregate.Write(cfg.AggregateFile, categories); err != nil {
		return err
	}

	appLog.Info("batch completed", "categories", len(categories), "elapsed", time.Since(started).String())
	return nil
}
