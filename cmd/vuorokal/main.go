package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"vuorokal/internal/batch"
	"vuorokal/internal/config"
	"vuorokal/internal/liikunta"
	appLog "vuorokal/internal/log"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	dateRange  string
	once       bool
	debug      bool
}

func main() {
	appLog.Info("vuorokal starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI -range overrides the configured date range if provided.
	if flags.dateRange != "" {
		conf.DateRange = flags.dateRange
	}

	appLog.Info("effective config",
		"base_url", conf.BaseURL,
		"timezone", conf.Timezone,
		"schedule", conf.Schedule,
		"output_dir", conf.OutputDir,
		"aggregate_file", conf.AggregateFile,
		"date_range", conf.DateRange,
		"max_retries", conf.MaxRetries,
		"category_count", len(conf.Categories),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	client := liikunta.NewClient(conf.BaseURL, conf.RawDir, conf.MaxRetries)

	if flags.once || conf.Schedule == "" {
		if err := batch.Run(ctx, conf, client); err != nil {
			appLog.Error("batch run failed", err)
			os.Exit(1)
		}
		appLog.Info("vuorokal exiting")
		return
	}

	// Scheduled mode: run the batch on the configured cron expression
	// until a signal arrives.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(conf.Schedule, func() {
		if err := batch.Run(ctx, conf, client); err != nil {
			appLog.Error("scheduled batch run failed", err)
		}
	})
	if err != nil {
		appLog.Error("invalid schedule", err, "schedule", conf.Schedule)
		os.Exit(1)
	}

	scheduler.Start()
	<-ctx.Done()

	// Let an in-flight run finish before exiting.
	<-scheduler.Stop().Done()
	appLog.Info("vuorokal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.dateRange, "range", "", "Explicit ISO week range, e.g. 2024-W50--2024-W51 (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one batch cycle and exit even if a schedule is configured")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
