package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"

	"github.com/statfuse/statfuse/internal/app"
	"github.com/statfuse/statfuse/internal/config"
	"github.com/statfuse/statfuse/internal/domain/rawrecord"
	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/observability"
	"github.com/statfuse/statfuse/internal/platform/logging"
	"github.com/statfuse/statfuse/internal/usecase"
)

// batchFile is the on-disk shape of one provider batch: one file per
// provider/sport pair, records in provider-native field names.
type batchFile struct {
	Provider string `json:"provider"`
	Sport    string `json:"sport"`
	Records  []struct {
		Kind   string            `json:"kind"`
		Fields map[string]string `json:"fields"`
	} `json:"records"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <batch.json> [batch.json...]\n", os.Args[0])
		os.Exit(2)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = application.Close()
	}()

	requests, err := loadRequests(os.Args[1:])
	if err != nil {
		logger.Error("load batch files", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := application.Coordinator.RunAll(ctx, requests)
	if err != nil {
		logger.Error("run batches", "error", err)
		os.Exit(1)
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			continue
		}
		summary := result.Summary
		logger.Info("batch done",
			"provider", summary.Provider,
			"sport", summary.Sport.String(),
			"inserted", summary.Inserted,
			"updated", summary.Updated,
			"skipped", summary.Skipped,
			"ambiguous", summary.Ambiguous,
			"conflicts", summary.Conflicts,
			"errors", summary.Errors,
		)
	}

	shutdownCtx := context.Background()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("shutdown tracing", "error", err)
	}
	if err := stopProfiler(); err != nil {
		logger.Warn("stop profiler", "error", err)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func loadRequests(paths []string) ([]usecase.RunRequest, error) {
	out := make([]usecase.RunRequest, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var file batchFile
		if err := sonic.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		sp, err := sport.Parse(file.Sport)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		provider := strings.ToLower(strings.TrimSpace(file.Provider))
		if provider == "" {
			return nil, fmt.Errorf("%s: provider is required", path)
		}

		batch := make([]rawrecord.Record, 0, len(file.Records))
		for _, record := range file.Records {
			batch = append(batch, rawrecord.Record{
				Provider: provider,
				Sport:    sp,
				Kind:     record.Kind,
				Fields:   record.Fields,
			})
		}
		out = append(out, usecase.RunRequest{Provider: provider, Sport: sp, Batch: batch})
	}
	return out, nil
}
