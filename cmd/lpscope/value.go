package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"positionScope/internal/config"
	"positionScope/internal/model"
	"positionScope/internal/registry"
	"positionScope/internal/report"
	"positionScope/internal/storage"
	"positionScope/internal/storage/postgres"
)

func runValue(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadValue(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshot, err := loadSnapshot(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sinks := []storage.ReportSink{storage.NewJsonlStorage(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sinks = append(sinks, store)
	}

	logger.Info("valuation start",
		zap.Uint64("block", snapshot.BlockNumber),
		zap.Int("positions", len(snapshot.Positions)),
		zap.Float64("threshold", cfg.Threshold),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	valuator := report.NewValuator(report.Config{
		ThresholdPercent: cfg.Threshold,
		Calibration:      cfg.Calibration,
	}, logger.Named("report"))
	result := valuator.Evaluate(snapshot)

	for _, sink := range sinks {
		if err := sink.PutReports(ctx, []model.Report{result}); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

// loadSnapshot reads the snapshot file when given, otherwise the chain.
// Configured anchors replace the file's reference prices.
func loadSnapshot(ctx context.Context, cfg config.ValueConfig, logger *zap.Logger) (model.Snapshot, error) {
	if cfg.Snapshot == "" {
		return readChainSnapshot(ctx, cfg.Chain, logger)
	}

	snapshot, err := storage.ReadSnapshot(cfg.Snapshot)
	if err != nil {
		return model.Snapshot{}, err
	}
	if len(cfg.Chain.Anchors) == 0 {
		return snapshot, nil
	}

	reg, err := registry.New(cfg.Chain.Tokens, nil, logger.Named("registry"))
	if err != nil {
		return model.Snapshot{}, err
	}
	references, err := registry.ReferencePrices(cfg.Chain.Anchors, cfg.Chain.Pegs, reg)
	if err != nil {
		return model.Snapshot{}, err
	}
	snapshot.ReferencePrices = sortedQuotes(references)
	return snapshot, nil
}
