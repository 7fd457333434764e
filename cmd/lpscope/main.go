package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "lpscope",
		Short:        "AMM liquidity position valuation",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Read pool and position state into a snapshot file",
		RunE:  runSnapshot,
	}
	addChainFlags(snapshotCmd.Flags())
	snapshotCmd.Flags().String("out", "./data/snapshot.json", "output snapshot JSON path")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(snapshotCmd)

	valueCmd := &cobra.Command{
		Use:   "value",
		Short: "Value positions, derive prices and detect price dislocations",
		RunE:  runValue,
	}
	addChainFlags(valueCmd.Flags())
	valueCmd.Flags().String("snapshot", "", "input snapshot JSON (empty reads the chain)")
	valueCmd.Flags().String("out", "./data/reports.jsonl", "output report JSONL path")
	valueCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	valueCmd.Flags().Float64("threshold", 1.0, "arbitrage deviation threshold in percent")
	valueCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(valueCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "RPC URL")
	flags.Uint64("chain-id", 0, "expected chain id, 0 skips the check")
	flags.String("wallet", "", "wallet address")
	flags.StringSlice("v2-pairs", nil, "V2 pair addresses held by the wallet (comma-separated)")
	flags.String("position-manager", "", "V3 nonfungible position manager address")
	flags.String("factory", "", "V3 factory address")
	flags.StringSlice("position-ids", nil, "V3 position ids, empty enumerates the wallet's positions")
	flags.StringSlice("market-v2-pairs", nil, "V2 pairs used only for price derivation")
	flags.StringSlice("market-v3-pools", nil, "V3 pools used only for price derivation")
	flags.Int("concurrency", 8, "concurrent pool reads")
	flags.Duration("timeout", 2*time.Minute, "deadline for chain reads")
	flags.Int("max-retries", 5, "maximum retry attempts per call")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
