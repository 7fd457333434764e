package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"positionScope/internal/chain"
	"positionScope/internal/config"
	"positionScope/internal/dex"
	"positionScope/internal/model"
	"positionScope/internal/registry"
	"positionScope/internal/storage"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	snapshot, err := readChainSnapshot(ctx, cfg.Chain, logger)
	if err != nil {
		return err
	}

	if err := storage.WriteSnapshot(cfg.Out, snapshot); err != nil {
		return err
	}

	logger.Info("snapshot written",
		zap.String("out", cfg.Out),
		zap.Uint64("block", snapshot.BlockNumber),
		zap.Int("positions", len(snapshot.Positions)),
		zap.Int("market_pools", len(snapshot.MarketPools)),
		zap.Int("reference_prices", len(snapshot.ReferencePrices)),
	)
	return nil
}

// readChainSnapshot reads a complete snapshot, including configured reference
// prices, within the configured timeout.
func readChainSnapshot(ctx context.Context, cfg config.ChainConfig, logger *zap.Logger) (model.Snapshot, error) {
	if cfg.RPCURL == "" {
		return model.Snapshot{}, fmt.Errorf("rpc url is required")
	}
	req, err := snapshotRequest(cfg)
	if err != nil {
		return model.Snapshot{}, err
	}
	if req.Wallet == (common.Address{}) {
		return model.Snapshot{}, fmt.Errorf("wallet is required")
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, logger.Named("chain"))
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	reg, err := registry.New(cfg.Tokens, chainClient, logger.Named("registry"))
	if err != nil {
		return model.Snapshot{}, err
	}
	references, err := registry.ReferencePrices(cfg.Anchors, cfg.Pegs, reg)
	if err != nil {
		return model.Snapshot{}, err
	}

	logger.Info("snapshot start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("wallet", req.Wallet.Hex()),
		zap.Int("v2_pairs", len(req.V2Pairs)),
		zap.Int("position_ids", len(req.PositionIDs)),
		zap.Int("market_pools", len(req.MarketV2Pairs)+len(req.MarketV3Pools)),
		zap.Int("concurrency", cfg.Concurrency),
	)

	reader := dex.NewReader(dex.ReaderConfig{
		Concurrency:  cfg.Concurrency,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, reg, logger.Named("dex"))

	snapshot, err := reader.Snapshot(ctx, req)
	if err != nil {
		return model.Snapshot{}, err
	}
	if cfg.ChainID != 0 && cfg.ChainID != snapshot.ChainID {
		return model.Snapshot{}, fmt.Errorf("rpc chain id %d does not match configured %d", snapshot.ChainID, cfg.ChainID)
	}

	snapshot.ReferencePrices = sortedQuotes(references)
	return snapshot, nil
}

func snapshotRequest(cfg config.ChainConfig) (dex.SnapshotRequest, error) {
	wallet, err := config.ParseAddress(cfg.Wallet)
	if err != nil {
		return dex.SnapshotRequest{}, fmt.Errorf("wallet: %w", err)
	}
	manager, err := config.ParseAddress(cfg.PositionManager)
	if err != nil {
		return dex.SnapshotRequest{}, fmt.Errorf("position-manager: %w", err)
	}
	factory, err := config.ParseAddress(cfg.Factory)
	if err != nil {
		return dex.SnapshotRequest{}, fmt.Errorf("factory: %w", err)
	}
	v2Pairs, err := config.ParseAddresses(cfg.V2Pairs)
	if err != nil {
		return dex.SnapshotRequest{}, fmt.Errorf("v2-pairs: %w", err)
	}
	marketV2, err := config.ParseAddresses(cfg.MarketV2Pairs)
	if err != nil {
		return dex.SnapshotRequest{}, fmt.Errorf("market-v2-pairs: %w", err)
	}
	marketV3, err := config.ParseAddresses(cfg.MarketV3Pools)
	if err != nil {
		return dex.SnapshotRequest{}, fmt.Errorf("market-v3-pools: %w", err)
	}

	labels := make(map[common.Address]string, len(cfg.Labels))
	for key, label := range cfg.Labels {
		addr, err := config.ParseAddress(key)
		if err != nil {
			return dex.SnapshotRequest{}, fmt.Errorf("labels: %w", err)
		}
		labels[addr] = label
	}

	return dex.SnapshotRequest{
		Wallet:          wallet,
		V2Pairs:         v2Pairs,
		PositionManager: manager,
		Factory:         factory,
		PositionIDs:     cfg.PositionIDs,
		MarketV2Pairs:   marketV2,
		MarketV3Pools:   marketV3,
		Labels:          labels,
	}, nil
}

func sortedQuotes(book model.PriceBook) []model.PriceQuote {
	quotes := lo.Values(book)
	sort.Slice(quotes, func(i, j int) bool {
		return model.TokenLess(quotes[i].Token, quotes[j].Token)
	})
	return quotes
}
