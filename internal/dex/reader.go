package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"positionScope/internal/model"
	"positionScope/internal/tickmath"
)

// Chain is the subset of the RPC client the reader needs.
type Chain interface {
	Caller
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// TokenResolver returns metadata for a token address.
type TokenResolver interface {
	Resolve(ctx context.Context, address common.Address) (model.Token, error)
}

// ReaderConfig controls snapshot reads.
type ReaderConfig struct {
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
}

// SnapshotRequest lists the on-chain state to read for a wallet.
type SnapshotRequest struct {
	Wallet          common.Address
	V2Pairs         []common.Address
	PositionManager common.Address
	Factory         common.Address
	// PositionIDs restricts V3 reads; when empty every position the wallet owns is read.
	PositionIDs   []uint64
	MarketV2Pairs []common.Address
	MarketV3Pools []common.Address
	Labels        map[common.Address]string
}

// Reader loads pool and position state into snapshots.
type Reader struct {
	cfg    ReaderConfig
	chain  Chain
	tokens TokenResolver
	logger *zap.Logger
}

// NewReader builds a Reader.
func NewReader(cfg ReaderConfig, chain Chain, tokens TokenResolver, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Reader{cfg: cfg, chain: chain, tokens: tokens, logger: logger}
}

// Snapshot reads every requested pool at a single block height. All reads finish
// before it returns so price derivation sees the complete pool set.
func (r *Reader) Snapshot(ctx context.Context, req SnapshotRequest) (model.Snapshot, error) {
	if r.chain == nil {
		return model.Snapshot{}, fmt.Errorf("chain client is nil")
	}
	if r.tokens == nil {
		return model.Snapshot{}, fmt.Errorf("token resolver is nil")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return model.Snapshot{}, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	latest, err := r.chain.LatestBlockNumber(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("get latest block: %w", err)
	}
	block := new(big.Int).SetUint64(latest)
	blockTime, err := r.chain.BlockTimestamp(ctx, latest)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("get block timestamp: %w", err)
	}

	positionIDs := req.PositionIDs
	if len(positionIDs) == 0 && req.PositionManager != (common.Address{}) && req.Wallet != (common.Address{}) {
		positionIDs, err = r.ownedPositionIDs(ctx, req.PositionManager, req.Wallet, block)
		if err != nil {
			return model.Snapshot{}, err
		}
	}
	if len(positionIDs) > 0 && (req.PositionManager == (common.Address{}) || req.Factory == (common.Address{})) {
		return model.Snapshot{}, fmt.Errorf("position manager and factory are required for v3 positions")
	}

	v2Positions := make([]*model.Position, len(req.V2Pairs))
	idleV2 := make([]*model.Pool, len(req.V2Pairs))
	v3Positions := make([]*model.Position, len(positionIDs))
	marketV2 := make([]*model.Pool, len(req.MarketV2Pairs))
	marketV3 := make([]*model.Pool, len(req.MarketV3Pools))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, pair := range req.V2Pairs {
		i, pair := i, pair
		g.Go(func() error {
			pool, shares, err := r.readV2Holding(gctx, pair, req.Wallet, block)
			if err != nil {
				return fmt.Errorf("v2 pair %s: %w", pair.Hex(), err)
			}
			if shares.IsZero() {
				r.logger.Debug("no shares in pair, kept for pricing", zap.String("pair", pair.Hex()))
				idleV2[i] = &pool
				return nil
			}
			v2Positions[i] = &model.Position{Owner: req.Wallet, Shares: shares, Pool: pool}
			return nil
		})
	}
	for i, id := range positionIDs {
		i, id := i, id
		g.Go(func() error {
			position, err := r.readV3Position(gctx, req.PositionManager, req.Factory, req.Wallet, id, block)
			if err != nil {
				return fmt.Errorf("v3 position %d: %w", id, err)
			}
			v3Positions[i] = position
			return nil
		})
	}
	for i, pair := range req.MarketV2Pairs {
		i, pair := i, pair
		g.Go(func() error {
			pool, err := r.readV2Pool(gctx, pair, block)
			if err != nil {
				return fmt.Errorf("market pair %s: %w", pair.Hex(), err)
			}
			marketV2[i] = &pool
			return nil
		})
	}
	for i, addr := range req.MarketV3Pools {
		i, addr := i, addr
		g.Go(func() error {
			pool, err := r.readV3MarketPool(gctx, addr, block)
			if err != nil {
				return fmt.Errorf("market pool %s: %w", addr.Hex(), err)
			}
			marketV3[i] = &pool
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.Snapshot{}, err
	}

	snapshot := model.Snapshot{
		ChainID:     chainID.Uint64(),
		BlockNumber: latest,
		Wallet:      req.Wallet,
		TakenAt:     time.Unix(int64(blockTime), 0).UTC().Format(time.RFC3339),
	}
	for _, position := range append(v2Positions, v3Positions...) {
		if position == nil {
			continue
		}
		position.Pool.Label = labelFor(req.Labels, position.Pool)
		snapshot.Positions = append(snapshot.Positions, *position)
	}
	for _, pool := range append(append(idleV2, marketV2...), marketV3...) {
		if pool == nil {
			continue
		}
		pool.Label = labelFor(req.Labels, *pool)
		snapshot.MarketPools = append(snapshot.MarketPools, *pool)
	}

	if err := snapshot.Validate(); err != nil {
		return model.Snapshot{}, err
	}

	r.logger.Info("snapshot read",
		zap.Uint64("chain_id", snapshot.ChainID),
		zap.Uint64("block", snapshot.BlockNumber),
		zap.Int("positions", len(snapshot.Positions)),
		zap.Int("market_pools", len(snapshot.MarketPools)),
	)
	return snapshot, nil
}

func (r *Reader) ownedPositionIDs(ctx context.Context, manager, owner common.Address, block *big.Int) ([]uint64, error) {
	managerABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}
	values, err := r.call(ctx, manager, managerABI, block, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	count, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}

	ids := make([]uint64, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		values, err := r.call(ctx, manager, managerABI, block, "tokenOfOwnerByIndex", owner, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		id, err := asBigInt(values[0])
		if err != nil || !id.IsUint64() {
			return nil, fmt.Errorf("tokenOfOwnerByIndex %d: invalid id", i)
		}
		ids = append(ids, id.Uint64())
	}
	r.logger.Debug("owned positions", zap.String("owner", owner.Hex()), zap.Int("count", len(ids)))
	return ids, nil
}

// readV2Holding reads a pair and the wallet's share balance in it. The pool is
// returned even when the balance is zero so it can still serve as a price source.
func (r *Reader) readV2Holding(ctx context.Context, pair, wallet common.Address, block *big.Int) (model.Pool, model.Amount, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return model.Pool{}, model.Amount{}, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := r.call(ctx, pair, pairABI, block, "balanceOf", wallet)
	if err != nil {
		return model.Pool{}, model.Amount{}, err
	}
	shares, err := asAmount(values[0])
	if err != nil {
		return model.Pool{}, model.Amount{}, fmt.Errorf("balanceOf: %w", err)
	}

	pool, err := r.readV2Pool(ctx, pair, block)
	if err != nil {
		return model.Pool{}, model.Amount{}, err
	}
	return pool, shares, nil
}

func (r *Reader) readV2Pool(ctx context.Context, pair common.Address, block *big.Int) (model.Pool, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return model.Pool{}, fmt.Errorf("parse pair abi: %w", err)
	}

	token0, token1, err := r.readTokens(ctx, pair, pairABI, block)
	if err != nil {
		return model.Pool{}, err
	}

	values, err := r.call(ctx, pair, pairABI, block, "getReserves")
	if err != nil {
		return model.Pool{}, err
	}
	if len(values) < 2 {
		return model.Pool{}, fmt.Errorf("getReserves returned %d values", len(values))
	}
	reserve0, err := asAmount(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asAmount(values[1])
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve1: %w", err)
	}

	values, err = r.call(ctx, pair, pairABI, block, "totalSupply")
	if err != nil {
		return model.Pool{}, err
	}
	totalShares, err := asAmount(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("totalSupply: %w", err)
	}

	return model.Pool{
		Address: pair,
		Kind:    model.KindConstantProduct,
		Token0:  token0,
		Token1:  token1,
		ConstantProduct: model.ConstantProductState{
			Reserve0:    reserve0,
			Reserve1:    reserve1,
			TotalShares: totalShares,
		},
	}, nil
}

func (r *Reader) readV3Position(ctx context.Context, manager, factory, wallet common.Address, id uint64, block *big.Int) (*model.Position, error) {
	managerABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}
	values, err := r.call(ctx, manager, managerABI, block, "positions", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	if len(values) != 12 {
		return nil, fmt.Errorf("positions returned %d values", len(values))
	}

	addr0, err := asAddress(values[2])
	if err != nil {
		return nil, fmt.Errorf("token0: %w", err)
	}
	addr1, err := asAddress(values[3])
	if err != nil {
		return nil, fmt.Errorf("token1: %w", err)
	}
	fee, err := asBigInt(values[4])
	if err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}
	tickLower, err := asInt24(values[5])
	if err != nil {
		return nil, fmt.Errorf("tick lower: %w", err)
	}
	tickUpper, err := asInt24(values[6])
	if err != nil {
		return nil, fmt.Errorf("tick upper: %w", err)
	}
	liquidity, err := asAmount(values[7])
	if err != nil {
		return nil, fmt.Errorf("liquidity: %w", err)
	}
	owed0, err := asAmount(values[10])
	if err != nil {
		return nil, fmt.Errorf("tokens owed0: %w", err)
	}
	owed1, err := asAmount(values[11])
	if err != nil {
		return nil, fmt.Errorf("tokens owed1: %w", err)
	}
	if liquidity.IsZero() && owed0.IsZero() && owed1.IsZero() {
		r.logger.Debug("empty position", zap.Uint64("token_id", id))
		return nil, nil
	}

	feeTier, err := feeTierBps(fee)
	if err != nil {
		return nil, err
	}

	factoryABI, err := V3FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err = r.call(ctx, factory, factoryABI, block, "getPool", addr0, addr1, fee)
	if err != nil {
		return nil, err
	}
	poolAddr, err := asAddress(values[0])
	if err != nil {
		return nil, fmt.Errorf("getPool: %w", err)
	}
	if poolAddr == (common.Address{}) {
		return nil, fmt.Errorf("no pool for %s/%s fee %s", addr0.Hex(), addr1.Hex(), fee)
	}

	currentTick, err := r.readTick(ctx, poolAddr, block)
	if err != nil {
		return nil, err
	}

	token0, err := r.tokens.Resolve(ctx, addr0)
	if err != nil {
		return nil, fmt.Errorf("token0 metadata: %w", err)
	}
	token1, err := r.tokens.Resolve(ctx, addr1)
	if err != nil {
		return nil, fmt.Errorf("token1 metadata: %w", err)
	}

	return &model.Position{
		Owner:   wallet,
		TokenID: id,
		Pool: model.Pool{
			Address: poolAddr,
			Kind:    model.KindConcentrated,
			Token0:  token0,
			Token1:  token1,
			Concentrated: model.ConcentratedState{
				FeeTier:          feeTier,
				TickLower:        tickLower,
				TickUpper:        tickUpper,
				CurrentTick:      currentTick,
				Liquidity:        liquidity,
				UncollectedFees0: owed0,
				UncollectedFees1: owed1,
			},
		},
	}, nil
}

// readV3MarketPool models a whole pool as a full-range position holding the
// pool's active liquidity; only its current tick matters for pricing.
func (r *Reader) readV3MarketPool(ctx context.Context, addr common.Address, block *big.Int) (model.Pool, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.Pool{}, fmt.Errorf("parse pool abi: %w", err)
	}

	token0, token1, err := r.readTokens(ctx, addr, poolABI, block)
	if err != nil {
		return model.Pool{}, err
	}

	values, err := r.call(ctx, addr, poolABI, block, "fee")
	if err != nil {
		return model.Pool{}, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("fee: %w", err)
	}
	feeTier, err := feeTierBps(fee)
	if err != nil {
		return model.Pool{}, err
	}

	values, err = r.call(ctx, addr, poolABI, block, "liquidity")
	if err != nil {
		return model.Pool{}, err
	}
	liquidity, err := asAmount(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("liquidity: %w", err)
	}

	currentTick, err := r.readTick(ctx, addr, block)
	if err != nil {
		return model.Pool{}, err
	}

	return model.Pool{
		Address: addr,
		Kind:    model.KindConcentrated,
		Token0:  token0,
		Token1:  token1,
		Concentrated: model.ConcentratedState{
			FeeTier:     feeTier,
			TickLower:   tickmath.MinTick,
			TickUpper:   tickmath.MaxTick,
			CurrentTick: currentTick,
			Liquidity:   liquidity,
		},
	}, nil
}

func (r *Reader) readTokens(ctx context.Context, pool common.Address, parsed abi.ABI, block *big.Int) (model.Token, model.Token, error) {
	var tokens [2]model.Token
	for i, method := range []string{"token0", "token1"} {
		values, err := r.call(ctx, pool, parsed, block, method)
		if err != nil {
			return model.Token{}, model.Token{}, err
		}
		addr, err := asAddress(values[0])
		if err != nil {
			return model.Token{}, model.Token{}, fmt.Errorf("%s: %w", method, err)
		}
		tokens[i], err = r.tokens.Resolve(ctx, addr)
		if err != nil {
			return model.Token{}, model.Token{}, fmt.Errorf("%s metadata: %w", method, err)
		}
	}
	return tokens[0], tokens[1], nil
}

func (r *Reader) readTick(ctx context.Context, pool common.Address, block *big.Int) (int32, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return 0, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := r.call(ctx, pool, poolABI, block, "slot0")
	if err != nil {
		return 0, err
	}
	if len(values) < 2 {
		return 0, fmt.Errorf("slot0 returned %d values", len(values))
	}
	tick, err := asInt24(values[1])
	if err != nil {
		return 0, fmt.Errorf("slot0 tick: %w", err)
	}
	return tick, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	var values []interface{}
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.logger, func(ctx context.Context) error {
		var err error
		values, err = callMethod(ctx, r.chain, to, parsed, block, method, args...)
		if err != nil {
			r.logger.Warn("contract call failed", zap.String("to", to.Hex()), zap.String("method", method), zap.Error(err))
		}
		return err
	})
	return values, err
}

// feeTierBps converts a pool fee in hundredths of a basis point to basis points.
func feeTierBps(fee *big.Int) (uint32, error) {
	if fee == nil || !fee.IsUint64() || fee.Uint64()%100 != 0 {
		return 0, fmt.Errorf("unsupported pool fee %v", fee)
	}
	return uint32(fee.Uint64() / 100), nil
}

func labelFor(labels map[common.Address]string, pool model.Pool) string {
	if label, ok := labels[pool.Address]; ok && label != "" {
		return label
	}
	return pool.Source()
}
