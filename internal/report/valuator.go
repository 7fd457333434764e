// Package report runs one valuation pass over a snapshot: price derivation,
// position valuation, yield estimation and arbitrage detection.
package report

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"positionScope/internal/arbitrage"
	"positionScope/internal/model"
	"positionScope/internal/pricing"
	"positionScope/internal/valuation"
	"positionScope/internal/yield"
)

// Config controls a Valuator.
type Config struct {
	ThresholdPercent float64
	Calibration      yield.Calibration
	// Now stamps reports; defaults to time.Now.
	Now func() time.Time
}

// Valuator turns snapshots into reports. It holds no state between calls.
type Valuator struct {
	cfg       Config
	estimator *yield.Estimator
	logger    *zap.Logger
}

// NewValuator builds a Valuator.
func NewValuator(cfg Config, logger *zap.Logger) *Valuator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Valuator{
		cfg:       cfg,
		estimator: yield.NewEstimator(cfg.Calibration, logger.Named("yield")),
		logger:    logger,
	}
}

// Evaluate values every position in the snapshot.
func (v *Valuator) Evaluate(snapshot model.Snapshot) model.Report {
	known := snapshot.References()
	derived := pricing.DeriveAllPrices(snapshot.Pools(), known)
	prices := known.Merge(derived)
	estimator := v.estimatorFor(known)

	report := model.Report{
		ChainID:       snapshot.ChainID,
		BlockNumber:   snapshot.BlockNumber,
		Wallet:        snapshot.Wallet,
		GeneratedAt:   v.cfg.Now().UTC().Format(time.RFC3339),
		Positions:     make([]model.PositionReport, 0, len(snapshot.Positions)),
		DerivedPrices: make([]model.DerivedPrice, 0, len(derived)),
	}

	for _, token := range pricing.SortedTokens(derived) {
		report.DerivedPrices = append(report.DerivedPrices, derived[token])
	}

	for _, position := range snapshot.Positions {
		report.Positions = append(report.Positions, v.evaluatePosition(position, estimator, known, derived, prices))
	}

	report.TotalUSD = lo.SumBy(report.Positions, func(p model.PositionReport) float64 {
		return p.ValueUSD + p.FeesUSD
	})

	v.logger.Info("valuation complete",
		zap.String("wallet", snapshot.Wallet.Hex()),
		zap.Int("positions", len(report.Positions)),
		zap.Int("derived_prices", len(report.DerivedPrices)),
		zap.Float64("total_usd", report.TotalUSD),
	)

	return report
}

func (v *Valuator) evaluatePosition(position model.Position, estimator *yield.Estimator, known model.PriceBook, derived map[common.Address]model.DerivedPrice, prices model.PriceBook) model.PositionReport {
	pool := position.Pool
	out := model.PositionReport{
		Pool:          pool.Source(),
		PoolAddress:   pool.Address,
		Kind:          pool.Kind,
		TokenID:       position.TokenID,
		InRange:       pool.InRange(),
		Yield:         model.UnavailableYield(),
		Opportunities: []model.ArbitrageOpportunity{},
	}

	amounts, ok := valuation.AmountsForPosition(position)
	if !ok {
		v.logger.Debug("position amounts unavailable", zap.String("pool", out.Pool))
		return out
	}
	out.Amount0 = amounts.Amount0
	out.Amount1 = amounts.Amount1

	price0, ok0 := pricing.ResolvePrice(pool.Token0.Address, known, derived)
	price1, ok1 := pricing.ResolvePrice(pool.Token1.Address, known, derived)
	if ok0 && ok1 {
		fees := valuation.UncollectedFees(pool)
		out.Priced = true
		out.ValueUSD = amounts.Amount0*price0 + amounts.Amount1*price1
		out.FeesUSD = fees.Amount0*price0 + fees.Amount1*price1
		out.Yield = estimator.EstimateAPY(position, prices)
	} else {
		v.logger.Debug("position unpriced",
			zap.String("pool", out.Pool),
			zap.Bool("token0_priced", ok0),
			zap.Bool("token1_priced", ok1),
		)
	}

	if opportunities := arbitrage.DetectOpportunities(position, known, v.cfg.ThresholdPercent); len(opportunities) > 0 {
		out.Opportunities = opportunities
	}
	return out
}

// estimatorFor returns the configured estimator, or one whose anchor tokens are
// the snapshot's reference-priced tokens when no anchors were configured.
func (v *Valuator) estimatorFor(known model.PriceBook) *yield.Estimator {
	if len(v.cfg.Calibration.AnchorTokens) > 0 || len(known) == 0 {
		return v.estimator
	}
	anchors := lo.Keys(known)
	sort.Slice(anchors, func(i, j int) bool {
		return model.TokenLess(anchors[i], anchors[j])
	})
	cal := v.cfg.Calibration
	cal.AnchorTokens = anchors
	return yield.NewEstimator(cal, v.logger.Named("yield"))
}
