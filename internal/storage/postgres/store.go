package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS position_valuations (
	chain_id BIGINT NOT NULL,
	wallet TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	token_id BIGINT NOT NULL,
	pool_label TEXT NOT NULL,
	kind TEXT NOT NULL,
	amount0 NUMERIC NOT NULL,
	amount1 NUMERIC NOT NULL,
	value_usd NUMERIC NOT NULL,
	fees_usd NUMERIC NOT NULL,
	in_range BOOLEAN NOT NULL,
	priced BOOLEAN NOT NULL,
	apy NUMERIC NOT NULL,
	yield_method TEXT NOT NULL,
	yield_confidence TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, wallet, block_number, pool_address, token_id)
);
CREATE TABLE IF NOT EXISTS derived_prices (
	chain_id BIGINT NOT NULL,
	block_number BIGINT NOT NULL,
	token TEXT NOT NULL,
	usd_price NUMERIC NOT NULL,
	confidence TEXT NOT NULL,
	pool_count INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, block_number, token)
);
CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	chain_id BIGINT NOT NULL,
	block_number BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	token TEXT NOT NULL,
	dex_price NUMERIC NOT NULL,
	reference_price NUMERIC NOT NULL,
	deviation_percent NUMERIC NOT NULL,
	classification TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, block_number, pool_address, token)
);
`

// Store provides Postgres persistence for valuation reports.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the report tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// PutReports saves each report in its own batch.
func (s *Store) PutReports(ctx context.Context, reports []model.Report) error {
	for _, report := range reports {
		if err := s.SaveReport(ctx, report); err != nil {
			return fmt.Errorf("save report block %d: %w", report.BlockNumber, err)
		}
	}
	return nil
}

// SaveReport upserts position valuations, derived prices and opportunities of one report.
func (s *Store) SaveReport(ctx context.Context, report model.Report) error {
	batch := buildReportBatch(report)
	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func buildReportBatch(report model.Report) *pgx.Batch {
	batch := &pgx.Batch{}
	chainID := int64(report.ChainID)
	block := int64(report.BlockNumber)

	for _, p := range report.Positions {
		batch.Queue(`
			INSERT INTO position_valuations (
				chain_id, wallet, block_number, pool_address, token_id, pool_label, kind,
				amount0, amount1, value_usd, fees_usd, in_range, priced,
				apy, yield_method, yield_confidence, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
			ON CONFLICT (chain_id, wallet, block_number, pool_address, token_id)
			DO UPDATE SET
				pool_label = EXCLUDED.pool_label,
				kind = EXCLUDED.kind,
				amount0 = EXCLUDED.amount0,
				amount1 = EXCLUDED.amount1,
				value_usd = EXCLUDED.value_usd,
				fees_usd = EXCLUDED.fees_usd,
				in_range = EXCLUDED.in_range,
				priced = EXCLUDED.priced,
				apy = EXCLUDED.apy,
				yield_method = EXCLUDED.yield_method,
				yield_confidence = EXCLUDED.yield_confidence,
				updated_at = now()
		`,
			chainID,
			report.Wallet.Hex(),
			block,
			p.PoolAddress.Hex(),
			int64(p.TokenID),
			p.Pool,
			string(p.Kind),
			toDecimal(p.Amount0),
			toDecimal(p.Amount1),
			toDecimal(p.ValueUSD),
			toDecimal(p.FeesUSD),
			p.InRange,
			p.Priced,
			toDecimal(p.Yield.APY),
			p.Yield.Method,
			string(p.Yield.Confidence),
		)

		for _, o := range p.Opportunities {
			batch.Queue(`
				INSERT INTO arbitrage_opportunities (
					chain_id, block_number, pool_address, token, dex_price, reference_price,
					deviation_percent, classification, source, created_at, updated_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
				ON CONFLICT (chain_id, block_number, pool_address, token)
				DO UPDATE SET
					dex_price = EXCLUDED.dex_price,
					reference_price = EXCLUDED.reference_price,
					deviation_percent = EXCLUDED.deviation_percent,
					classification = EXCLUDED.classification,
					source = EXCLUDED.source,
					updated_at = now()
			`,
				chainID,
				block,
				p.PoolAddress.Hex(),
				o.Token.Hex(),
				toDecimal(o.DexPrice),
				toDecimal(o.ReferencePrice),
				toDecimal(o.DeviationPercent),
				string(o.Classification),
				o.Source,
			)
		}
	}

	for _, d := range report.DerivedPrices {
		batch.Queue(`
			INSERT INTO derived_prices (
				chain_id, block_number, token, usd_price, confidence, pool_count, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,now(),now())
			ON CONFLICT (chain_id, block_number, token)
			DO UPDATE SET
				usd_price = EXCLUDED.usd_price,
				confidence = EXCLUDED.confidence,
				pool_count = EXCLUDED.pool_count,
				updated_at = now()
		`,
			chainID,
			block,
			d.Token.Hex(),
			toDecimal(d.USDPrice),
			string(d.Confidence),
			len(d.ContributingPools),
		)
	}

	return batch
}

// toDecimal keeps float noise out of NUMERIC columns.
func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(12)
}
