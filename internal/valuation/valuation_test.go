package valuation

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"positionScope/internal/model"
)

var (
	tokenA = model.Token{Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), Symbol: "AAA"}
	tokenB = model.Token{Address: common.HexToAddress("0x2222222222222222222222222222222222222222"), Symbol: "BBB"}
)

func constantProductPosition(reserve0, reserve1, total, shares uint64) model.Position {
	return model.Position{
		Shares: model.NewAmount(shares),
		Pool: model.Pool{
			Kind:   model.KindConstantProduct,
			Token0: tokenA,
			Token1: tokenB,
			ConstantProduct: model.ConstantProductState{
				Reserve0:    model.NewAmount(reserve0),
				Reserve1:    model.NewAmount(reserve1),
				TotalShares: model.NewAmount(total),
			},
		},
	}
}

func concentratedPosition(lower, upper, current int32, liquidity uint64) model.Position {
	return model.Position{
		Pool: model.Pool{
			Kind:   model.KindConcentrated,
			Token0: tokenA,
			Token1: tokenB,
			Concentrated: model.ConcentratedState{
				FeeTier:     30,
				TickLower:   lower,
				TickUpper:   upper,
				CurrentTick: current,
				Liquidity:   model.NewAmount(liquidity),
			},
		},
	}
}

func TestConstantProductShare(t *testing.T) {
	got, ok := AmountsForPosition(constantProductPosition(1000, 50, 100, 10))
	if !ok {
		t.Fatalf("expected amounts")
	}
	if got.Amount0 != 100 || got.Amount1 != 5 {
		t.Fatalf("amounts mismatch: %+v", got)
	}
}

func TestConstantProductDecimals(t *testing.T) {
	position := constantProductPosition(2_000_000_000_000_000_000, 4_000_000, 100, 50)
	position.Pool.Token0.Decimals = 18
	position.Pool.Token1.Decimals = 6

	got, ok := AmountsForPosition(position)
	if !ok {
		t.Fatalf("expected amounts")
	}
	if got.Amount0 != 1 || got.Amount1 != 2 {
		t.Fatalf("amounts mismatch: %+v", got)
	}
}

func TestConstantProductUnavailable(t *testing.T) {
	if _, ok := AmountsForPosition(constantProductPosition(1000, 50, 0, 10)); ok {
		t.Fatalf("zero total shares should be unavailable")
	}
	if _, ok := AmountsForPosition(constantProductPosition(1000, 0, 100, 10)); ok {
		t.Fatalf("degenerate pool should be unavailable")
	}
}

func TestConcentratedInRange(t *testing.T) {
	got, ok := AmountsForPosition(concentratedPosition(-100, 100, 0, 1_000_000))
	if !ok {
		t.Fatalf("expected amounts")
	}
	if got.Amount0 <= 0 || got.Amount1 <= 0 {
		t.Fatalf("in range amounts should both be positive: %+v", got)
	}
	// symmetric range around tick 0
	if math.Abs(got.Amount0-got.Amount1)/got.Amount0 > 0.01 {
		t.Fatalf("expected near-equal amounts: %+v", got)
	}
}

func TestConcentratedAboveRange(t *testing.T) {
	got, _ := AmountsForPosition(concentratedPosition(-100, 100, 200, 1_000_000))
	if got.Amount1 != 0 || got.Amount0 <= 0 {
		t.Fatalf("above range amounts mismatch: %+v", got)
	}
}

func TestConcentratedBelowRange(t *testing.T) {
	got, _ := AmountsForPosition(concentratedPosition(-100, 100, -200, 1_000_000))
	if got.Amount0 != 0 || got.Amount1 <= 0 {
		t.Fatalf("below range amounts mismatch: %+v", got)
	}
}

func TestConcentratedZeroLiquidity(t *testing.T) {
	got, ok := AmountsForPosition(concentratedPosition(-100, 100, 0, 0))
	if !ok || got != (Amounts{}) {
		t.Fatalf("zero liquidity should value to zero: %+v %v", got, ok)
	}
}

func TestConcentratedPlaceholderTick(t *testing.T) {
	got, ok := AmountsForPosition(concentratedPosition(200000, 201000, 0, 1_000_000))
	if !ok || got != (Amounts{}) {
		t.Fatalf("placeholder tick should value to zero: %+v %v", got, ok)
	}
}

func TestAmountsIdempotent(t *testing.T) {
	position := concentratedPosition(-887272, 887272, 12345, 987654321)
	first, _ := AmountsForPosition(position)
	second, _ := AmountsForPosition(position)
	if first != second {
		t.Fatalf("repeated calls differ: %+v != %+v", first, second)
	}
}

func TestUncollectedFees(t *testing.T) {
	position := concentratedPosition(-100, 100, 0, 1)
	position.Pool.Token0.Decimals = 3
	position.Pool.Concentrated.UncollectedFees0 = model.NewAmount(2500)
	position.Pool.Concentrated.UncollectedFees1 = model.NewAmount(7)

	got := UncollectedFees(position.Pool)
	if got.Amount0 != 2.5 || got.Amount1 != 7 {
		t.Fatalf("fees mismatch: %+v", got)
	}
}
