package pricing

import (
	"math"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"positionScope/internal/model"
)

var (
	anchorWETH = model.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000001"), Symbol: "WETH", Decimals: 18}
	tokenX     = model.Token{Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), Symbol: "XYZ", Decimals: 9}
	tokenY     = model.Token{Address: common.HexToAddress("0x3333333333333333333333333333333333333333"), Symbol: "YYY", Decimals: 9}
	anchorUSDC = model.Token{Address: common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), Symbol: "USDC", Decimals: 6}
)

func knownBook() model.PriceBook {
	return model.PriceBook{
		anchorUSDC.Address: {Token: anchorUSDC.Address, USDPrice: 1, Source: "reference"},
		anchorWETH.Address: {Token: anchorWETH.Address, USDPrice: 2000, Source: "reference"},
	}
}

func xUSDCPool(label string, usdcPerThousandX uint64) model.Pool {
	return model.Pool{
		Label:  label,
		Kind:   model.KindConstantProduct,
		Token0: tokenX,
		Token1: anchorUSDC,
		ConstantProduct: model.ConstantProductState{
			Reserve0:    model.NewAmount(1000 * 1_000_000_000),
			Reserve1:    model.NewAmount(usdcPerThousandX * 1_000_000),
			TotalShares: model.NewAmount(1),
		},
	}
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDerivePriceMedianTwoPools(t *testing.T) {
	pools := []model.Pool{xUSDCPool("pool-a", 1000), xUSDCPool("pool-b", 1020)}
	got, ok := DerivePrice(tokenX.Address, pools, knownBook())
	if !ok {
		t.Fatalf("expected derived price")
	}
	if !approx(got.USDPrice, 1.01, 1e-12) {
		t.Fatalf("price mismatch: %v", got.USDPrice)
	}
	if got.Confidence != model.ConfidenceMedium {
		t.Fatalf("confidence mismatch: %s", got.Confidence)
	}
	if !reflect.DeepEqual(got.ContributingPools, []string{"pool-a", "pool-b"}) {
		t.Fatalf("sources mismatch: %v", got.ContributingPools)
	}
}

func TestDerivePriceMedianThreePools(t *testing.T) {
	pools := []model.Pool{xUSDCPool("pool-a", 1000), xUSDCPool("pool-b", 1020), xUSDCPool("pool-c", 980)}
	got, ok := DerivePrice(tokenX.Address, pools, knownBook())
	if !ok {
		t.Fatalf("expected derived price")
	}
	if !approx(got.USDPrice, 1.00, 1e-12) {
		t.Fatalf("median mismatch: %v", got.USDPrice)
	}
	if got.Confidence != model.ConfidenceHigh {
		t.Fatalf("confidence mismatch: %s", got.Confidence)
	}
}

func TestDerivePriceSinglePoolLowConfidence(t *testing.T) {
	got, ok := DerivePrice(tokenX.Address, []model.Pool{xUSDCPool("pool-a", 1000)}, knownBook())
	if !ok || got.Confidence != model.ConfidenceLow {
		t.Fatalf("expected low confidence price: %+v %v", got, ok)
	}
}

func TestDerivePriceSkipsUnusablePools(t *testing.T) {
	degenerate := xUSDCPool("empty", 0)
	unrelated := model.Pool{
		Label:  "x-y",
		Kind:   model.KindConstantProduct,
		Token0: tokenX,
		Token1: tokenY,
		ConstantProduct: model.ConstantProductState{
			Reserve0:    model.NewAmount(10),
			Reserve1:    model.NewAmount(10),
			TotalShares: model.NewAmount(1),
		},
	}
	got, ok := DerivePrice(tokenX.Address, []model.Pool{degenerate, unrelated, xUSDCPool("pool-a", 1000)}, knownBook())
	if !ok {
		t.Fatalf("expected derived price")
	}
	if len(got.ContributingPools) != 1 || got.ContributingPools[0] != "pool-a" {
		t.Fatalf("only pool-a should contribute: %v", got.ContributingPools)
	}

	if _, ok := DerivePrice(tokenX.Address, []model.Pool{degenerate, unrelated}, knownBook()); ok {
		t.Fatalf("expected unavailable without a usable pool")
	}
}

func TestDerivePriceConcentrated(t *testing.T) {
	// 1.0001^76012 is about 2000 XYZ per WETH at equal decimals.
	x := tokenX
	x.Decimals = 18
	pool := model.Pool{
		Label:  "weth-xyz",
		Kind:   model.KindConcentrated,
		Token0: anchorWETH,
		Token1: x,
		Concentrated: model.ConcentratedState{
			FeeTier:     30,
			TickLower:   75000,
			TickUpper:   77000,
			CurrentTick: 76012,
			Liquidity:   model.NewAmount(1),
		},
	}
	got, ok := DerivePrice(x.Address, []model.Pool{pool}, knownBook())
	if !ok {
		t.Fatalf("expected derived price")
	}
	if !approx(got.USDPrice, 1, 1e-3) {
		t.Fatalf("price mismatch: %v", got.USDPrice)
	}

	// same pool, token0 side priced from token1
	book := model.PriceBook{x.Address: {Token: x.Address, USDPrice: 1}}
	weth, ok := DerivePrice(anchorWETH.Address, []model.Pool{pool}, book)
	if !ok || !approx(weth.USDPrice, 2000, 2) {
		t.Fatalf("token0 price mismatch: %+v %v", weth, ok)
	}
}

func TestDerivePriceConcentratedDecimals(t *testing.T) {
	// 1.0001^-69081 * 10^(9-6) is about 1 USDC per XYZ.
	pool := model.Pool{
		Label:  "xyz-usdc",
		Kind:   model.KindConcentrated,
		Token0: tokenX,
		Token1: anchorUSDC,
		Concentrated: model.ConcentratedState{
			FeeTier:     5,
			TickLower:   -70000,
			TickUpper:   -68000,
			CurrentTick: -69081,
			Liquidity:   model.NewAmount(1),
		},
	}
	got, ok := DerivePrice(tokenX.Address, []model.Pool{pool}, knownBook())
	if !ok || !approx(got.USDPrice, 1, 1e-3) {
		t.Fatalf("price mismatch: %+v %v", got, ok)
	}
}

func TestDeriveAllPricesSkipsKnown(t *testing.T) {
	pools := []model.Pool{xUSDCPool("pool-a", 1000), xUSDCPool("pool-b", 1020)}
	derived := DeriveAllPrices(pools, knownBook())
	if _, ok := derived[anchorUSDC.Address]; ok {
		t.Fatalf("known token must not be derived")
	}
	if _, ok := derived[tokenX.Address]; !ok {
		t.Fatalf("expected derived price for XYZ")
	}
	if len(derived) != 1 {
		t.Fatalf("unexpected derived set: %v", derived)
	}
}

func TestDeriveAllPricesSingleHop(t *testing.T) {
	xy := model.Pool{
		Label:  "x-y",
		Kind:   model.KindConstantProduct,
		Token0: tokenX,
		Token1: tokenY,
		ConstantProduct: model.ConstantProductState{
			Reserve0:    model.NewAmount(10),
			Reserve1:    model.NewAmount(10),
			TotalShares: model.NewAmount(1),
		},
	}
	derived := DeriveAllPrices([]model.Pool{xUSDCPool("pool-a", 1000), xy}, knownBook())
	if _, ok := derived[tokenY.Address]; ok {
		t.Fatalf("YYY is two hops from an anchor and must stay unpriced")
	}
}

func TestDeriveAllPricesOrderIndependent(t *testing.T) {
	pools := []model.Pool{xUSDCPool("pool-a", 1000), xUSDCPool("pool-b", 1020), xUSDCPool("pool-c", 980)}
	reversed := []model.Pool{pools[2], pools[1], pools[0]}

	first := DeriveAllPrices(pools, knownBook())
	second := DeriveAllPrices(reversed, knownBook())
	if first[tokenX.Address].USDPrice != second[tokenX.Address].USDPrice {
		t.Fatalf("order changed the price: %v != %v", first[tokenX.Address].USDPrice, second[tokenX.Address].USDPrice)
	}
}

func TestResolvePrice(t *testing.T) {
	derived := map[common.Address]model.DerivedPrice{
		anchorUSDC.Address: {Token: anchorUSDC.Address, USDPrice: 0.5},
		tokenX.Address:     {Token: tokenX.Address, USDPrice: 1.5},
	}
	if price, ok := ResolvePrice(anchorUSDC.Address, knownBook(), derived); !ok || price != 1 {
		t.Fatalf("known price should win: %v %v", price, ok)
	}
	if price, ok := ResolvePrice(tokenX.Address, knownBook(), derived); !ok || price != 1.5 {
		t.Fatalf("derived price fallback: %v %v", price, ok)
	}
	if _, ok := ResolvePrice(tokenY.Address, knownBook(), derived); ok {
		t.Fatalf("expected unavailable")
	}
}

func TestMedian(t *testing.T) {
	cases := []struct {
		in   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{3}, 3},
		{[]float64{1.02, 0.98, 1.00}, 1.00},
		{[]float64{4, 1, 3, 2}, 2.5},
	}
	for _, tc := range cases {
		if got := Median(tc.in); got != tc.want {
			t.Fatalf("median(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
