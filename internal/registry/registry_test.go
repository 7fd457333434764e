package registry

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

const (
	usdtAddr = "0x55d398326f99059fF775485246999027B3197955"
	wbnbAddr = "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
	bnbxAddr = "0x1bdd3Cf7F79cfB8EdbB955f20ad99211551BA275"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New([]TokenConfig{
		{Address: usdtAddr, Symbol: "USDT", Decimals: 18},
		{Address: wbnbAddr, Symbol: "WBNB", Decimals: 18},
	}, nil, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

type failingCaller struct{ calls int }

func (f *failingCaller) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	f.calls++
	return nil, errors.New("rpc down")
}

func TestRegistryLookup(t *testing.T) {
	reg := testRegistry(t)

	token, ok := reg.Lookup(common.HexToAddress(usdtAddr))
	if !ok || token.Symbol != "USDT" || token.Decimals != 18 {
		t.Fatalf("unexpected lookup result: %+v ok=%v", token, ok)
	}
	token, ok = reg.BySymbol("wbnb")
	if !ok || token.Address != common.HexToAddress(wbnbAddr) {
		t.Fatalf("symbol lookup should ignore case: %+v ok=%v", token, ok)
	}
	if _, ok := reg.BySymbol("CAKE"); ok {
		t.Fatalf("expected unknown symbol")
	}
}

func TestRegistryRejectsInvalidEntries(t *testing.T) {
	if _, err := New([]TokenConfig{{Address: "0x123", Symbol: "BAD"}}, nil, nil); err == nil {
		t.Fatalf("expected invalid address error")
	}
	if _, err := New([]TokenConfig{{Address: usdtAddr}}, nil, nil); err == nil {
		t.Fatalf("expected missing symbol error")
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := testRegistry(t)
	if _, err := reg.Resolve(context.Background(), common.HexToAddress(bnbxAddr)); err == nil {
		t.Fatalf("expected error without chain caller")
	}

	caller := &failingCaller{}
	reg.caller = caller
	token, err := reg.Resolve(context.Background(), common.HexToAddress(usdtAddr))
	if err != nil || token.Symbol != "USDT" {
		t.Fatalf("static token should resolve without rpc: %+v %v", token, err)
	}
	if caller.calls != 0 {
		t.Fatalf("expected no rpc calls, got %d", caller.calls)
	}
	if _, err := reg.Resolve(context.Background(), common.HexToAddress(bnbxAddr)); err == nil {
		t.Fatalf("expected rpc error for unknown token")
	}
	if caller.calls == 0 {
		t.Fatalf("expected unknown token to hit rpc")
	}
}

func TestReferencePricesPegs(t *testing.T) {
	reg := testRegistry(t)
	book, err := ReferencePrices(
		map[string]string{"usdt": "1", "wbnb": "612.35"},
		map[string]string{bnbxAddr: "WBNB", usdtAddr: "WBNB"},
		reg,
	)
	if err != nil {
		t.Fatalf("reference prices: %v", err)
	}

	price, ok := book.Price(common.HexToAddress(wbnbAddr))
	if !ok || price != 612.35 {
		t.Fatalf("unexpected WBNB price %v ok=%v", price, ok)
	}
	peg := book[common.HexToAddress(bnbxAddr)]
	if peg.USDPrice != 612.35 || peg.Source != "peg:WBNB" {
		t.Fatalf("unexpected peg quote %+v", peg)
	}
	if quote := book[common.HexToAddress(usdtAddr)]; quote.USDPrice != 1 || quote.Source != AnchorSource {
		t.Fatalf("anchor quote should win over peg: %+v", quote)
	}
}

func TestReferencePricesErrors(t *testing.T) {
	reg := testRegistry(t)
	cases := []struct {
		name    string
		anchors map[string]string
		pegs    map[string]string
	}{
		{name: "unknown anchor symbol", anchors: map[string]string{"CAKE": "2"}},
		{name: "non numeric price", anchors: map[string]string{"USDT": "one"}},
		{name: "zero price", anchors: map[string]string{"USDT": "0"}},
		{name: "peg to missing anchor", anchors: map[string]string{"USDT": "1"}, pegs: map[string]string{bnbxAddr: "WBNB"}},
		{name: "peg with bad address", anchors: map[string]string{"USDT": "1"}, pegs: map[string]string{"bnbx": "USDT"}},
	}
	for _, tc := range cases {
		if _, err := ReferencePrices(tc.anchors, tc.pegs, reg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestReferencePricesByAddress(t *testing.T) {
	book, err := ReferencePrices(map[string]string{wbnbAddr: "600.5"}, nil, nil)
	if err != nil {
		t.Fatalf("reference prices: %v", err)
	}
	if price, ok := book.Price(common.HexToAddress(wbnbAddr)); !ok || price != 600.5 {
		t.Fatalf("unexpected price %v ok=%v", price, ok)
	}
}
