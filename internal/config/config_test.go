package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

const sampleConfig = `
rpc: https://bsc-dataseed.example
chain-id: 56
wallet: "0x00000000000000000000000000000000000000aa"
v2-pairs:
  - "0x0000000000000000000000000000000000000101"
position-manager: "0x46A15B0b27311cedF172AB29E4f4766fbE7F4364"
factory: "0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"
position-ids: [11, 12]
market-v3-pools: "0x0000000000000000000000000000000000000201, 0x0000000000000000000000000000000000000202"
tokens:
  - address: "0x55d398326f99059fF775485246999027B3197955"
    symbol: USDT
    decimals: 18
  - address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
    symbol: WBNB
    decimals: 18
anchors:
  USDT: "1"
  WBNB: "612.35"
pegs:
  "0x1bdd3Cf7F79cfB8EdbB955f20ad99211551BA275": WBNB
threshold: 0.5
calibration:
  anchor-tokens:
    - "0x55d398326f99059fF775485246999027B3197955"
  primary-pair:
    - "0x55d398326f99059fF775485246999027B3197955"
    - "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
  assumed-pool-share: 0.1
  in-range-tiers:
    - min-width-percent: 50
      probability: 0.9
    - min-width-percent: 0
      probability: 0.3
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValueFromFile(t *testing.T) {
	cfg, err := LoadValue(writeConfig(t, sampleConfig), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Chain.ChainID != 56 || cfg.Chain.RPCURL != "https://bsc-dataseed.example" {
		t.Fatalf("unexpected chain config: %+v", cfg.Chain)
	}
	if len(cfg.Chain.PositionIDs) != 2 || cfg.Chain.PositionIDs[1] != 12 {
		t.Fatalf("unexpected position ids: %v", cfg.Chain.PositionIDs)
	}
	if len(cfg.Chain.MarketV3Pools) != 2 {
		t.Fatalf("expected comma separated pools to split, got %v", cfg.Chain.MarketV3Pools)
	}
	if len(cfg.Chain.Tokens) != 2 || cfg.Chain.Tokens[1].Symbol != "WBNB" || cfg.Chain.Tokens[1].Decimals != 18 {
		t.Fatalf("unexpected tokens: %+v", cfg.Chain.Tokens)
	}
	if cfg.Chain.Anchors["wbnb"] != "612.35" {
		t.Fatalf("unexpected anchors: %v", cfg.Chain.Anchors)
	}
	if cfg.Chain.Concurrency != 8 || cfg.Chain.MaxRetries != 5 || cfg.Chain.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("defaults not applied: %+v", cfg.Chain)
	}
	if cfg.Threshold != 0.5 || cfg.Out != "./data/reports.jsonl" {
		t.Fatalf("unexpected value config: threshold=%v out=%s", cfg.Threshold, cfg.Out)
	}

	cal := cfg.Calibration
	if cal.AssumedPoolShare != 0.1 || cal.AssumedActiveLPs != 20 {
		t.Fatalf("unexpected calibration overrides: %+v", cal)
	}
	if cal.PrimaryPair[1] != common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c") {
		t.Fatalf("unexpected primary pair: %v", cal.PrimaryPair)
	}
	if len(cal.AnchorTokens) != 1 || len(cal.InRangeTiers) != 2 || cal.InRangeTiers[0].Probability != 0.9 {
		t.Fatalf("unexpected calibration lists: %+v", cal)
	}
}

func TestLoadValueEnvAndFlags(t *testing.T) {
	t.Setenv("LPSCOPE_THRESHOLD", "2.5")
	t.Setenv("LPSCOPE_CALIBRATION_ASSUMED_ACTIVE_LPS", "40")

	flags := pflag.NewFlagSet("value", pflag.ContinueOnError)
	flags.String("wallet", "", "")
	flags.String("snapshot", "", "")
	if err := flags.Parse([]string{"--wallet", "0x00000000000000000000000000000000000000bb", "--snapshot", "snap.json"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadValue(writeConfig(t, sampleConfig), flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Threshold != 2.5 {
		t.Fatalf("env should override file threshold, got %v", cfg.Threshold)
	}
	if cfg.Calibration.AssumedActiveLPs != 40 {
		t.Fatalf("env should override calibration, got %v", cfg.Calibration.AssumedActiveLPs)
	}
	if cfg.Chain.Wallet != "0x00000000000000000000000000000000000000bb" || cfg.Snapshot != "snap.json" {
		t.Fatalf("flags should override file: wallet=%s snapshot=%s", cfg.Chain.Wallet, cfg.Snapshot)
	}
}

func TestLoadValueRejectsBadCalibration(t *testing.T) {
	cases := []string{
		"calibration:\n  assumed-pool-share: 0\n",
		"calibration:\n  constant-product-fee-rate: 1.5\n",
		"calibration:\n  primary-pair: [\"0x55d398326f99059fF775485246999027B3197955\"]\n",
		"calibration:\n  in-range-tiers:\n    - min-width-percent: 10\n      probability: 0.4\n    - min-width-percent: 20\n      probability: 0.6\n",
		"threshold: -1\n",
		"position-ids: [\"abc\"]\n",
	}
	for _, body := range cases {
		if _, err := LoadValue(writeConfig(t, body), nil); err == nil {
			t.Fatalf("expected error for config:\n%s", body)
		}
	}
}

func TestLoadSnapshotDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "wallet: \"0x00000000000000000000000000000000000000aa\"\n"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Out != "./data/snapshot.json" || cfg.LogLevel != "info" || cfg.Chain.Timeout != 2*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseAddresses(t *testing.T) {
	addrs, err := ParseAddresses([]string{" 0x0000000000000000000000000000000000000001 ", ""})
	if err != nil || len(addrs) != 1 {
		t.Fatalf("unexpected result: %v %v", addrs, err)
	}
	if _, err := ParseAddresses([]string{"0x12"}); err == nil {
		t.Fatalf("expected invalid address error")
	}
	if addr, err := ParseAddress(""); err != nil || addr != (common.Address{}) {
		t.Fatalf("empty address should be zero: %v %v", addr, err)
	}
}
