package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"positionScope/internal/registry"
)

const envPrefix = "LPSCOPE"

// ChainConfig describes where positions live and how to read them.
type ChainConfig struct {
	RPCURL          string
	ChainID         uint64
	Wallet          string
	V2Pairs         []string
	PositionManager string
	Factory         string
	PositionIDs     []uint64
	MarketV2Pairs   []string
	MarketV3Pools   []string
	Labels          map[string]string
	Tokens          []registry.TokenConfig
	Anchors         map[string]string
	Pegs            map[string]string
	Concurrency     int
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
}

// SnapshotConfig holds configuration for the snapshot command.
type SnapshotConfig struct {
	Chain    ChainConfig
	Out      string
	LogLevel string
}

// Load merges config file, environment variables, and flags into SnapshotConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (SnapshotConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("out", "./data/snapshot.json")
	})
	if err != nil {
		return SnapshotConfig{}, err
	}

	chain, err := loadChain(v)
	if err != nil {
		return SnapshotConfig{}, err
	}

	return SnapshotConfig{
		Chain:    chain,
		Out:      v.GetString("out"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("concurrency", 8)
	v.SetDefault("timeout", 2*time.Minute)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadChain(v *viper.Viper) (ChainConfig, error) {
	ids, err := parseUint64s(getStringSlice(v, "position-ids"))
	if err != nil {
		return ChainConfig{}, fmt.Errorf("position-ids: %w", err)
	}

	var tokens []registry.TokenConfig
	if v.IsSet("tokens") {
		if err := v.UnmarshalKey("tokens", &tokens); err != nil {
			return ChainConfig{}, fmt.Errorf("tokens: %w", err)
		}
	}

	cfg := ChainConfig{
		RPCURL:          v.GetString("rpc"),
		ChainID:         v.GetUint64("chain-id"),
		Wallet:          v.GetString("wallet"),
		V2Pairs:         getStringSlice(v, "v2-pairs"),
		PositionManager: v.GetString("position-manager"),
		Factory:         v.GetString("factory"),
		PositionIDs:     ids,
		MarketV2Pairs:   getStringSlice(v, "market-v2-pairs"),
		MarketV3Pools:   getStringSlice(v, "market-v3-pools"),
		Labels:          v.GetStringMapString("labels"),
		Tokens:          tokens,
		Anchors:         v.GetStringMapString("anchors"),
		Pegs:            v.GetStringMapString("pegs"),
		Concurrency:     v.GetInt("concurrency"),
		Timeout:         v.GetDuration("timeout"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
	}
	if cfg.Concurrency <= 0 {
		return ChainConfig{}, fmt.Errorf("concurrency must be positive")
	}
	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
