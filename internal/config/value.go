package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"positionScope/internal/arbitrage"
	"positionScope/internal/yield"
)

// ValueConfig holds configuration for the value command.
type ValueConfig struct {
	Chain ChainConfig
	// Snapshot is an input snapshot file; empty means read the chain.
	Snapshot    string
	Out         string
	PGDSN       string
	Threshold   float64
	Calibration yield.Calibration
	LogLevel    string
}

// LoadValue merges config file, environment variables, and flags into ValueConfig.
func LoadValue(cfgFile string, flags *pflag.FlagSet) (ValueConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("out", "./data/reports.jsonl")
		v.SetDefault("threshold", arbitrage.DefaultThresholdPercent)
	})
	if err != nil {
		return ValueConfig{}, err
	}

	chain, err := loadChain(v)
	if err != nil {
		return ValueConfig{}, err
	}

	calibration, err := loadCalibration(v)
	if err != nil {
		return ValueConfig{}, err
	}

	cfg := ValueConfig{
		Chain:       chain,
		Snapshot:    v.GetString("snapshot"),
		Out:         v.GetString("out"),
		PGDSN:       v.GetString("pg-dsn"),
		Threshold:   v.GetFloat64("threshold"),
		Calibration: calibration,
		LogLevel:    v.GetString("log-level"),
	}
	if cfg.Threshold < 0 {
		return ValueConfig{}, fmt.Errorf("threshold must not be negative")
	}
	return cfg, nil
}
