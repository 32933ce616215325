package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full node configuration.
type Config struct {
	LogLevel    string `mapstructure:"log_level"`
	LogEncoding string `mapstructure:"log_encoding"`

	API        APIConfig        `mapstructure:"api"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Stable     StableConfig     `mapstructure:"stablecoin"`

	Collateral []CollateralConfig `mapstructure:"collateral"`
}

// APIConfig configures the HTTP API server.
type APIConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// MonitoringConfig configures the Prometheus exporter.
type MonitoringConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Namespace  string `mapstructure:"namespace"`
}

// OracleConfig configures price feed handling.
type OracleConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// StableConfig names the pegged currency.
type StableConfig struct {
	Symbol string `mapstructure:"symbol"`
}

// CollateralConfig registers one collateral asset for the demo node.
// InitialPrice is an integer string in the feed's own precision (e.g.
// "200000000000" is 2000 USD on an 8-decimal feed).
type CollateralConfig struct {
	Symbol       string `mapstructure:"symbol"`
	FeedDecimals uint8  `mapstructure:"feed_decimals"`
	InitialPrice string `mapstructure:"initial_price"`
}

// Load reads configuration from the given file. An empty path loads
// ./config.yaml if present, defaults otherwise.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.listen_addr", ":9090")
	v.SetDefault("monitoring.namespace", "stablemint")
	v.SetDefault("oracle.stale_after", 3*time.Hour)
	v.SetDefault("stablecoin.symbol", "USDm")
	v.SetDefault("collateral", []map[string]interface{}{
		{"symbol": "WETH", "feed_decimals": 8, "initial_price": "200000000000"},
		{"symbol": "WBTC", "feed_decimals": 8, "initial_price": "4000000000000"},
	})
}

// Validate checks the configuration for values the node cannot start with.
func (c *Config) Validate() error {
	if c.Stable.Symbol == "" {
		return fmt.Errorf("stablecoin.symbol is required")
	}
	if len(c.Collateral) == 0 {
		return fmt.Errorf("at least one collateral asset is required")
	}
	seen := make(map[string]struct{}, len(c.Collateral))
	for i, col := range c.Collateral {
		if col.Symbol == "" {
			return fmt.Errorf("collateral[%d]: symbol is required", i)
		}
		if col.Symbol == c.Stable.Symbol {
			return fmt.Errorf("collateral[%d]: %s is the stablecoin", i, col.Symbol)
		}
		if _, dup := seen[col.Symbol]; dup {
			return fmt.Errorf("collateral[%d]: duplicate symbol %s", i, col.Symbol)
		}
		seen[col.Symbol] = struct{}{}
		if col.FeedDecimals > 18 {
			return fmt.Errorf("collateral[%d]: feed_decimals must be <= 18", i)
		}
		if col.InitialPrice == "" {
			return fmt.Errorf("collateral[%d]: initial_price is required", i)
		}
	}
	if c.Oracle.StaleAfter < 0 {
		return fmt.Errorf("oracle.stale_after must not be negative")
	}
	if c.API.Enabled && c.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr is required when the API is enabled")
	}
	if c.Monitoring.Enabled && c.Monitoring.ListenAddr == "" {
		return fmt.Errorf("monitoring.listen_addr is required when monitoring is enabled")
	}
	return nil
}
