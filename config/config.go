package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Swap    SwapConfig    `yaml:"swap"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controls batch sizes and settlement behavior.
type EngineConfig struct {
	MonitorBatch       int      `yaml:"monitor_batch"`
	ExecuteBatch       int      `yaml:"execute_batch"`
	ResolveBatch       int      `yaml:"resolve_batch"`
	PayoutBatch        int      `yaml:"payout_batch"`
	SlippageBps        int      `yaml:"slippage_bps"`
	PerTradeGasUSD     float64  `yaml:"per_trade_gas_usd"`
	AutoExecutePayouts bool     `yaml:"auto_execute_payouts"`
	SettlementToken    string   `yaml:"settlement_token"`
	NativeAssets       []string `yaml:"native_assets"`
}

// OracleConfig holds the price feed endpoints and cache policy.
type OracleConfig struct {
	PrimaryBase     string `yaml:"primary_base"`
	FallbackBase    string `yaml:"fallback_base"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// SwapConfig holds the swap router endpoint. The signer key never lives in
// YAML; it is read from the environment only.
type SwapConfig struct {
	Base      string `yaml:"base"`
	signerKey string
}

// SignerKey returns the signing key from the environment, or empty when
// automated execution is disabled.
func (s *SwapConfig) SignerKey() string {
	return s.signerKey
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig controls where data is persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config and the .env file if one exists. Environment
// values override YAML for the keys they cover.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// CacheTTL returns the oracle cache TTL as a time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Oracle.CacheTTLSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("ORACLE_PRIMARY_BASE"); v != "" {
		cfg.Oracle.PrimaryBase = v
	}
	if v := os.Getenv("ORACLE_FALLBACK_BASE"); v != "" {
		cfg.Oracle.FallbackBase = v
	}
	if v := os.Getenv("SWAP_BASE"); v != "" {
		cfg.Swap.Base = v
	}
	if v := os.Getenv("AUTO_EXECUTE_PAYOUTS"); v != "" {
		cfg.Engine.AutoExecutePayouts, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("NATIVE_ASSETS"); v != "" {
		cfg.Engine.NativeAssets = strings.Split(v, ",")
	}
	cfg.Swap.signerKey = os.Getenv("SWAP_SIGNER_KEY")
}

func setDefaults(cfg *Config) {
	if cfg.Engine.MonitorBatch <= 0 {
		cfg.Engine.MonitorBatch = 50
	}
	if cfg.Engine.ExecuteBatch <= 0 {
		cfg.Engine.ExecuteBatch = 10
	}
	if cfg.Engine.ResolveBatch <= 0 {
		cfg.Engine.ResolveBatch = 10
	}
	if cfg.Engine.PayoutBatch <= 0 {
		cfg.Engine.PayoutBatch = 10
	}
	if cfg.Engine.SlippageBps <= 0 {
		cfg.Engine.SlippageBps = 100
	}
	if cfg.Engine.PerTradeGasUSD <= 0 {
		cfg.Engine.PerTradeGasUSD = 0.50
	}
	if cfg.Oracle.CacheTTLSeconds <= 0 {
		cfg.Oracle.CacheTTLSeconds = 15
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "cypherx.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
