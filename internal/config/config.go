// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

type Config struct {
	RPCList          []string `mapstructure:"rpc_list"`
	JupiterBaseURL   string   `mapstructure:"jupiter_base_url"`
	PriceBaseURL     string   `mapstructure:"price_base_url"`
	CashMint         string   `mapstructure:"cash_mint"`
	DatabaseDSN      string   `mapstructure:"database_dsn"`
	ListenAddr       string   `mapstructure:"listen_addr"`
	Commitment       string   `mapstructure:"commitment"`
	ConfirmTimeoutMs int      `mapstructure:"confirm_timeout_ms"`
	APIRateLimit     float64  `mapstructure:"api_rate_limit"`
	APIRateBurst     int      `mapstructure:"api_rate_burst"`
	DebugLogging     bool     `mapstructure:"debug_logging"`
}

const (
	// USDC — референсный стейбл, в котором деноминирован весь PnL.
	DefaultCashMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	DefaultJupiterBaseURL   = "https://lite-api.jup.ag/swap/v1"
	DefaultPriceBaseURL     = "https://lite-api.jup.ag/price/v3"
	DefaultDatabaseDSN      = "local.db"
	DefaultListenAddr       = ":4000"
	DefaultCommitment       = "confirmed"
	DefaultConfirmTimeoutMs = 30000
	DefaultAPIRateLimit     = 10.0
	DefaultAPIRateBurst     = 20
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"jupiter_base_url":   DefaultJupiterBaseURL,
		"price_base_url":     DefaultPriceBaseURL,
		"cash_mint":          DefaultCashMint,
		"database_dsn":       DefaultDatabaseDSN,
		"listen_addr":        DefaultListenAddr,
		"commitment":         DefaultCommitment,
		"confirm_timeout_ms": DefaultConfirmTimeoutMs,
		"api_rate_limit":     DefaultAPIRateLimit,
		"api_rate_burst":     DefaultAPIRateBurst,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if err := validateURLWithCache(cfg.JupiterBaseURL, "http"); err != nil {
		return errors.New("invalid Jupiter base URL")
	}
	if err := validateURLWithCache(cfg.PriceBaseURL, "http"); err != nil {
		return errors.New("invalid price API base URL")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.CashMint); err != nil {
		return errors.New("invalid cash_mint public key")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("database_dsn is empty")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	switch cfg.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return errors.New("invalid commitment level")
	}
	if cfg.ConfirmTimeoutMs <= 0 {
		return errors.New("invalid confirm_timeout_ms")
	}
	if cfg.APIRateLimit <= 0 {
		return errors.New("invalid api_rate_limit")
	}
	if cfg.APIRateBurst <= 0 {
		return errors.New("invalid api_rate_burst")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SWAP_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	envDSN := v.GetString("DATABASE_DSN")
	if envDSN != "" {
		cfg.DatabaseDSN = envDSN
	}

	envCashMint := v.GetString("CASH_MINT")
	if envCashMint != "" {
		cfg.CashMint = envCashMint
	}
	return nil
}
