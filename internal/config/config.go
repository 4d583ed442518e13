package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Default mainnet contract addresses.
const (
	DefaultSettlementContract = "0x9008d19f58aabd9ed0d60971565aa8510560ab41"
	DefaultWETHAddress        = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

// Config holds configuration values loaded from flags, env, or config file.
// Secrets (DSN, access keys, webhook) come from the environment, seeded
// from an optional .env file.
type Config struct {
	RPCURL             string
	PGDSN              string
	SettlementContract string
	WETHAddress        string
	OrderbookURL       string
	OrderbookBarnURL   string
	Simulator          string
	EnsoURL            string
	EnsoAccessKey      string
	TenderlyUser       string
	TenderlyProject    string
	TenderlyAccessKey  string
	SlackWebhook       string
	ConfirmationBlocks int64
	LogLevel           string
}

// Load merges .env, config file, environment variables, and flags.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("settlement-contract", DefaultSettlementContract)
	v.SetDefault("weth-address", DefaultWETHAddress)
	v.SetDefault("orderbook-url", "https://api.cow.fi/mainnet/api/v1/solver_competition/by_tx_hash")
	v.SetDefault("orderbook-barn-url", "https://barn.api.cow.fi/mainnet/api/v1/solver_competition/by_tx_hash")
	v.SetDefault("simulator", "enso")
	v.SetDefault("confirmation-blocks", int64(70))
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:             v.GetString("rpc"),
		PGDSN:              v.GetString("pg-dsn"),
		SettlementContract: v.GetString("settlement-contract"),
		WETHAddress:        v.GetString("weth-address"),
		OrderbookURL:       v.GetString("orderbook-url"),
		OrderbookBarnURL:   v.GetString("orderbook-barn-url"),
		Simulator:          v.GetString("simulator"),
		EnsoURL:            v.GetString("enso-url"),
		EnsoAccessKey:      v.GetString("enso-access-key"),
		TenderlyUser:       v.GetString("tenderly-user"),
		TenderlyProject:    v.GetString("tenderly-project"),
		TenderlyAccessKey:  v.GetString("tenderly-access-key"),
		SlackWebhook:       v.GetString("slack-webhook"),
		ConfirmationBlocks: v.GetInt64("confirmation-blocks"),
		LogLevel:           v.GetString("log-level"),
	}

	return cfg, nil
}
