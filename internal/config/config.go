package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Bidding BiddingConfig `mapstructure:"bidding"`
	Payment PaymentConfig `mapstructure:"payment"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	// DSN empty means the in-memory store is used.
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SweepConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Cron specs with seconds granularity.
	LifecycleSpec  string `mapstructure:"lifecycle_spec"`
	SettlementSpec string `mapstructure:"settlement_spec"`
	// How long an ended auction may stay unpaid before it is reopened.
	PaymentGrace time.Duration `mapstructure:"payment_grace"`
	// End time granted to a reopened auction.
	ReopenExtension time.Duration `mapstructure:"reopen_extension"`
	// Unpaid auctions before the account is suspended.
	StrikeThreshold int `mapstructure:"strike_threshold"`
}

type BiddingConfig struct {
	// Bids landing closer to the deadline than this push it out to
	// now + SnipeWindow.
	SnipeWindow time.Duration `mapstructure:"snipe_window"`
	// Default bid history page size.
	HistoryLimit int `mapstructure:"history_limit"`
}

type PaymentConfig struct {
	// HMAC secret for webhook signatures. Empty disables verification.
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// Load reads config.yaml from the working directory (if present) and
// AUCTION_* environment variables on top of the defaults below.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", time.Hour)
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.lifecycle_spec", "0 * * * * *")
	v.SetDefault("sweep.settlement_spec", "0 0 * * * *")
	v.SetDefault("sweep.payment_grace", 24*time.Hour)
	v.SetDefault("sweep.reopen_extension", 24*time.Hour)
	v.SetDefault("sweep.strike_threshold", 3)
	v.SetDefault("bidding.snipe_window", 2*time.Minute)
	v.SetDefault("bidding.history_limit", 50)
	v.SetDefault("payment.webhook_secret", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AUCTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
