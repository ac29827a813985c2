package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gabrielajasnosz/subscriptions-contract/internal/watcher"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables override the configuration file, e.g.
// SUBSCRIPTION_RPC_ENDPOINT for rpc.endpoint.
const envPrefix = "SUBSCRIPTION"

// Configuration keys.
const (
	cfgRPCEndpoint    = "rpc.endpoint"
	cfgRPCTimeout     = "rpc.timeout"
	cfgWalletPath     = "wallet.path"
	cfgWalletAddress  = "wallet.address"
	cfgWalletPassword = "wallet.password"
	cfgContract       = "contract.address"
	cfgLogLevel       = "log.level"
	cfgWatcherDB      = "watcher.db"
	cfgWatcherMetrics = "watcher.metrics_address"
	cfgWatcherNS      = "watcher.namespace"
	cfgWatcherCron    = "watcher.schedule"
)

type config struct {
	Endpoint string
	Timeout  time.Duration

	WalletPath     string
	WalletAddress  string
	WalletPassword string

	Contract string

	LogLevel string

	Watcher watcherConfig
}

type watcherConfig struct {
	DB             string
	MetricsAddress string
	Namespace      string
	Schedule       string
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(cfgRPCTimeout, 15*time.Second)
	v.SetDefault(cfgLogLevel, "info")
	v.SetDefault(cfgWatcherDB, "subscriptions.db")
	v.SetDefault(cfgWatcherMetrics, ":9090")
	v.SetDefault(cfgWatcherNS, "subscriptionctl")
	v.SetDefault(cfgWatcherCron, watcher.DefaultSchedule)

	return v
}

// loadConfig reads optional YAML configuration file and returns resulting
// configuration with flags and environment applied.
func loadConfig(v *viper.Viper, path string) (config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := config{
		Endpoint:       v.GetString(cfgRPCEndpoint),
		Timeout:        v.GetDuration(cfgRPCTimeout),
		WalletPath:     v.GetString(cfgWalletPath),
		WalletAddress:  v.GetString(cfgWalletAddress),
		WalletPassword: v.GetString(cfgWalletPassword),
		Contract:       v.GetString(cfgContract),
		LogLevel:       v.GetString(cfgLogLevel),
		Watcher: watcherConfig{
			DB:             v.GetString(cfgWatcherDB),
			MetricsAddress: v.GetString(cfgWatcherMetrics),
			Namespace:      v.GetString(cfgWatcherNS),
			Schedule:       v.GetString(cfgWatcherCron),
		},
	}

	if cfg.Timeout <= 0 {
		return config{}, fmt.Errorf("invalid %s: %s", cfgRPCTimeout, cfg.Timeout)
	}

	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	c.Encoding = "console"
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return c.Build()
}
