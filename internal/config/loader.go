package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BALANCE_LOOKUP_ENDPOINT.
const EnvPrefix = "BALANCE_LOOKUP"

const (
	DefaultReleasePallet    = "TimeRelease"
	DefaultReleaseStorage   = "ReleaseSchedules"
	DefaultAddressCacheSize = 1024
)

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"network":   "network",
	"endpoint":  "endpoint",
	"log-level": "log_level",
	"interval":  "interval",
	"http-port": "http_port",
	"timezone":  "timezone",
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	return LoadWithFlags(configPath, nil)
}

// LoadWithFlags is Load with command-line flags layered on top. Only flags
// set explicitly override the file and the environment.
func LoadWithFlags(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("interval", "")
	v.SetDefault("http_port", 8080)
	v.SetDefault("run_immediately", true)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("release_pallet", DefaultReleasePallet)
	v.SetDefault("release_storage", DefaultReleaseStorage)
	v.SetDefault("address_cache_size", DefaultAddressCacheSize)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Prefixed names win over bare ones: BALANCE_LOOKUP_ENDPOINT, ENDPOINT.
	for _, key := range []string{
		"network", "endpoint", "endpoints", "interval", "timezone",
		"run_immediately", "log_level", "http_port",
		"release_pallet", "release_storage", "address_cache_size",
	} {
		env := strings.ToUpper(key)
		v.BindEnv(key, EnvPrefix+"_"+env, env)
	}
	// Accounts from the environment are bare addresses without notes.
	v.BindEnv("account_list", EnvPrefix+"_ACCOUNTS", "ACCOUNTS")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if endpointsEnv := v.GetString("endpoints"); endpointsEnv != "" {
		cfg.Endpoints = splitList(endpointsEnv)
	}
	if accountsEnv := v.GetString("account_list"); accountsEnv != "" {
		for _, addr := range splitList(accountsEnv) {
			cfg.Accounts = append(cfg.Accounts, AccountConfig{Address: addr})
		}
	}

	// An endpoint or network given on the command line replaces whatever
	// the file or environment listed.
	if flags != nil {
		switch {
		case flags.Changed("endpoint"):
			cfg.Endpoints = nil
		case flags.Changed("network"):
			cfg.Endpoints = nil
			cfg.Endpoint = ""
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	if err := NewValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
