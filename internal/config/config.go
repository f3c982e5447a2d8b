package config

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/matrixise/balance-lookup/internal/scheduler"
	"github.com/matrixise/balance-lookup/internal/ss58"
)

// Presets maps well-known network names to a public RPC endpoint.
var Presets = map[string]string{
	"frequency":        "wss://1.rpc.frequency.xyz",
	"frequency-rococo": "wss://rpc.rococo.frequency.xyz",
	"polkadot":         "wss://rpc.polkadot.io",
	"rococo":           "wss://rococo-rpc.polkadot.io",
	"local":            "ws://127.0.0.1:9944",
}

// Config represents the application configuration
type Config struct {
	Network          string            `mapstructure:"network" validate:"omitempty,preset"`
	Endpoint         string            `mapstructure:"endpoint" validate:"omitempty,ws_url"`
	Endpoints        []string          `mapstructure:"endpoints" validate:"required,min=1,dive,ws_url"`
	RelayEndpoints   map[string]string `mapstructure:"relay_endpoints" validate:"dive,keys,numeric,endkeys,ws_url"`
	Accounts         []AccountConfig   `mapstructure:"accounts" validate:"dive"`
	Interval         string            `mapstructure:"interval" validate:"omitempty,schedule"`
	Timezone         string            `mapstructure:"timezone" validate:"omitempty,timezone"`
	RunImmediately   *bool             `mapstructure:"run_immediately"`
	LogLevel         string            `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort         int               `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	ReleasePallet    string            `mapstructure:"release_pallet" validate:"required"`
	ReleaseStorage   string            `mapstructure:"release_storage" validate:"required"`
	AddressCacheSize int               `mapstructure:"address_cache_size" validate:"omitempty,min=1"`
}

// AccountConfig is an account watched by serve.
type AccountConfig struct {
	Address string `mapstructure:"address" validate:"required,ss58_addr"`
	Note    string `mapstructure:"note" validate:"max=200"`
}

// Normalize folds endpoint and network into endpoints. An explicit
// endpoints list wins over endpoint, which wins over the network preset.
func (c *Config) Normalize() error {
	switch {
	case len(c.Endpoints) > 0:
	case c.Endpoint != "":
		c.Endpoints = []string{c.Endpoint}
	case c.Network != "":
		ep, ok := Presets[c.Network]
		if !ok {
			return errors.New("unknown network " + strconv.Quote(c.Network))
		}
		c.Endpoints = []string{ep}
	default:
		return errors.New("at least one of endpoint, endpoints or network must be set")
	}
	c.Endpoint = ""

	for i := range c.Endpoints {
		c.Endpoints[i] = strings.TrimSpace(c.Endpoints[i])
	}
	return nil
}

// RelayMap returns relay_endpoints keyed by SS58 prefix.
func (c *Config) RelayMap() (map[uint16]string, error) {
	out := make(map[uint16]string, len(c.RelayEndpoints))
	for k, v := range c.RelayEndpoints {
		prefix, err := strconv.ParseUint(k, 10, 16)
		if err != nil {
			return nil, errors.New("relay_endpoints: invalid prefix " + strconv.Quote(k))
		}
		out[uint16(prefix)] = v
	}
	return out, nil
}

// GetTimezone returns the configured location, UTC when unset or unknown.
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldRunImmediately defaults to true when run_immediately is unset.
func (c *Config) ShouldRunImmediately() bool {
	return c.RunImmediately == nil || *c.RunImmediately
}

// IsCronExpression reports whether interval is a cron expression rather
// than a duration.
func (c *Config) IsCronExpression() bool {
	return scheduler.IsCronExpression(c.Interval)
}

// wsURLValidator accepts ws:// and wss:// URLs with a host.
func wsURLValidator(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "ws" || u.Scheme == "wss") && u.Host != ""
}

func ss58Validator(fl validator.FieldLevel) bool {
	_, _, err := ss58.Decode(fl.Field().String())
	return err == nil
}

// scheduleValidator accepts a duration or a five/six-field cron expression.
func scheduleValidator(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true // empty is valid (no watch)
	}
	_, err := scheduler.Definition(s)
	return err == nil
}

func presetValidator(fl validator.FieldLevel) bool {
	_, ok := Presets[fl.Field().String()]
	return ok
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("ws_url", wsURLValidator)
	validate.RegisterValidation("ss58_addr", ss58Validator)
	validate.RegisterValidation("schedule", scheduleValidator)
	validate.RegisterValidation("preset", presetValidator)
	return validate
}
