package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliceSubstrate = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		wantError bool
		check     func(*Config)
	}{
		{
			name: "single endpoint converts to endpoints",
			cfg:  &Config{Endpoint: "wss://rpc1.example.com"},
			check: func(c *Config) {
				assert.Empty(t, c.Endpoint)
				assert.Equal(t, []string{"wss://rpc1.example.com"}, c.Endpoints)
			},
		},
		{
			name: "endpoints takes precedence over endpoint",
			cfg: &Config{
				Endpoint:  "wss://rpc1.example.com",
				Endpoints: []string{"wss://rpc2.example.com", "wss://rpc3.example.com"},
			},
			check: func(c *Config) {
				assert.Empty(t, c.Endpoint)
				assert.Equal(t, []string{"wss://rpc2.example.com", "wss://rpc3.example.com"}, c.Endpoints)
			},
		},
		{
			name: "network preset fills endpoints",
			cfg:  &Config{Network: "polkadot"},
			check: func(c *Config) {
				assert.Equal(t, []string{"wss://rpc.polkadot.io"}, c.Endpoints)
			},
		},
		{
			name: "endpoint wins over network",
			cfg:  &Config{Network: "polkadot", Endpoint: "ws://127.0.0.1:9944"},
			check: func(c *Config) {
				assert.Equal(t, []string{"ws://127.0.0.1:9944"}, c.Endpoints)
			},
		},
		{
			name: "endpoints are trimmed",
			cfg:  &Config{Endpoints: []string{" wss://a.example.com "}},
			check: func(c *Config) {
				assert.Equal(t, []string{"wss://a.example.com"}, c.Endpoints)
			},
		},
		{
			name:      "unknown network",
			cfg:       &Config{Network: "nowhere"},
			wantError: true,
		},
		{
			name:      "nothing configured",
			cfg:       &Config{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Normalize()
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(tt.cfg)
			}
		})
	}
}

func TestConfigRelayMap(t *testing.T) {
	cfg := &Config{RelayEndpoints: map[string]string{
		"42": "wss://rococo-rpc.polkadot.io",
		"90": "wss://rpc.polkadot.io",
	}}

	got, err := cfg.RelayMap()
	require.NoError(t, err)
	assert.Equal(t, map[uint16]string{
		42: "wss://rococo-rpc.polkadot.io",
		90: "wss://rpc.polkadot.io",
	}, got)

	cfg.RelayEndpoints["70000"] = "wss://x.example.com"
	_, err = cfg.RelayMap()
	assert.Error(t, err)
}

func TestConfigGetTimezone(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantName string
	}{
		{name: "UTC timezone", timezone: "UTC", wantName: "UTC"},
		{name: "named zone", timezone: "Europe/Brussels", wantName: "Europe/Brussels"},
		{name: "empty timezone defaults to UTC", timezone: "", wantName: "UTC"},
		{name: "unknown timezone defaults to UTC", timezone: "Mars/Olympus", wantName: "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Timezone: tt.timezone}
			assert.Equal(t, tt.wantName, cfg.GetTimezone().String())
		})
	}
}

func TestConfigShouldRunImmediately(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name    string
		cfg     *Config
		wantRun bool
	}{
		{name: "true when explicitly set", cfg: &Config{RunImmediately: &trueVal}, wantRun: true},
		{name: "false when explicitly disabled", cfg: &Config{RunImmediately: &falseVal}, wantRun: false},
		{name: "nil pointer defaults to true", cfg: &Config{}, wantRun: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRun, tt.cfg.ShouldRunImmediately())
		})
	}
}

func TestConfigIsCronExpression(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		expected bool
	}{
		{name: "duration is not cron", interval: "5m", expected: false},
		{name: "empty is not cron", interval: "", expected: false},
		{name: "cron expression detected", interval: "*/5 * * * *", expected: true},
		{name: "six-field cron with seconds", interval: "*/30 * * * * *", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Interval: tt.interval}
			assert.Equal(t, tt.expected, cfg.IsCronExpression())
		})
	}
}
