package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := validConfig()

	if cfg.App.Name != "price-engine" {
		t.Errorf("app.name = %q, want price-engine", cfg.App.Name)
	}
	if cfg.Pricing.MaxHops != 4 {
		t.Errorf("pricing.max_hops = %d, want 4", cfg.Pricing.MaxHops)
	}
	if cfg.Pricing.LengthPenalty != 0.85 {
		t.Errorf("pricing.length_penalty = %v, want 0.85", cfg.Pricing.LengthPenalty)
	}
	if cfg.Pricing.LiquidityHalf != 1000 {
		t.Errorf("pricing.liquidity_half = %v, want 1000", cfg.Pricing.LiquidityHalf)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q, want :8080", cfg.Server.Addr)
	}

	// Default anchor must parse into a contract identifier.
	anchor := cfg.Pricing.AnchorTokenID()
	if anchor.AssetName() != "sbtc-token" {
		t.Errorf("anchor asset = %q, want sbtc-token", anchor.AssetName())
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PRICE_MAX_HOPS", "6")
	t.Setenv("PRICE_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pricing.MaxHops != 6 {
		t.Errorf("pricing.max_hops = %d, want 6", cfg.Pricing.MaxHops)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis.addr = %q, want redis.internal:6379", cfg.Redis.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing_api_url",
			mutate:  func(c *Config) { c.Stacks.APIURL = "" },
			wantErr: "stacks.api_url",
		},
		{
			name:    "bad_anchor",
			mutate:  func(c *Config) { c.Pricing.AnchorToken = "not-a-principal" },
			wantErr: "anchor_token",
		},
		{
			name:    "hops_too_low",
			mutate:  func(c *Config) { c.Pricing.MaxHops = 0 },
			wantErr: "max_hops",
		},
		{
			name:    "hops_over_cap",
			mutate:  func(c *Config) { c.Pricing.MaxHops = 10 },
			wantErr: "max_hops",
		},
		{
			name:    "penalty_zero",
			mutate:  func(c *Config) { c.Pricing.LengthPenalty = 0 },
			wantErr: "length_penalty",
		},
		{
			name:    "penalty_above_one",
			mutate:  func(c *Config) { c.Pricing.LengthPenalty = 1.5 },
			wantErr: "length_penalty",
		},
		{
			name:    "liquidity_half_negative",
			mutate:  func(c *Config) { c.Pricing.LiquidityHalf = -1 },
			wantErr: "liquidity_half",
		},
		{
			name:    "missing_redis",
			mutate:  func(c *Config) { c.Redis.Addr = "" },
			wantErr: "redis.addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
