// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/stxquote/price-engine/internal/token"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Stacks    StacksConfig    `mapstructure:"stacks"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// StacksConfig holds Stacks node API configuration.
type StacksConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	WebSocketURL   string        `mapstructure:"websocket_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// OracleConfig holds the anchor price oracle configuration.
type OracleConfig struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`
}

// RedisConfig holds the snapshot store configuration.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PricingConfig holds the price discovery tunables.
type PricingConfig struct {
	AnchorToken     string        `mapstructure:"anchor_token"`
	MaxHops         int           `mapstructure:"max_hops"`
	MinLiquidity    float64       `mapstructure:"min_liquidity"`
	LengthPenalty   float64       `mapstructure:"length_penalty"`
	LiquidityHalf   float64       `mapstructure:"liquidity_half"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxStale        time.Duration `mapstructure:"max_stale"`
}

// AnchorTokenID returns the anchor token as a parsed contract identifier.
func (c *PricingConfig) AnchorTokenID() token.ID {
	return token.MustParse(c.AnchorToken)
}

// ServerConfig holds the HTTP API listener configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	HealthAddr      string        `mapstructure:"health_addr"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("PRICE")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "PRICE_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "PRICE_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "PRICE_LOG_LEVEL", "LOG_LEVEL")

	// Stacks
	v.BindEnv("stacks.api_url", "PRICE_STACKS_API_URL", "STACKS_API_URL")
	v.BindEnv("stacks.websocket_url", "PRICE_STACKS_WS_URL", "STACKS_WS_URL")
	v.BindEnv("stacks.rate_limit_rps", "PRICE_STACKS_RATE_LIMIT_RPS")

	// Oracle
	v.BindEnv("oracle.url", "PRICE_ORACLE_URL", "ORACLE_URL")

	// Redis
	v.BindEnv("redis.addr", "PRICE_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "PRICE_REDIS_PASSWORD", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "PRICE_REDIS_DB")

	// Pricing
	v.BindEnv("pricing.anchor_token", "PRICE_ANCHOR_TOKEN")
	v.BindEnv("pricing.max_hops", "PRICE_MAX_HOPS")
	v.BindEnv("pricing.min_liquidity", "PRICE_MIN_LIQUIDITY")
	v.BindEnv("pricing.refresh_interval", "PRICE_REFRESH_INTERVAL")
	v.BindEnv("pricing.max_stale", "PRICE_MAX_STALE")

	// Server
	v.BindEnv("server.addr", "PRICE_SERVER_ADDR", "SERVER_ADDR")
	v.BindEnv("server.health_addr", "PRICE_HEALTH_ADDR")

	// Telemetry
	v.BindEnv("telemetry.enabled", "PRICE_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "PRICE_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "PRICE_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "price-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Stacks defaults
	v.SetDefault("stacks.api_url", "https://api.hiro.so")
	v.SetDefault("stacks.websocket_url", "wss://api.hiro.so/")
	v.SetDefault("stacks.request_timeout", "10s")
	v.SetDefault("stacks.rate_limit_rps", 10)
	v.SetDefault("stacks.max_reconnects", 0) // infinite
	v.SetDefault("stacks.initial_backoff", "1s")
	v.SetDefault("stacks.max_backoff", "30s")

	// Oracle defaults
	v.SetDefault("oracle.timeout", "5s")
	v.SetDefault("oracle.stale_timeout", "5m")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "10m")

	// Pricing defaults
	v.SetDefault("pricing.anchor_token", "SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-token::sbtc-token")
	v.SetDefault("pricing.max_hops", 4)
	v.SetDefault("pricing.min_liquidity", 0)
	v.SetDefault("pricing.length_penalty", 0.85)
	v.SetDefault("pricing.liquidity_half", 1000)
	v.SetDefault("pricing.refresh_interval", "60s")
	v.SetDefault("pricing.max_stale", "10m")

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.health_addr", ":8081")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "price-engine")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Stacks.APIURL == "" {
		return fmt.Errorf("stacks.api_url is required")
	}
	if _, err := token.Parse(c.Pricing.AnchorToken); err != nil {
		return fmt.Errorf("invalid pricing.anchor_token: %w", err)
	}
	if c.Pricing.MaxHops < 1 || c.Pricing.MaxHops > 9 {
		return fmt.Errorf("pricing.max_hops must be between 1 and 9, got %d", c.Pricing.MaxHops)
	}
	if c.Pricing.LengthPenalty <= 0 || c.Pricing.LengthPenalty > 1 {
		return fmt.Errorf("pricing.length_penalty must be in (0, 1], got %v", c.Pricing.LengthPenalty)
	}
	if c.Pricing.LiquidityHalf <= 0 {
		return fmt.Errorf("pricing.liquidity_half must be positive, got %v", c.Pricing.LiquidityHalf)
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	return nil
}
