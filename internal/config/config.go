// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Exchanges ExchangesConfig `mapstructure:"exchanges"`
	Server    ServerConfig    `mapstructure:"server"`
	Client    ClientConfig    `mapstructure:"client"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// BinanceConfig holds Binance feed adapter configuration.
type BinanceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	DepthLevels    int           `mapstructure:"depth_levels"`
	UpdateSpeedMs  int           `mapstructure:"update_speed_ms"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// BitstampConfig holds Bitstamp feed adapter configuration.
type BitstampConfig struct {
	URL            string        `mapstructure:"url"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// ExchangesConfig groups every configured venue plus the currency pair they
// all subscribe to. The reference configuration fixes the venue set to
// Binance and Bitstamp, but the config shape stays parametric.
type ExchangesConfig struct {
	Currency string        `mapstructure:"currency"`
	Binance  BinanceConfig `mapstructure:"binance"`
	Bitstamp BitstampConfig `mapstructure:"bitstamp"`
}

// ServerConfig holds the streaming server's listen settings.
type ServerConfig struct {
	Port              int `mapstructure:"port"`
	SubscriberQueue   int `mapstructure:"subscriber_queue"`
	ProducerQueue     int `mapstructure:"producer_queue"`
}

// ClientConfig holds the TUI client's dial settings.
type ClientConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ZipkinEndpoint string `mapstructure:"zipkin_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("OBA")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
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
	v.BindEnv("app.log_level", "OBA_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("exchanges.currency", "OBA_CURRENCY")
	v.BindEnv("exchanges.binance.base_url", "OBA_BINANCE_BASE_URL")
	v.BindEnv("exchanges.bitstamp.url", "OBA_BITSTAMP_URL")

	v.BindEnv("server.port", "OBA_SERVER_PORT")
	v.BindEnv("client.host", "OBA_CLIENT_HOST")
	v.BindEnv("client.port", "OBA_CLIENT_PORT")

	v.BindEnv("telemetry.enabled", "OBA_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "OBA_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.zipkin_endpoint", "OBA_ZIPKIN_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "orderbook-aggregator")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Reference configuration: ethbtc on Binance, Bitstamp.
	v.SetDefault("exchanges.currency", "ethbtc")

	v.SetDefault("exchanges.binance.base_url", "wss://stream.binance.com:9443")
	v.SetDefault("exchanges.binance.depth_levels", 10)
	v.SetDefault("exchanges.binance.update_speed_ms", 100)
	v.SetDefault("exchanges.binance.read_timeout", "30s")
	v.SetDefault("exchanges.binance.initial_backoff", "1s")
	v.SetDefault("exchanges.binance.max_backoff", "30s")

	v.SetDefault("exchanges.bitstamp.url", "wss://ws.bitstamp.net")
	v.SetDefault("exchanges.bitstamp.read_timeout", "30s")
	v.SetDefault("exchanges.bitstamp.initial_backoff", "1s")
	v.SetDefault("exchanges.bitstamp.max_backoff", "30s")

	v.SetDefault("server.port", 30253)
	v.SetDefault("server.subscriber_queue", 1000)
	v.SetDefault("server.producer_queue", 10000)

	v.SetDefault("client.host", "[::1]")
	v.SetDefault("client.port", 30253)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "orderbook-aggregator")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Exchanges.Currency == "" {
		return fmt.Errorf("exchanges.currency is required")
	}
	if c.Exchanges.Binance.BaseURL == "" {
		return fmt.Errorf("exchanges.binance.base_url is required")
	}
	if c.Exchanges.Bitstamp.URL == "" {
		return fmt.Errorf("exchanges.bitstamp.url is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	return nil
}
