// Package config manages application configuration loading and validation.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/coachpo/executor/internal/domain/schema"
)

const defaultPublisherSendTimeout = 250 * time.Millisecond

// ExecutorConfig tunes the simulated execution behaviour.
type ExecutorConfig struct {
	// DefaultMarketPrice seeds a flat quote for every symbol when no feed is configured.
	DefaultMarketPrice    string        `yaml:"defaultMarketPrice"`
	AlwaysFillLimitOrders bool          `yaml:"alwaysFillLimitOrders"`
	ValidOrderTypes       OrderTypeList `yaml:"validOrderTypes"`
	// QuantityScale is the number of decimal places partial fills keep.
	QuantityScale int32 `yaml:"quantityScale"`
}

// MarketPrice returns the configured flat price. ok is false when none is set.
func (c ExecutorConfig) MarketPrice() (price decimal.Decimal, ok bool, err error) {
	raw := strings.TrimSpace(c.DefaultMarketPrice)
	if raw == "" {
		return decimal.Zero, false, nil
	}
	price, err = decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("defaultMarketPrice: %w", err)
	}
	return price, true, nil
}

// OrderTypes resolves ValidOrderTypes into schema order types.
func (c ExecutorConfig) OrderTypes() ([]schema.OrderType, error) {
	return c.ValidOrderTypes.Resolve()
}

// ServerConfig configures the websocket session listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MessageRate limits inbound messages per second on each session.
	MessageRate  float64       `yaml:"messageRate"`
	MessageBurst int           `yaml:"messageBurst"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// MarketDataConfig points the executor at a streaming quote feed.
type MarketDataConfig struct {
	FeedURL           string        `yaml:"feedURL"`
	Symbols           []string      `yaml:"symbols"`
	MaxReconnectDelay time.Duration `yaml:"maxReconnectDelay"`
}

// Enabled reports whether a feed URL is configured.
func (c MarketDataConfig) Enabled() bool {
	return strings.TrimSpace(c.FeedURL) != ""
}

// PublisherConfig configures the Kafka copy of every emitted report.
type PublisherConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	// SendTimeout bounds how long a session waits to hand one report to the publisher.
	SendTimeout time.Duration `yaml:"sendTimeout"`
}

// Enabled reports whether at least one broker is configured.
func (c PublisherConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// TelemetryConfig configures OTLP exporters (metrics only).
type TelemetryConfig struct {
	OTLPEndpoint  string `yaml:"otlpEndpoint"`
	ServiceName   string `yaml:"serviceName"`
	OTLPInsecure  bool   `yaml:"otlpInsecure"`
	EnableMetrics bool   `yaml:"enableMetrics"`
}

// AppConfig is the unified executor configuration sourced from YAML.
type AppConfig struct {
	Environment Environment      `yaml:"environment"`
	Executor    ExecutorConfig   `yaml:"executor"`
	Server      ServerConfig     `yaml:"server"`
	MarketData  MarketDataConfig `yaml:"marketData"`
	Publisher   PublisherConfig  `yaml:"publisher"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
}

// DefaultAppConfig returns the configuration used when no file is supplied.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Environment: EnvDev,
		Executor: ExecutorConfig{
			DefaultMarketPrice:    "",
			AlwaysFillLimitOrders: false,
			ValidOrderTypes:       OrderTypeList{"Limit"},
			QuantityScale:         0,
		},
		Server: ServerConfig{
			Addr:         ":9878",
			MessageRate:  200,
			MessageBurst: 50,
			WriteTimeout: 5 * time.Second,
		},
		MarketData: MarketDataConfig{
			FeedURL:           "",
			Symbols:           nil,
			MaxReconnectDelay: 30 * time.Second,
		},
		Publisher: PublisherConfig{
			Brokers:      nil,
			Topic:        "",
			BatchTimeout: 10 * time.Millisecond,
			SendTimeout:  defaultPublisherSendTimeout,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint:  "",
			ServiceName:   "executor",
			OTLPInsecure:  true,
			EnableMetrics: false,
		},
	}
}

// Load reads and validates an AppConfig from the provided YAML file.
// Sections missing from the file keep their defaults.
func Load(ctx context.Context, configPath string) (AppConfig, error) {
	_ = ctx

	reader, closer, err := openConfigFile(configPath)
	if err != nil {
		return AppConfig{}, err
	}
	defer closer()

	bytes, err := io.ReadAll(reader)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultAppConfig()
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalise(); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to DefaultAppConfig when the file does not exist.
func LoadOrDefault(ctx context.Context, configPath string) (AppConfig, bool, error) {
	cfg, err := Load(ctx, configPath)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, false, err
	}
	cfg = DefaultAppConfig()
	if err := cfg.normalise(); err != nil {
		return AppConfig{}, false, err
	}
	return cfg, false, nil
}

func (c *AppConfig) normalise() error {
	c.Environment = Environment(strings.ToLower(strings.TrimSpace(string(c.Environment))))
	if c.Environment == "" {
		c.Environment = EnvDev
	}

	c.Executor.DefaultMarketPrice = strings.TrimSpace(c.Executor.DefaultMarketPrice)
	if len(c.Executor.ValidOrderTypes) == 0 {
		c.Executor.ValidOrderTypes = OrderTypeList{"Limit"}
	}

	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.MessageBurst <= 0 {
		c.Server.MessageBurst = 1
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 5 * time.Second
	}

	c.MarketData.FeedURL = strings.TrimSpace(c.MarketData.FeedURL)
	c.MarketData.Symbols = normaliseList(c.MarketData.Symbols, strings.ToUpper)
	if c.MarketData.MaxReconnectDelay <= 0 {
		c.MarketData.MaxReconnectDelay = 30 * time.Second
	}

	c.Publisher.Brokers = normaliseList(c.Publisher.Brokers, nil)
	c.Publisher.Topic = strings.TrimSpace(c.Publisher.Topic)
	if c.Publisher.BatchTimeout <= 0 {
		c.Publisher.BatchTimeout = 10 * time.Millisecond
	}
	if c.Publisher.SendTimeout <= 0 {
		c.Publisher.SendTimeout = defaultPublisherSendTimeout
	}

	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)
	return nil
}

// Validate performs semantic validation on the configuration.
func (c AppConfig) Validate() error {
	switch c.Environment {
	case EnvDev, EnvStaging, EnvProd:
	default:
		return fmt.Errorf("environment must be one of dev, staging, prod")
	}

	price, ok, err := c.Executor.MarketPrice()
	if err != nil {
		return fmt.Errorf("executor %w", err)
	}
	if ok && !price.IsPositive() {
		return fmt.Errorf("executor defaultMarketPrice must be > 0")
	}
	if _, err := c.Executor.OrderTypes(); err != nil {
		return fmt.Errorf("executor validOrderTypes: %w", err)
	}
	if c.Executor.QuantityScale < 0 || c.Executor.QuantityScale > 18 {
		return fmt.Errorf("executor quantityScale must be within [0,18]")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server addr required")
	}
	if c.Server.MessageRate <= 0 {
		return fmt.Errorf("server messageRate must be > 0")
	}
	if c.Server.MessageBurst <= 0 {
		return fmt.Errorf("server messageBurst must be > 0")
	}

	if c.MarketData.Enabled() {
		url := strings.ToLower(c.MarketData.FeedURL)
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return fmt.Errorf("marketData feedURL must use ws:// or wss://")
		}
		if len(c.MarketData.Symbols) == 0 {
			return fmt.Errorf("marketData symbols required when feedURL is set")
		}
	}

	if c.Publisher.Enabled() && c.Publisher.Topic == "" {
		return fmt.Errorf("publisher topic required when brokers are set")
	}

	if c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry serviceName required")
	}
	return nil
}

func normaliseList(values []string, transform func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if transform != nil {
			trimmed = transform(trimmed)
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func openConfigFile(path string) (io.Reader, func(), error) {
	candidate := strings.TrimSpace(path)
	candidate = filepath.Clean(candidate)

	file, err := os.Open(candidate) // #nosec G304 -- path is operator controlled.
	if err != nil {
		return nil, nil, fmt.Errorf("open app config: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
