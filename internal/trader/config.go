package trader

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-decision/internal/combiner"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

// Provider selects the market data and execution backend.
type Provider string

const (
	ProviderBinance Provider = "binance"
	ProviderPolygon Provider = "polygon"
	ProviderPaper   Provider = "paper"
)

// Config holds the full runtime configuration for the decision loop.
type Config struct {
	// Symbol is the instrument the loop trades, e.g. BTCUSDT.
	Symbol string `json:"symbol" yaml:"symbol" jsonschema:"title=Symbol,description=Instrument to trade (e.g. BTCUSDT)" validate:"required"`

	// Provider selects where market data and order execution come from.
	Provider Provider `json:"provider" yaml:"provider" jsonschema:"title=Provider,description=Market data and execution backend,enum=binance,enum=polygon,enum=paper,default=paper" validate:"required,oneof=binance polygon paper"`

	// Interval is the candlestick interval requested from the provider.
	Interval string `json:"interval" yaml:"interval" jsonschema:"title=Interval,description=Candlestick interval,default=1h"`

	// DecisionIntervalSeconds is how often a decision cycle runs.
	DecisionIntervalSeconds int `json:"decision_interval_seconds" yaml:"decision_interval_seconds" jsonschema:"title=Decision Interval,description=Seconds between decision cycles,default=60" validate:"gte=1"`

	// EngineTimeoutSeconds bounds each factor engine call during fan-out.
	EngineTimeoutSeconds int `json:"engine_timeout_seconds" yaml:"engine_timeout_seconds" jsonschema:"title=Engine Timeout,description=Per-engine analysis timeout in seconds,default=10" validate:"gte=1"`

	// Weights are the factor fusion weights. They must sum to 1.0.
	Weights combiner.Weights `json:"weights" yaml:"weights" jsonschema:"title=Factor Weights,description=Per-factor fusion weights summing to 1.0"`

	// MaxRiskPerTrade is the equity fraction risked per trade.
	MaxRiskPerTrade float64 `json:"max_risk_per_trade" yaml:"max_risk_per_trade" jsonschema:"title=Max Risk Per Trade,description=Fraction of equity risked on a single trade,default=0.02" validate:"gt=0,lte=0.1"`

	// MaxLeverage is the leverage ceiling for position sizing.
	MaxLeverage float64 `json:"max_leverage" yaml:"max_leverage" jsonschema:"title=Max Leverage,description=Leverage ceiling,default=10" validate:"gte=1"`

	// InitialEquity seeds the paper broker. Ignored for live providers.
	InitialEquity float64 `json:"initial_equity" yaml:"initial_equity" jsonschema:"title=Initial Equity,description=Starting equity for paper trading in USD,default=10000" validate:"gte=0"`

	// HistoryPath is the DuckDB file decisions are recorded into.
	// Empty disables recording.
	HistoryPath string `json:"history_path" yaml:"history_path" jsonschema:"title=History Path,description=DuckDB file for decision history (empty disables recording)"`

	// ListenAddr is the status API bind address. Empty disables the server.
	ListenAddr string `json:"listen_addr" yaml:"listen_addr" jsonschema:"title=Listen Address,description=Status API bind address (empty disables the server)"`

	// BinanceAPIKey and BinanceSecretKey authenticate the binance provider.
	BinanceAPIKey    string `json:"binance_api_key" yaml:"binance_api_key" jsonschema:"title=Binance API Key"`
	BinanceSecretKey string `json:"binance_secret_key" yaml:"binance_secret_key" jsonschema:"title=Binance Secret Key"`

	// PolygonAPIKey authenticates the polygon provider.
	PolygonAPIKey string `json:"polygon_api_key" yaml:"polygon_api_key" jsonschema:"title=Polygon API Key"`

	// MacroEndpoint is an optional JSON endpoint serving macro market data.
	MacroEndpoint string `json:"macro_endpoint" yaml:"macro_endpoint" jsonschema:"title=Macro Endpoint,description=JSON endpoint serving macro market data"`

	// OnChainEndpoint is an optional JSON endpoint serving on-chain metrics.
	OnChainEndpoint string `json:"onchain_endpoint" yaml:"onchain_endpoint" jsonschema:"title=On-Chain Endpoint,description=JSON endpoint serving on-chain sentiment metrics"`
}

// DefaultConfig returns a config suitable for paper trading BTCUSDT.
func DefaultConfig() Config {
	return Config{
		Symbol:                  "BTCUSDT",
		Provider:                ProviderPaper,
		Interval:                "1h",
		DecisionIntervalSeconds: 60,
		EngineTimeoutSeconds:    10,
		Weights:                 combiner.DefaultWeights(),
		MaxRiskPerTrade:         0.02,
		MaxLeverage:             10,
		InitialEquity:           10_000,
	}
}

// LoadConfig reads and validates a YAML config file. Zero-valued fields
// fall back to their defaults before validation.
func LoadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read config file", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(content, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config file", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the config struct tags and the weight sum.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid trader config", err)
	}

	if err := c.Weights.Validate(); err != nil {
		return err
	}

	return nil
}

// DecisionInterval returns the cycle cadence as a duration.
func (c *Config) DecisionInterval() time.Duration {
	return time.Duration(c.DecisionIntervalSeconds) * time.Second
}

// EngineTimeout returns the per-engine analysis timeout as a duration.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.EngineTimeoutSeconds) * time.Second
}

// GenerateSchema returns the JSON schema for Config.
func GenerateSchema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Config{}) //nolint:exhaustruct // Empty config for schema generation

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
