// Package config loads the crossover configuration from a YAML file, a .env file and the
// process environment, in increasing order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-crossover/internal/broker"
	"github.com/rxtech-lab/argo-crossover/internal/version"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Mode selects the live or the paper account.
type Mode string

const (
	ModeLive  Mode = "live"
	ModePaper Mode = "paper"
)

// Environment variables that override the file.
const (
	EnvHost           = "IB_HOST"
	EnvClientID       = "IB_CLIENT_ID"
	EnvTestID         = "IB_TEST_ID"
	EnvLivePort       = "IB_LIVE_PORT"
	EnvPaperPort      = "IB_PAPER_PORT"
	EnvAPIKey         = "BROKER_API_KEY"
	EnvSecretKey      = "BROKER_SECRET_KEY"
	EnvPaperAPIKey    = "BROKER_PAPER_API_KEY"
	EnvPaperSecretKey = "BROKER_PAPER_SECRET_KEY"
	EnvPolygonAPIKey  = "POLYGON_API_KEY"
)

// StrategyConfig holds the moving-average crossover settings.
type StrategyConfig struct {
	// Symbol is the instrument traded, e.g. SPY or BTCUSDT
	Symbol string `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Instrument to trade" validate:"required"`
	// FastPeriod is the window of the fast moving average
	FastPeriod int `yaml:"fast_period" json:"fast_period" jsonschema:"description=Fast moving average window,default=10" validate:"gt=0"`
	// SlowPeriod is the window of the slow moving average
	SlowPeriod int `yaml:"slow_period" json:"slow_period" jsonschema:"description=Slow moving average window,default=30" validate:"gt=0"`
	// Quantity is the size of every order
	Quantity int `yaml:"quantity" json:"quantity" jsonschema:"description=Order size,default=10" validate:"gt=0"`
	// Duration is the lookback window of historical bars, e.g. "60 D"
	Duration string `yaml:"duration" json:"duration" jsonschema:"description=Lookback window such as 60 D,default=60 D" validate:"required"`
	// BarSize is the interval of one bar, e.g. "1 hour"
	BarSize string `yaml:"bar_size" json:"bar_size" jsonschema:"description=Bar interval such as 1 hour,default=1 hour" validate:"required"`
	// DataType is the price series the bars are built from
	DataType string `yaml:"data_type" json:"data_type" jsonschema:"description=Price series of the bars,default=TRADES" validate:"required"`
	// Trade enables order submission. Without it decisions are only logged.
	Trade bool `yaml:"trade" json:"trade" jsonschema:"description=Submit orders instead of only logging them,default=false"`
}

// MarketDataConfig selects where bars come from.
type MarketDataConfig struct {
	Provider      string `yaml:"provider" json:"provider" jsonschema:"enum=binance,enum=polygon,enum=csv,default=binance" validate:"oneof=binance polygon csv"`
	PolygonAPIKey string `yaml:"polygon_api_key" json:"polygon_api_key" jsonschema:"description=Polygon.io API key" validate:"required_if=Provider polygon"`
	CSVPath       string `yaml:"csv_path" json:"csv_path" jsonschema:"description=CSV file read by the csv provider" validate:"required_if=Provider csv"`
	// BaseURL overrides the binance market data endpoint
	BaseURL string `yaml:"base_url" json:"base_url" jsonschema:"description=Override of the market data endpoint" validate:"omitempty,url"`
}

// BrokerConfig describes the brokerage connection for both modes.
type BrokerConfig struct {
	Type string `yaml:"type" json:"type" jsonschema:"enum=binance,enum=paper,default=paper" validate:"oneof=binance paper"`
	Mode Mode   `yaml:"mode" json:"mode" jsonschema:"enum=live,enum=paper,default=paper" validate:"oneof=live paper"`
	// Host and the port of the selected mode replace the exchange endpoint when Host is set
	Host      string `yaml:"host" json:"host" jsonschema:"description=Gateway host overriding the exchange endpoint"`
	LivePort  int    `yaml:"live_port" json:"live_port" jsonschema:"default=7496" validate:"gte=0,lte=65535"`
	PaperPort int    `yaml:"paper_port" json:"paper_port" jsonschema:"default=7497" validate:"gte=0,lte=65535"`
	ClientID  int    `yaml:"client_id" json:"client_id" jsonschema:"description=Client id used in live mode"`
	TestID    int    `yaml:"test_id" json:"test_id" jsonschema:"description=Client id used in paper mode"`

	APIKey         string `yaml:"api_key" json:"api_key" jsonschema:"description=Live account API key"`
	SecretKey      string `yaml:"secret_key" json:"secret_key" jsonschema:"description=Live account secret key"`
	PaperAPIKey    string `yaml:"paper_api_key" json:"paper_api_key" jsonschema:"description=Paper account API key"`
	PaperSecretKey string `yaml:"paper_secret_key" json:"paper_secret_key" jsonschema:"description=Paper account secret key"`
	// BaseAsset overrides the asset positions are read from
	BaseAsset string `yaml:"base_asset" json:"base_asset" jsonschema:"description=Asset holding the position, derived from the symbol when empty"`
}

// LedgerConfig locates the fill ledger.
type LedgerConfig struct {
	// Path of the DuckDB file. Empty disables the ledger, ":memory:" keeps it in memory.
	Path string `yaml:"path" json:"path" jsonschema:"description=DuckDB file storing fills"`
}

// Config is the whole configuration file.
type Config struct {
	// Version is the crossover version the file was written for. Empty skips the check.
	Version    string           `yaml:"version" json:"version" jsonschema:"description=Crossover version the file was written for"`
	LogLevel   string           `yaml:"log_level" json:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"oneof=debug info warn error"`
	Strategy   StrategyConfig   `yaml:"strategy" json:"strategy"`
	MarketData MarketDataConfig `yaml:"market_data" json:"market_data"`
	Broker     BrokerConfig     `yaml:"broker" json:"broker"`
	Ledger     LedgerConfig     `yaml:"ledger" json:"ledger"`
}

// Default returns the configuration used when a field is not set anywhere.
func Default() Config {
	return Config{
		Version:  "",
		LogLevel: "info",
		Strategy: StrategyConfig{
			Symbol:     "",
			FastPeriod: 10,
			SlowPeriod: 30,
			Quantity:   10,
			Duration:   "60 D",
			BarSize:    "1 hour",
			DataType:   "TRADES",
			Trade:      false,
		},
		MarketData: MarketDataConfig{
			Provider:      "binance",
			PolygonAPIKey: "",
			CSVPath:       "",
			BaseURL:       "",
		},
		Broker: BrokerConfig{
			Type:           "paper",
			Mode:           ModePaper,
			Host:           "",
			LivePort:       7496,
			PaperPort:      7497,
			ClientID:       0,
			TestID:         0,
			APIKey:         "",
			SecretKey:      "",
			PaperAPIKey:    "",
			PaperSecretKey: "",
			BaseAsset:      "",
		},
		Ledger: LedgerConfig{Path: ""},
	}
}

// Load reads the YAML file at path on top of Default, then the .env files, then the
// environment. An empty path skips the file. Missing .env files are ignored.
// The result is not validated: call Validate once command-line overrides are applied.
func Load(path string, envFiles ...string) (Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config %s", path)
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	if err := config.applyEnv(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// loadEnvFiles loads the existing files among envFiles, or ./.env when none are given.
// Variables already set in the environment win.
func loadEnvFiles(envFiles []string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	existing := make([]string, 0, len(envFiles))

	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to load .env", err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	stringVars := map[string]*string{
		EnvHost:           &c.Broker.Host,
		EnvAPIKey:         &c.Broker.APIKey,
		EnvSecretKey:      &c.Broker.SecretKey,
		EnvPaperAPIKey:    &c.Broker.PaperAPIKey,
		EnvPaperSecretKey: &c.Broker.PaperSecretKey,
		EnvPolygonAPIKey:  &c.MarketData.PolygonAPIKey,
	}

	for name, field := range stringVars {
		if v, ok := os.LookupEnv(name); ok {
			*field = v
		}
	}

	intVars := map[string]*int{
		EnvClientID:  &c.Broker.ClientID,
		EnvTestID:    &c.Broker.TestID,
		EnvLivePort:  &c.Broker.LivePort,
		EnvPaperPort: &c.Broker.PaperPort,
	}

	for name, field := range intVars {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "%s must be an integer, got %q", name, v)
		}

		*field = n
	}

	return nil
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return version.CheckConfigCompatibility(version.GetVersion(), c.Version)
}

// Endpoint is the resolved connection for the configured mode.
type Endpoint struct {
	Mode      Mode
	Host      string
	Port      int
	ClientID  int
	APIKey    string
	SecretKey string
	// BaseURL is the REST endpoint: the gateway when Host is set, else the exchange.
	BaseURL string
}

// Endpoint resolves the connection of the configured mode. Live uses the live port, the
// client id and the live keys. Paper uses the paper port, the test id and the paper keys.
func (b BrokerConfig) Endpoint() Endpoint {
	endpoint := Endpoint{
		Mode:      b.Mode,
		Host:      b.Host,
		Port:      b.PaperPort,
		ClientID:  b.TestID,
		APIKey:    b.PaperAPIKey,
		SecretKey: b.PaperSecretKey,
		BaseURL:   broker.BinanceTestnetURL,
	}

	if b.Mode == ModeLive {
		endpoint.Port = b.LivePort
		endpoint.ClientID = b.ClientID
		endpoint.APIKey = b.APIKey
		endpoint.SecretKey = b.SecretKey
		endpoint.BaseURL = broker.BinanceLiveURL
	}

	if b.Host != "" {
		endpoint.BaseURL = fmt.Sprintf("http://%s:%d", b.Host, endpoint.Port)
	}

	return endpoint
}

// Schema returns the JSON schema of the configuration file.
func Schema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Config{}) //nolint:exhaustruct // Empty config for schema generation

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}
