package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-crossover/internal/broker"
	"github.com/rxtech-lab/argo-crossover/internal/version"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

var allEnvVars = []string{
	EnvHost, EnvClientID, EnvTestID, EnvLivePort, EnvPaperPort,
	EnvAPIKey, EnvSecretKey, EnvPaperAPIKey, EnvPaperSecretKey, EnvPolygonAPIKey,
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()

	// Setenv registers the restore, Unsetenv clears whatever the developer has exported.
	for _, name := range allEnvVars {
		suite.T().Setenv(name, "")
		os.Unsetenv(name)
	}
}

func (suite *ConfigTestSuite) write(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (suite *ConfigTestSuite) TestDefault() {
	config := Default()

	suite.Equal(10, config.Strategy.FastPeriod)
	suite.Equal(30, config.Strategy.SlowPeriod)
	suite.Equal(10, config.Strategy.Quantity)
	suite.Equal("60 D", config.Strategy.Duration)
	suite.Equal("1 hour", config.Strategy.BarSize)
	suite.Equal("TRADES", config.Strategy.DataType)
	suite.False(config.Strategy.Trade)
	suite.Equal(ModePaper, config.Broker.Mode)
	suite.Equal("paper", config.Broker.Type)
}

func (suite *ConfigTestSuite) TestLoadFile() {
	path := suite.write("config.yaml", `
log_level: debug
strategy:
  symbol: SPY
  fast_period: 5
  quantity: 3
market_data:
  provider: polygon
  polygon_api_key: from-file
broker:
  type: binance
  mode: live
`)

	config, err := Load(path, filepath.Join(suite.dir, "missing.env"))
	suite.Require().NoError(err)
	suite.NoError(config.Validate())

	suite.Equal("debug", config.LogLevel)
	suite.Equal("SPY", config.Strategy.Symbol)
	suite.Equal(5, config.Strategy.FastPeriod)
	suite.Equal(30, config.Strategy.SlowPeriod, "unset fields keep their defaults")
	suite.Equal(3, config.Strategy.Quantity)
	suite.Equal("from-file", config.MarketData.PolygonAPIKey)
	suite.Equal(ModeLive, config.Broker.Mode)
}

func (suite *ConfigTestSuite) TestEnvOverridesFile() {
	path := suite.write("config.yaml", "strategy:\n  symbol: SPY\nmarket_data:\n  polygon_api_key: from-file\n")
	suite.T().Setenv(EnvPolygonAPIKey, "from-env")
	suite.T().Setenv(EnvLivePort, "4001")
	suite.T().Setenv(EnvClientID, "7")

	config, err := Load(path, filepath.Join(suite.dir, "missing.env"))
	suite.Require().NoError(err)

	suite.Equal("from-env", config.MarketData.PolygonAPIKey)
	suite.Equal(4001, config.Broker.LivePort)
	suite.Equal(7, config.Broker.ClientID)
}

func (suite *ConfigTestSuite) TestDotEnv() {
	envFile := suite.write("test.env", "IB_HOST=127.0.0.1\nIB_PAPER_PORT=7500\nIB_TEST_ID=99\nBROKER_PAPER_API_KEY=pk\nBROKER_PAPER_SECRET_KEY=ps\n")

	config, err := Load("", envFile)
	suite.Require().NoError(err)

	suite.Equal("127.0.0.1", config.Broker.Host)
	suite.Equal(7500, config.Broker.PaperPort)
	suite.Equal(99, config.Broker.TestID)
	suite.Equal("pk", config.Broker.PaperAPIKey)
}

func (suite *ConfigTestSuite) TestInvalidEnvInteger() {
	suite.T().Setenv(EnvPaperPort, "seventy")

	_, err := Load("", filepath.Join(suite.dir, "missing.env"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
	suite.Contains(err.Error(), EnvPaperPort)
}

func (suite *ConfigTestSuite) TestLoadErrors() {
	_, err := Load(filepath.Join(suite.dir, "missing.yaml"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	path := suite.write("bad.yaml", "strategy: [not, a, map]\n")
	_, err = Load(path, filepath.Join(suite.dir, "missing.env"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestValidate() {
	config := Default()
	suite.Error(config.Validate(), "symbol is required")

	config.Strategy.Symbol = "SPY"
	suite.NoError(config.Validate())

	invalid := config
	invalid.Strategy.Quantity = 0
	suite.True(errors.HasCode(invalid.Validate(), errors.ErrCodeInvalidConfiguration))

	invalid = config
	invalid.Broker.Mode = "demo"
	suite.Error(invalid.Validate())

	invalid = config
	invalid.MarketData.Provider = "polygon"
	suite.Error(invalid.Validate(), "polygon needs an api key")

	invalid.MarketData.PolygonAPIKey = "key"
	suite.NoError(invalid.Validate())

	equal := config
	equal.Strategy.FastPeriod = 30
	suite.NoError(equal.Validate())
}

func (suite *ConfigTestSuite) TestValidateVersion() {
	previous := version.Version
	version.Version = "1.4.2"
	defer func() { version.Version = previous }()

	config := Default()
	config.Strategy.Symbol = "SPY"

	config.Version = "1.4.0"
	suite.NoError(config.Validate())

	config.Version = "2.0.0"
	suite.True(errors.HasCode(config.Validate(), errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestEndpointPaper() {
	b := BrokerConfig{
		Mode:           ModePaper,
		LivePort:       7496,
		PaperPort:      7497,
		ClientID:       1,
		TestID:         2,
		APIKey:         "live-key",
		SecretKey:      "live-secret",
		PaperAPIKey:    "paper-key",
		PaperSecretKey: "paper-secret",
	}

	endpoint := b.Endpoint()
	suite.Equal(ModePaper, endpoint.Mode)
	suite.Equal(7497, endpoint.Port)
	suite.Equal(2, endpoint.ClientID)
	suite.Equal("paper-key", endpoint.APIKey)
	suite.Equal("paper-secret", endpoint.SecretKey)
	suite.Equal(broker.BinanceTestnetURL, endpoint.BaseURL)
}

func (suite *ConfigTestSuite) TestEndpointLive() {
	b := BrokerConfig{
		Mode:        ModeLive,
		LivePort:    7496,
		PaperPort:   7497,
		ClientID:    1,
		TestID:      2,
		APIKey:      "live-key",
		SecretKey:   "live-secret",
		PaperAPIKey: "paper-key",
	}

	endpoint := b.Endpoint()
	suite.Equal(7496, endpoint.Port)
	suite.Equal(1, endpoint.ClientID)
	suite.Equal("live-key", endpoint.APIKey)
	suite.Equal(broker.BinanceLiveURL, endpoint.BaseURL)
}

func (suite *ConfigTestSuite) TestEndpointHostOverride() {
	b := Default().Broker
	b.Host = "127.0.0.1"

	suite.Equal("http://127.0.0.1:7497", b.Endpoint().BaseURL)

	b.Mode = ModeLive
	suite.Equal("http://127.0.0.1:7496", b.Endpoint().BaseURL)
}

func (suite *ConfigTestSuite) TestSchema() {
	schema, err := Schema()
	suite.NoError(err)

	var parsed map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &parsed))
	suite.Contains(parsed, "properties")

	properties := parsed["properties"].(map[string]any)
	suite.Contains(properties, "strategy")
	suite.Contains(properties, "broker")
}
