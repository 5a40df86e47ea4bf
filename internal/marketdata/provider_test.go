package marketdata

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ProviderTestSuite struct {
	suite.Suite
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}

func (suite *ProviderTestSuite) TestNewProvider() {
	provider, err := NewProvider(ProviderBinance, ProviderConfig{})
	suite.NoError(err)
	suite.IsType(&BinanceProvider{}, provider)

	provider, err = NewProvider(ProviderPolygon, ProviderConfig{PolygonAPIKey: "key"})
	suite.NoError(err)
	suite.IsType(&PolygonProvider{}, provider)

	provider, err = NewProvider(ProviderCSV, ProviderConfig{CSVPath: "bars.csv"})
	suite.NoError(err)
	suite.IsType(&CSVProvider{}, provider)

	_, err = NewProvider(ProviderPolygon, ProviderConfig{})
	suite.Error(err)

	_, err = NewProvider("ib", ProviderConfig{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
}

func (suite *ProviderTestSuite) TestNormalize() {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.Bar{
		{Time: t0.Add(2 * time.Hour), Close: 3},
		{Time: t0, Close: 1},
		{Time: t0.Add(time.Hour), Close: 2},
		{Time: t0, Close: 99},
	}

	result := normalize(bars)
	suite.Require().Len(result, 3)
	suite.Equal(1.0, result[0].Close)
	suite.Equal(2.0, result[1].Close)
	suite.Equal(3.0, result[2].Close)

	suite.Empty(normalize(nil))
}
