// Package export writes analysis results for plotting and reporting.
package export

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SeriesRow is one CSV row of an annotated series. Empty buy/sell/strategy cells mean None.
type SeriesRow struct {
	Time           string `csv:"time"`
	Close          string `csv:"close"`
	FastMA         string `csv:"fast_ma"`
	SlowMA         string `csv:"slow_ma"`
	Signal         string `csv:"signal"`
	BuyPrice       string `csv:"buy_price"`
	SellPrice      string `csv:"sell_price"`
	AssetReturn    string `csv:"asset_return"`
	StrategyReturn string `csv:"strategy_return"`
}

// SeriesRows pairs every row of series with its return point. returns may be nil.
func SeriesRows(series []types.SignalState, returns []types.ReturnPoint) []SeriesRow {
	rows := make([]SeriesRow, len(series))

	for i, s := range series {
		rows[i] = SeriesRow{
			Time:           s.Time.UTC().Format(time.RFC3339),
			Close:          formatFloat(s.Close),
			FastMA:         formatFloat(s.FastMA),
			SlowMA:         formatFloat(s.SlowMA),
			Signal:         string(s.Signal),
			BuyPrice:       formatOption(s.BuyPrice),
			SellPrice:      formatOption(s.SellPrice),
			AssetReturn:    "",
			StrategyReturn: "",
		}

		if i < len(returns) {
			rows[i].AssetReturn = formatFloat(returns[i].AssetReturn)
			rows[i].StrategyReturn = formatOption(returns[i].StrategyReturn)
		}
	}

	return rows
}

// WriteSeriesCSV writes series and its return comparison to w.
func WriteSeriesCSV(w io.Writer, series []types.SignalState, returns []types.ReturnPoint) error {
	rows := SeriesRows(series, returns)

	if err := gocsv.Marshal(&rows, w); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to write series csv", err)
	}

	return nil
}

// WriteSeriesCSVFile writes the series CSV to path, replacing any existing file.
func WriteSeriesCSVFile(path string, series []types.SignalState, returns []types.ReturnPoint) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to create %s", path)
	}

	if err := WriteSeriesCSV(file, series, returns); err != nil {
		_ = file.Close()

		return err
	}

	if err := file.Close(); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to close %s", path)
	}

	return nil
}

// WriteSummaryYAML writes summary to path as YAML.
func WriteSummaryYAML(path string, summary types.PerformanceSummary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to encode summary", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to write %s", path)
	}

	return nil
}

// ReadSummaryYAML reads a summary written by WriteSummaryYAML.
func ReadSummaryYAML(path string) (types.PerformanceSummary, error) {
	var summary types.PerformanceSummary

	data, err := os.ReadFile(path)
	if err != nil {
		return summary, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read %s", path)
	}

	if err := yaml.Unmarshal(data, &summary); err != nil {
		return summary, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to decode %s", path)
	}

	return summary, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOption(v optional.Option[float64]) string {
	if v.IsNone() {
		return ""
	}

	return formatFloat(v.Unwrap())
}
