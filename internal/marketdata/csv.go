package marketdata

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
)

// CSVProvider serves bars from a CSV file with the columns
// time,symbol,open,high,low,close,volume. Times are RFC 3339.
//
// The bar size and data type of a query are validated but not used to resample:
// the file is served at the resolution it was written with.
type CSVProvider struct {
	path string
}

// NewCSVProvider creates a provider for the file at path.
func NewCSVProvider(path string) (*CSVProvider, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "csv path is required")
	}

	return &CSVProvider{path: path}, nil
}

// Bars reads the file and keeps the rows of q.Symbol inside the query window.
// Rows without a symbol are treated as belonging to every symbol. A kept row with a NaN or
// infinite value fails with ErrCodeMarketDataParseFailed.
func (p *CSVProvider) Bars(ctx context.Context, q Query) ([]types.Bar, error) {
	start, end, err := q.Window()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(p.path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open %s", p.path)
	}
	defer file.Close()

	var rows []types.Bar
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse %s", p.path)
	}

	bars := make([]types.Bar, 0, len(rows))

	for _, row := range rows {
		if row.Symbol != "" && !strings.EqualFold(row.Symbol, q.Symbol) {
			continue
		}

		if row.Time.Before(start) || row.Time.After(end) {
			continue
		}

		if !row.Finite() {
			return nil, errors.Newf(errors.ErrCodeMarketDataParseFailed,
				"bar at %s in %s has a non-finite value", row.Time.Format(time.RFC3339), p.path)
		}

		row.Symbol = q.Symbol
		bars = append(bars, row)
	}

	return normalize(bars), nil
}
