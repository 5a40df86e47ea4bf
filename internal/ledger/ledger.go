// Package ledger keeps the fills the strategy received so that performance can be
// evaluated later against current prices.
package ledger

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-crossover/internal/logger"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"go.uber.org/zap"
)

// MemoryPath opens a ledger that lives only as long as the process.
const MemoryPath = ":memory:"

// Ledger stores fills.
type Ledger interface {
	// Record stores fill.
	Record(ctx context.Context, fill types.Fill) error
	// Fills returns the fills of symbol, oldest first. An empty symbol returns every fill.
	Fills(ctx context.Context, symbol string) ([]types.Fill, error)
	Close() error
}

// DuckDBLedger stores fills in a DuckDB database file.
type DuckDBLedger struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	mu     sync.Mutex
}

// Open opens or creates the ledger at path. Use MemoryPath for a throwaway ledger.
func Open(path string, log *logger.Logger) (*DuckDBLedger, error) {
	if log == nil {
		log = logger.NewNop()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		log.Error("Failed to open ledger", zap.String("path", path), zap.Error(err))

		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open ledger %s", path)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to connect to ledger %s", path)
	}

	ledger := &DuckDBLedger{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		mu:     sync.Mutex{},
	}

	if err := ledger.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return ledger, nil
}

func (l *DuckDBLedger) initialize() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS fills (
			id TEXT PRIMARY KEY,
			order_id TEXT,
			symbol TEXT,
			action TEXT,
			quantity INTEGER,
			fill_price DOUBLE,
			status TEXT,
			filled_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to create fills table", err)
	}

	return nil
}

func (l *DuckDBLedger) Record(ctx context.Context, fill types.Fill) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	query, args, err := l.sq.
		Insert("fills").
		Columns("id", "order_id", "symbol", "action", "quantity", "fill_price", "status", "filled_at").
		Values(
			uuid.NewString(), fill.OrderID, fill.Symbol, string(fill.Action), fill.Quantity,
			fill.FillPrice, string(fill.Status), fill.FilledAt.UTC(),
		).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to build insert", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeLedgerWriteFailed, err, "failed to record fill of order %s", fill.OrderID)
	}

	l.logger.Debug("Fill recorded",
		zap.String("order_id", fill.OrderID),
		zap.String("symbol", fill.Symbol),
		zap.String("status", string(fill.Status)),
	)

	return nil
}

func (l *DuckDBLedger) Fills(ctx context.Context, symbol string) ([]types.Fill, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	builder := l.sq.
		Select("order_id", "symbol", "action", "quantity", "fill_price", "status", "filled_at").
		From("fills").
		OrderBy("filled_at ASC", "order_id ASC")

	if symbol != "" {
		builder = builder.Where(squirrel.Eq{"symbol": symbol})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerReadFailed, "failed to build select", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerReadFailed, "failed to query fills", err)
	}
	defer rows.Close()

	fills := make([]types.Fill, 0)

	for rows.Next() {
		var (
			fill     types.Fill
			filledAt time.Time
		)

		err := rows.Scan(
			&fill.OrderID,
			&fill.Symbol,
			&fill.Action,
			&fill.Quantity,
			&fill.FillPrice,
			&fill.Status,
			&filledAt,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeLedgerReadFailed, "failed to scan fill", err)
		}

		fill.FilledAt = filledAt.UTC()
		fills = append(fills, fill)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerReadFailed, "failed to read fills", err)
	}

	return fills, nil
}

func (l *DuckDBLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Close()
}

// Ensure DuckDBLedger implements Ledger.
var _ Ledger = (*DuckDBLedger)(nil)
