// Package history persists one row per decision cycle into DuckDB so the
// status API can serve recent decisions across restarts.
package history

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

// Recorder appends decision rows to a DuckDB database and serves recent
// decisions back out. Safe for use from the decision loop and the status
// API concurrently; database/sql handles the locking.
type Recorder struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewRecorder opens (or creates) the DuckDB database at path. Use
// ":memory:" for an ephemeral store.
func NewRecorder(path string, l *logger.Logger) (*Recorder, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to open decision history database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to connect to decision history database", err)
	}

	recorder := &Recorder{
		db:     db,
		logger: l,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := recorder.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return recorder, nil
}

func (r *Recorder) initialize() error {
	_, err := r.db.Exec(`CREATE SEQUENCE IF NOT EXISTS decision_id_seq`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to create sequence", err)
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY DEFAULT nextval('decision_id_seq'),
			time TIMESTAMP,
			symbol TEXT,
			action TEXT,
			confidence DOUBLE,
			net_score DOUBLE,
			regime TEXT,
			approved BOOLEAN,
			reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to create decisions table", err)
	}

	return nil
}

// Record appends one decision row.
func (r *Recorder) Record(ctx context.Context, record types.DecisionRecord) error {
	query := r.sq.
		Insert("decisions").
		Columns("time", "symbol", "action", "confidence", "net_score", "regime", "approved", "reason").
		Values(
			record.Time, record.Symbol, string(record.Action), record.Confidence,
			record.NetScore, string(record.Regime), record.Approved, record.Reason,
		).
		RunWith(r.db)

	if _, err := query.ExecContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to insert decision", err)
	}

	r.logger.Debug("decision recorded",
		zap.String("symbol", record.Symbol),
		zap.String("action", string(record.Action)),
		zap.Bool("approved", record.Approved),
	)

	return nil
}

// Recent returns up to limit decisions, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]types.DecisionRecord, error) {
	if limit <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "limit must be positive, got %d", limit)
	}

	query := r.sq.
		Select("time", "symbol", "action", "confidence", "net_score", "regime", "approved", "reason").
		From("decisions").
		OrderBy("id DESC").
		Limit(uint64(limit)).
		RunWith(r.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query decisions", err)
	}
	defer rows.Close()

	records := make([]types.DecisionRecord, 0, limit)

	for rows.Next() {
		var record types.DecisionRecord
		var action, regime string

		if err := rows.Scan(
			&record.Time, &record.Symbol, &action, &record.Confidence,
			&record.NetScore, &regime, &record.Approved, &record.Reason,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan decision row", err)
		}

		record.Action = types.Action(action)
		record.Regime = types.Regime(regime)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate decision rows", err)
	}

	return records, nil
}

// Count returns the total number of recorded decisions.
func (r *Recorder) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM decisions").Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count decisions", err)
	}

	return count, nil
}

// Close releases the underlying database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}
