package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertRunSQL = `INSERT INTO scan_runs (
        started_at,
        processed,
        succeeded,
        failed,
        skipped
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id, created_at;`

	insertResultSQL = `INSERT INTO scan_results (
        run_id,
        ticker,
        bullish_signal,
        confidence_score,
        stage,
        tier,
        status,
        risk_reward,
        payload
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING id, created_at;`

	listRecentResultsSQL = `SELECT
        id,
        run_id,
        ticker,
        bullish_signal,
        confidence_score,
        stage,
        tier,
        status,
        risk_reward,
        payload,
        created_at
    FROM scan_results
    ORDER BY created_at DESC
    LIMIT $1;`

	listRecentRunsSQL = `SELECT
        id,
        started_at,
        processed,
        succeeded,
        failed,
        skipped,
        created_at
    FROM scan_runs
    ORDER BY started_at DESC
    LIMIT $1;`

	countResultsSQL = `SELECT COUNT(*) FROM scan_results;`
)

// RunStore defines operations for scan run bookkeeping.
type RunStore interface {
	InsertRun(ctx context.Context, run ScanRun) (ScanRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]ScanRun, error)
}

// ResultStore defines operations for per-ticker result persistence.
type ResultStore interface {
	InsertResult(ctx context.Context, rec ScanRecord) (ScanRecord, error)
	ListRecentResults(ctx context.Context, limit int) ([]ScanRecord, error)
	CountResults(ctx context.Context) (int64, error)
}

// Store aggregates access to scan runs and results.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertRun persists a scan run summary and returns the stored row.
func (s *Store) InsertRun(ctx context.Context, run ScanRun) (ScanRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return ScanRun{}, err
	}

	row := pool.QueryRow(ctx, insertRunSQL,
		run.StartedAt,
		run.Processed,
		run.Succeeded,
		run.Failed,
		run.Skipped,
	)

	stored := run
	if scanErr := row.Scan(&stored.ID, &stored.CreatedAt); scanErr != nil {
		return ScanRun{}, fmt.Errorf("insert scan run: %w", scanErr)
	}
	return stored, nil
}

// ListRecentRuns lists the most recent runs ordered by start time.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]ScanRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]ScanRun, 0, limit)
	for rows.Next() {
		var run ScanRun
		if err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.Processed,
			&run.Succeeded,
			&run.Failed,
			&run.Skipped,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// InsertResult persists a per-ticker scan outcome.
func (s *Store) InsertResult(ctx context.Context, rec ScanRecord) (ScanRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return ScanRecord{}, err
	}

	var riskReward interface{}
	if rec.RiskReward != nil {
		riskReward = rec.RiskReward.String()
	}

	row := pool.QueryRow(ctx, insertResultSQL,
		rec.RunID,
		rec.Ticker,
		rec.BullishSignal,
		rec.ConfidenceScore,
		rec.Stage,
		rec.Tier,
		rec.Status,
		riskReward,
		[]byte(rec.Payload),
	)

	stored := rec
	if scanErr := row.Scan(&stored.ID, &stored.CreatedAt); scanErr != nil {
		return ScanRecord{}, fmt.Errorf("insert scan result: %w", scanErr)
	}
	return stored, nil
}

// ListRecentResults lists the most recent results ordered by creation time.
func (s *Store) ListRecentResults(ctx context.Context, limit int) ([]ScanRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentResultsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent results: %w", queryErr)
	}
	defer rows.Close()

	records := make([]ScanRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanResultRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountResults counts stored results.
func (s *Store) CountResults(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countResultsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count results: %w", scanErr)
	}
	return count, nil
}

func scanResultRow(rows pgx.Rows) (ScanRecord, error) {
	var (
		rec           ScanRecord
		riskRewardStr sql.NullString
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.Ticker,
		&rec.BullishSignal,
		&rec.ConfidenceScore,
		&rec.Stage,
		&rec.Tier,
		&rec.Status,
		&riskRewardStr,
		&rec.Payload,
		&rec.CreatedAt,
	); err != nil {
		return ScanRecord{}, err
	}

	if riskRewardStr.Valid {
		value, convErr := decimal.NewFromString(riskRewardStr.String)
		if convErr != nil {
			return ScanRecord{}, fmt.Errorf("parse risk reward: %w", convErr)
		}
		rec.RiskReward = &value
	}

	return rec, nil
}
