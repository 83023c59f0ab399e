// Package storage provides the optional persistence backends: a PostgreSQL
// audit trail of every classified link and a Redis recheck cache.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkcheck/internal/domain"
)

// ErrNotFound is returned when no audited result exists for a URL.
var ErrNotFound = errors.New("not found")

// AuditStore persists link results so past runs stay queryable.
type AuditStore struct {
	db *pgxpool.Pool
}

func NewAuditStore(connStr string) (*AuditStore, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &AuditStore{db: db}, nil
}

func (s *AuditStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *AuditStore) Close() {
	s.db.Close()
}

// SaveRun batch-inserts every result of one run.
func (s *AuditStore) SaveRun(ctx context.Context, runID string, results []domain.LinkResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(
			`INSERT INTO link_results (run_id, url, line_num, status, confidence, detail, final_url, error, checked_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
			runID, r.Link, r.LineNum, string(r.Status), string(r.Confidence), r.ResultDetails, r.FinalURL, r.Error,
		)
	}
	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	return nil
}

// LatestResult retrieves the most recent audited result for a URL.
func (s *AuditStore) LatestResult(ctx context.Context, url string) (*domain.LinkResult, error) {
	var r domain.LinkResult
	err := s.db.QueryRow(ctx,
		`SELECT url, line_num, status, confidence, detail, final_url, error
		 FROM link_results WHERE url = $1 ORDER BY checked_at DESC LIMIT 1`,
		url,
	).Scan(&r.Link, &r.LineNum, &r.Status, &r.Confidence, &r.ResultDetails, &r.FinalURL, &r.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
