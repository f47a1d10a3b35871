// internal/infra/database/postgres_run_log.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"bill_reminder_service/internal/app"
)

// PostgresRunLog persists one summary row per orchestration pass for
// operator auditing.
type PostgresRunLog struct {
	db *sql.DB
}

func NewPostgresRunLog(db *sql.DB) *PostgresRunLog {
	return &PostgresRunLog{db: db}
}

func (r *PostgresRunLog) SaveRunSummary(ctx context.Context, report *app.RunReport) error {
	query := `INSERT INTO run_logs (run_id, started_at, finished_at, scanned, sent, skipped_no_tier, skipped_already_sent, error_count)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		report.RunID, report.StartedAt, report.FinishedAt,
		report.Scanned, report.Sent, report.SkippedNoTier, report.SkippedAlreadySent,
		report.ErrorCount(),
	)
	if err != nil {
		return fmt.Errorf("error inserting run log: %w", err)
	}
	return nil
}
