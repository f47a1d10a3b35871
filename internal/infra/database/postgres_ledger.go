// internal/infra/database/postgres_ledger.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"bill_reminder_service/internal/domain/reminder"
)

// PostgresLedger stores dispatch records in the dispatch_records table. The
// table carries a unique constraint on (bill_id, tier, sent_on); Record leans
// on it with ON CONFLICT DO NOTHING so the write stays conditional rather
// than read-then-write.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) AlreadySent(ctx context.Context, billID string, tier reminder.Tier, day string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM dispatch_records WHERE bill_id = $1 AND tier = $2 AND sent_on = $3)`
	var exists bool
	err := l.db.QueryRowContext(ctx, query, billID, string(tier), day).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking dispatch record: %w", err)
	}
	return exists, nil
}

func (l *PostgresLedger) Record(ctx context.Context, rec *reminder.DispatchRecord) error {
	query := `INSERT INTO dispatch_records (bill_id, tier, sent_on, delivery_id, sent_at)
               VALUES ($1, $2, $3, $4, $5)
               ON CONFLICT (bill_id, tier, sent_on) DO NOTHING`
	res, err := l.db.ExecContext(ctx, query, rec.BillID, string(rec.Tier), rec.Day, rec.DeliveryID, rec.SentAt)
	if err != nil {
		return fmt.Errorf("error inserting dispatch record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected for dispatch record: %w", err)
	}
	if affected == 0 {
		return reminder.ErrAlreadyRecorded
	}
	return nil
}
