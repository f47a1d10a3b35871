// internal/infra/database/postgres_bill_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bill_reminder_service/internal/domain/bill"

	"github.com/lib/pq" // For pq.Array and driver registration
)

// Custom errors specific to the bill repository
var ErrAccountNotFound = fmt.Errorf("account not found")
var ErrBillNotFound = fmt.Errorf("bill not found")

type PostgresBillRepository struct {
	db *sql.DB
}

func NewPostgresBillRepository(db *sql.DB) *PostgresBillRepository {
	return &PostgresBillRepository{db: db}
}

func (r *PostgresBillRepository) ListAccounts(ctx context.Context) ([]*bill.Account, error) {
	query := `SELECT id, email FROM accounts WHERE email IS NOT NULL AND email != '' ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*bill.Account, 0)
	for rows.Next() {
		a := bill.Account{}
		if err := rows.Scan(&a.ID, &a.Address); err != nil {
			return nil, fmt.Errorf("error scanning account row: %w", err)
		}
		accounts = append(accounts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// ListDueByAccount returns the account's bills that carry a due date. Bills
// without one cannot be classified and are excluded here, at the data-model
// boundary, rather than by conditionals downstream.
func (r *PostgresBillRepository) ListDueByAccount(ctx context.Context, accountID string) ([]*bill.Bill, error) {
	query := `SELECT id, account_id, invoice_number, supplier_name, amount, due_date, reminder_flags, created_at, updated_at
               FROM bills
               WHERE account_id = $1 AND due_date IS NOT NULL
               ORDER BY due_date ASC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("error querying bills for account %s: %w", accountID, err)
	}
	defer rows.Close()
	return scanBills(rows)
}

// MarkReminderSent appends tier to the bill's reminder-flag cache and stamps
// the last-reminder columns. The guard in the WHERE clause keeps the array
// free of duplicate tiers; zero rows affected just means the flag was already
// cached.
func (r *PostgresBillRepository) MarkReminderSent(ctx context.Context, billID string, tier string, sentAt time.Time, daysLeft int) error {
	query := `UPDATE bills
               SET reminder_flags = array_append(reminder_flags, $2),
                   last_reminder_at = $3,
                   last_reminder_days_left = $4,
                   updated_at = NOW()
               WHERE id = $1 AND NOT ($2 = ANY(reminder_flags))`
	_, err := r.db.ExecContext(ctx, query, billID, tier, sentAt, daysLeft)
	if err != nil {
		return fmt.Errorf("error updating reminder flags for bill %s: %w", billID, err)
	}
	return nil
}

func scanBills(rows *sql.Rows) ([]*bill.Bill, error) {
	bills := make([]*bill.Bill, 0)
	for rows.Next() {
		b := bill.Bill{}
		var invoiceNumber, supplierName sql.NullString
		if err := rows.Scan(
			&b.ID, &b.AccountID, &invoiceNumber, &supplierName, &b.Amount,
			&b.DueDate, pq.Array(&b.ReminderFlags), &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning bill row: %w", err)
		}
		b.InvoiceNumber = invoiceNumber.String
		b.SupplierName = supplierName.String
		bills = append(bills, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bill rows: %w", err)
	}
	return bills, nil
}
