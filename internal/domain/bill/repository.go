package bill

import (
	"context"
	"time"
)

// Repository defines read access to accounts and their bills, plus the
// reminder-flag cache update. Implementations must exclude bills without a
// due date from ListDueByAccount; a bill that cannot be classified has no
// business reaching the scheduler.
type Repository interface {
	ListAccounts(ctx context.Context) ([]*Account, error)
	ListDueByAccount(ctx context.Context, accountID string) ([]*Bill, error)
	// MarkReminderSent appends tier to the bill's reminder-flag cache.
	// Best-effort: the dispatch ledger already holds the authoritative record.
	MarkReminderSent(ctx context.Context, billID string, tier string, sentAt time.Time, daysLeft int) error
}
