package reminder

import (
	"context"
	"fmt"
	"time"
)

// ErrAlreadyRecorded is returned by Ledger.Record when a successful dispatch
// record already exists for the same (bill, tier, day) triple.
var ErrAlreadyRecorded = fmt.Errorf("dispatch record already exists for this bill, tier and day")

// DispatchRecord is the append-only fact that a reminder was delivered.
// At most one record may exist per (BillID, Tier, Day); the ledger enforces
// this with a conditional write.
type DispatchRecord struct {
	BillID     string
	Tier       Tier
	Day        string // calendar day in the reminder timezone, "2006-01-02"
	DeliveryID string
	SentAt     time.Time
}

// Ledger is the authoritative idempotency store for dispatched reminders.
// The reminder-flag cache on the bill entity must never override it.
type Ledger interface {
	// AlreadySent reports whether a successful dispatch record exists for the
	// triple. An error means "unknown"; callers must then skip sending.
	AlreadySent(ctx context.Context, billID string, tier Tier, day string) (bool, error)
	// Record writes rec conditionally. It returns ErrAlreadyRecorded when a
	// record for the same triple won the race first.
	Record(ctx context.Context, rec *DispatchRecord) error
}
