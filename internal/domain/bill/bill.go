package bill

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is an owner of bills. Accounts are created and managed by the
// billing subsystem; this service only reads them to know where to deliver
// reminders.
type Account struct {
	ID      string
	Address string // delivery address: an email, or a chat ID for Telegram
}

// Bill represents a single payable obligation with a due date.
// Bills are created/updated by the invoice subsystem; this service reads the
// core fields and only writes the reminder-flag cache columns.
type Bill struct {
	ID            string
	AccountID     string
	InvoiceNumber string
	SupplierName  string
	Amount        decimal.Decimal
	DueDate       time.Time // zero value means no due date; such bills are never scheduled
	// ReminderFlags caches which urgency tiers have already produced a
	// reminder. The dispatch ledger is authoritative; this is a fast-path
	// hint only and may lag behind it.
	ReminderFlags []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Label returns the human-facing name used in reminder copy.
func (b *Bill) Label() string {
	if b.SupplierName != "" {
		return b.SupplierName
	}
	return "Bill"
}
