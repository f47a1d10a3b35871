package redisledger

import (
	"context"
	"fmt"
	"time"

	"bill_reminder_service/internal/domain/reminder"

	"github.com/redis/go-redis/v9"
)

// defaultTTL keeps records well past the day they guard; re-send eligibility
// only ever looks at the current calendar day.
const defaultTTL = 7 * 24 * time.Hour

// Ledger implements the dispatch ledger on Redis. SET NX gives the
// conditional write: only one run can claim a (bill, tier, day) key.
type Ledger struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewLedger(client redis.UniversalClient) *Ledger {
	return &Ledger{client: client, ttl: defaultTTL}
}

func key(billID string, tier reminder.Tier, day string) string {
	return fmt.Sprintf("reminders:dispatch:%s:%s:%s", billID, tier, day)
}

func (l *Ledger) AlreadySent(ctx context.Context, billID string, tier reminder.Tier, day string) (bool, error) {
	n, err := l.client.Exists(ctx, key(billID, tier, day)).Result()
	if err != nil {
		return false, fmt.Errorf("error checking dispatch key: %w", err)
	}
	return n > 0, nil
}

func (l *Ledger) Record(ctx context.Context, rec *reminder.DispatchRecord) error {
	ok, err := l.client.SetNX(ctx, key(rec.BillID, rec.Tier, rec.Day), rec.DeliveryID, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("error writing dispatch key: %w", err)
	}
	if !ok {
		return reminder.ErrAlreadyRecorded
	}
	return nil
}
