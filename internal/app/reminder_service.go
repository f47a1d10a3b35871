// internal/app/reminder_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bill_reminder_service/internal/domain/bill"
	"bill_reminder_service/internal/domain/notify"
	"bill_reminder_service/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

// ReminderRunner is the single entry point shared by the cron trigger and the
// manual HTTP trigger.
type ReminderRunner interface {
	// Run executes one full scan over all accounts and bills. It returns an
	// error only when account enumeration itself fails; every per-item
	// failure is folded into the report instead.
	Run(ctx context.Context) (*RunReport, error)
}

// RunLogStore persists a run summary for auditing. Optional: a nil store
// disables persistence.
type RunLogStore interface {
	SaveRunSummary(ctx context.Context, report *RunReport) error
}

// ReminderService scans every account's bills, classifies each by urgency,
// and dispatches at most one reminder per (bill, tier, calendar day).
type ReminderService struct {
	bills   bill.Repository
	ledger  reminder.Ledger
	sender  notify.Sender
	runLogs RunLogStore
	clock   Clock
	logger  *logrus.Logger

	loc         *time.Location
	workerCount int
	sendTimeout time.Duration
	opTimeout   time.Duration
}

func NewReminderService(
	bills bill.Repository,
	ledger reminder.Ledger,
	sender notify.Sender,
	runLogs RunLogStore,
	clock Clock,
	logger *logrus.Logger,
	loc *time.Location,
	workerCount int,
	sendTimeout time.Duration,
) *ReminderService {
	if workerCount < 1 {
		workerCount = 1
	}
	return &ReminderService{
		bills:       bills,
		ledger:      ledger,
		sender:      sender,
		runLogs:     runLogs,
		clock:       clock,
		logger:      logger,
		loc:         loc,
		workerCount: workerCount,
		sendTimeout: sendTimeout,
		opTimeout:   10 * time.Second,
	}
}

// Run executes one pass. Bills are processed by a bounded worker pool; the
// same (bill, tier) is serialized through a keyed mutex so a bill enumerated
// twice in one pass cannot race itself past the ledger check.
func (s *ReminderService) Run(ctx context.Context) (*RunReport, error) {
	now := s.clock.Now()
	day := reminder.DayOf(now, s.loc)
	report := NewRunReport(now)

	s.logger.WithFields(logrus.Fields{"run_id": report.RunID, "day": day}).Info("Reminder run started")

	accounts, err := s.bills.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	keys := newKeyedMutex()
	sem := make(chan struct{}, s.workerCount)
	var wg sync.WaitGroup

scan:
	for _, acct := range accounts {
		acctBills, err := s.bills.ListDueByAccount(ctx, acct.ID)
		if err != nil {
			s.logger.WithField("account_id", acct.ID).Errorf("Failed to list bills: %v", err)
			report.AddError(acct.ID, "", StageEnumerate, err)
			continue
		}
		for _, b := range acctBills {
			// On cancellation stop starting new bills; in-flight sends run to
			// completion on their own detached contexts.
			if ctx.Err() != nil {
				s.logger.WithField("run_id", report.RunID).Warn("Run cancelled, no new bills will be processed")
				break scan
			}
			select {
			case <-ctx.Done():
				s.logger.WithField("run_id", report.RunID).Warn("Run cancelled, no new bills will be processed")
				break scan
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(acct *bill.Account, b *bill.Bill) {
				defer wg.Done()
				defer func() { <-sem }()
				defer func() {
					if r := recover(); r != nil {
						report.AddError(acct.ID, b.ID, StageDispatch, fmt.Errorf("panic while processing bill: %v", r))
					}
				}()
				s.processBill(ctx, report, keys, acct, b, now, day)
			}(acct, b)
		}
	}
	wg.Wait()
	report.Finish(s.clock.Now())

	s.logger.WithFields(logrus.Fields{
		"run_id":               report.RunID,
		"scanned":              report.Scanned,
		"sent":                 report.Sent,
		"skipped_no_tier":      report.SkippedNoTier,
		"skipped_already_sent": report.SkippedAlreadySent,
		"errors":               report.ErrorCount(),
	}).Info("Reminder run completed")

	if s.runLogs != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
		defer cancel()
		if err := s.runLogs.SaveRunSummary(saveCtx, report); err != nil {
			s.logger.Errorf("Failed to persist run summary for run %s: %v", report.RunID, err)
		}
	}
	return report, nil
}

// processBill drives one bill through classify, ledger check, compose,
// dispatch and ledger record. Every exit path lands in exactly one report
// counter.
func (s *ReminderService) processBill(ctx context.Context, report *RunReport, keys *keyedMutex, acct *bill.Account, b *bill.Bill, now time.Time, day string) {
	report.AddScanned()

	tier, daysLeft := reminder.Classify(b.DueDate, now, s.loc)
	if tier == reminder.TierNone {
		report.AddSkippedNoTier()
		return
	}

	unlock := keys.lock(b.ID + "|" + string(tier))
	defer unlock()

	checkCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	sent, err := s.ledger.AlreadySent(checkCtx, b.ID, tier, day)
	cancel()
	if err != nil {
		// Unknown ledger state: skip sending rather than risk a duplicate.
		s.logger.WithFields(logrus.Fields{"bill_id": b.ID, "tier": tier}).Errorf("Ledger check failed, skipping bill: %v", err)
		report.AddError(acct.ID, b.ID, StageLedgerCheck, err)
		return
	}
	if sent {
		report.AddSkippedAlreadySent()
		return
	}

	msg := reminder.Compose(b, tier, daysLeft)

	// Detached context: a shutdown must not abandon a send mid-flight and
	// leave "did it go out?" ambiguous.
	sendCtx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()
	deliveryID, err := s.sender.Send(sendCtx, acct.Address, msg)
	if err != nil {
		kind := notify.KindOf(err)
		s.logger.WithFields(logrus.Fields{"bill_id": b.ID, "tier": tier, "kind": kind}).Errorf("Dispatch failed: %v", err)
		report.AddError(acct.ID, b.ID, StageDispatch, err)
		return
	}

	rec := &reminder.DispatchRecord{
		BillID:     b.ID,
		Tier:       tier,
		Day:        day,
		DeliveryID: deliveryID,
		SentAt:     s.clock.Now(),
	}
	recordCtx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.ledger.Record(recordCtx, rec); err != nil {
		if errors.Is(err, reminder.ErrAlreadyRecorded) {
			// A concurrent run recorded first; count as already-sent rather
			// than surfacing a phantom error.
			s.logger.WithFields(logrus.Fields{"bill_id": b.ID, "tier": tier, "day": day}).Warn("Dispatch record already existed, lost the race to a concurrent run")
			report.AddSkippedAlreadySent()
			return
		}
		s.logger.WithFields(logrus.Fields{"bill_id": b.ID, "tier": tier}).Errorf("Failed to write dispatch record: %v", err)
		report.AddError(acct.ID, b.ID, StageLedgerRecord, err)
		return
	}
	report.AddSent()
	s.logger.WithFields(logrus.Fields{"bill_id": b.ID, "tier": tier, "delivery_id": deliveryID}).Info("Reminder sent")

	// Flag cache update is best-effort; the ledger already holds the truth.
	if err := s.bills.MarkReminderSent(recordCtx, b.ID, string(tier), rec.SentAt, daysLeft); err != nil {
		s.logger.WithField("bill_id", b.ID).Warnf("Failed to update reminder-flag cache: %v", err)
	}
}

// keyedMutex serializes work per string key. Scoped to a single run so the
// lock map cannot grow without bound.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
