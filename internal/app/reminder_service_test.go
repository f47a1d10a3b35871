package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"bill_reminder_service/internal/domain/bill"
	"bill_reminder_service/internal/domain/notify"
	"bill_reminder_service/internal/domain/reminder"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test doubles ---

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type fakeBillRepo struct {
	mu          sync.Mutex
	accounts    []*bill.Account
	bills       map[string][]*bill.Bill // accountID -> bills
	accountsErr error
	listErr     map[string]error // accountID -> error
	marked      []string         // "billID|tier"
}

func (f *fakeBillRepo) ListAccounts(ctx context.Context) ([]*bill.Account, error) {
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return f.accounts, nil
}

func (f *fakeBillRepo) ListDueByAccount(ctx context.Context, accountID string) ([]*bill.Bill, error) {
	if err := f.listErr[accountID]; err != nil {
		return nil, err
	}
	return f.bills[accountID], nil
}

func (f *fakeBillRepo) MarkReminderSent(ctx context.Context, billID, tier string, sentAt time.Time, daysLeft int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, billID+"|"+tier)
	return nil
}

// fakeLedger mimics a conditional-write store: Record claims a key exactly
// once, concurrent claimers get ErrAlreadyRecorded.
type fakeLedger struct {
	mu       sync.Mutex
	records  map[string]*reminder.DispatchRecord
	checkErr map[string]error // billID -> error on AlreadySent
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]*reminder.DispatchRecord), checkErr: make(map[string]error)}
}

func ledgerKey(billID string, tier reminder.Tier, day string) string {
	return billID + "|" + string(tier) + "|" + day
}

func (f *fakeLedger) AlreadySent(ctx context.Context, billID string, tier reminder.Tier, day string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkErr[billID]; err != nil {
		return false, err
	}
	_, ok := f.records[ledgerKey(billID, tier, day)]
	return ok, nil
}

func (f *fakeLedger) Record(ctx context.Context, rec *reminder.DispatchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ledgerKey(rec.BillID, rec.Tier, rec.Day)
	if _, ok := f.records[key]; ok {
		return reminder.ErrAlreadyRecorded
	}
	f.records[key] = rec
	return nil
}

type sentMessage struct {
	address string
	msg     notify.Message
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failAll error // returned for every send when set
}

func (f *fakeSender) Send(ctx context.Context, address string, msg notify.Message) (string, error) {
	if f.failAll != nil {
		return "", f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{address: address, msg: msg})
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

// --- fixtures ---

var testLoc = time.UTC

func testNow() time.Time {
	return time.Date(2026, 9, 1, 9, 0, 0, 0, testLoc)
}

func mkBill(id, accountID string, dueIn int) *bill.Bill {
	return &bill.Bill{
		ID:            id,
		AccountID:     accountID,
		InvoiceNumber: "INV-" + id,
		SupplierName:  "Supplier " + id,
		Amount:        decimal.NewFromInt(100),
		DueDate:       testNow().AddDate(0, 0, dueIn),
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newService(repo *fakeBillRepo, ledger *fakeLedger, sender *fakeSender, clock Clock) *ReminderService {
	return NewReminderService(repo, ledger, sender, nil, clock, quietLogger(), testLoc, 4, time.Second)
}

// --- tests ---

func TestRun_SendsAndRecordsPerTier(t *testing.T) {
	repo := &fakeBillRepo{
		accounts: []*bill.Account{{ID: "a1", Address: "a1@example.com"}},
		bills: map[string][]*bill.Bill{
			"a1": {
				mkBill("b-overdue", "a1", -5),
				mkBill("b-today", "a1", 0),
				mkBill("b-soon", "a1", 3),
				mkBill("b-far", "a1", 14),
			},
		},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{}
	svc := newService(repo, ledger, sender, &fixedClock{now: testNow()})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 3, report.Sent)
	assert.Equal(t, 1, report.SkippedNoTier)
	assert.Equal(t, 0, report.SkippedAlreadySent)
	assert.Equal(t, 0, report.ErrorCount())
	assert.Len(t, ledger.records, 3)
	assert.ElementsMatch(t, []string{
		"b-overdue|OVERDUE", "b-today|DUE_TODAY", "b-soon|DUE_SOON",
	}, repo.marked)
}

func TestRun_SecondRunSameDayIsIdempotent(t *testing.T) {
	repo := &fakeBillRepo{
		accounts: []*bill.Account{{ID: "a1", Address: "a1@example.com"}},
		bills: map[string][]*bill.Bill{
			"a1": {mkBill("b1", "a1", 0), mkBill("b2", "a1", 3)},
		},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{}
	svc := newService(repo, ledger, sender, &fixedClock{now: testNow()})

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Sent)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Sent)
	assert.Equal(t, 2, second.SkippedAlreadySent)

	// Exactly one record per (bill, tier) pair, and no extra deliveries.
	assert.Len(t, ledger.records, 2)
	assert.Len(t, sender.sent, 2)
}

func TestRun_RenotifiesOnNextCalendarDay(t *testing.T) {
	repo := &fakeBillRepo{
		accounts: []*bill.Account{{ID: "a1", Address: "a1@example.com"}},
		bills: map[string][]*bill.Bill{
			"a1": {mkBill("b1", "a1", 3)}, // DUE_SOON on day 0, still DUE_SOON on day 1
		},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{}
	clock := &fixedClock{now: testNow()}
	svc := newService(repo, ledger, sender, clock)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sent)

	// Next calendar day: the ledger key differs only by day, so the same
	// tier sends again.
	clock.now = clock.now.AddDate(0, 0, 1)
	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Sent)
	assert.Equal(t, 0, second.SkippedAlreadySent)
	assert.Len(t, ledger.records, 2)
}

func TestRun_OverdueRequalifiesDaily(t *testing.T) {
	repo := &fakeBillRepo{
		accounts: []*bill.Account{{ID: "a1", Address: "a1@example.com"}},
		bills:    map[string][]*bill.Bill{"a1": {mkBill("b1", "a1", -5)}},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{}
	clock := &fixedClock{now: testNow()}
	svc := newService(repo, ledger, sender, clock)

	for day := 0; day < 3; day++ {
		report, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent, "day %d", day)
		clock.now = clock.now.AddDate(0, 0, 1)
	}
	assert.Len(t, ledger.records, 3)
}

func TestRun_LedgerReadFailureIsIsolated(t *testing.T) {
	repo := &fakeBillRepo{
		accounts: []*bill.Account{{ID: "a1", Address: "a1@example.com"}},
		bills: map[string][]*bill.Bill{
			"a1": {mkBill("b1", "a1", 0), mkBill("b2", "a1", 0), mkBill("b3", "a1", 0)},
		},
	}
	ledger := newFakeLedger()
	ledger.checkErr["b2"] = fmt.Errorf("ledger unavailable")
	sender := &fakeSender{}
	svc := newService(repo, ledger, sender, &fixedClock{now: testNow()})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	// The bad record must not block the others, and "unknown" means skip.
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.ErrorCount())
	assert.Equal(t, StageLedgerCheck, report.Errors[0].Stage)
	assert.Equal(t, "b2", report.Errors[0].BillID)
	assert.Len(t, sender.sent, 2)
}

func TestRun_DispatchFailureLeavesBillEligible(t *testing.T) {
	repo := &fakeBillRepo{
		accounts: []*bill.Account{{ID: "a1", Address: "a1@example.com"}},
		bills:    map[string][]*bill.Bill{"a1": {mkBill("b1", "a1", 0)}},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{failAll: notify.Transient(fmt.Errorf("throttled"))}
	svc := newService(repo, ledger, sender, &fixedClock{now: testNow()})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 1, report.ErrorCount())
	assert.Equal(t, StageDispatch, report.Errors[0].Stage)
	// No record written: the next run naturally retries.
	assert.Empty(t, ledger.records)

	sender.failAll = nil
	retry, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Sent)
}

func TestRun_AccountEnumerationFailureIsIsolated(t *testing.T) {
	repo := &fakeBillRepo{
		accounts: []*bill.Account{
			{ID: "a1", Address: "a1@example.com"},
			{ID: "a2", Address: "a2@example.com"},
		},
		bills:   map[string][]*bill.Bill{"a2": {mkBill("b1", "a2", 0)}},
		listErr: map[string]error{"a1": fmt.Errorf("account store timeout")},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{}
	svc := newService(repo, ledger, sender, &fixedClock{now: testNow()})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.ErrorCount())
	assert.Equal(t, StageEnumerate, report.Errors[0].Stage)
	assert.Equal(t, "a1", report.Errors[0].AccountID)
}

func TestRun_ListAccountsFailureIsFatal(t *testing.T) {
	repo := &fakeBillRepo{accountsErr: fmt.Errorf("database down")}
	svc := newService(repo, newFakeLedger(), &fakeSender{}, &fixedClock{now: testNow()})

	report, err := svc.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestRun_DuplicateEnumerationSendsOnce(t *testing.T) {
	b := mkBill("b1", "a1", 0)
	repo := &fakeBillRepo{
		accounts: []*bill.Account{{ID: "a1", Address: "a1@example.com"}},
		// Same bill enumerated twice in one pass; the keyed mutex plus the
		// conditional ledger write must collapse it to one delivery.
		bills: map[string][]*bill.Bill{"a1": {b, b}},
	}
	ledger := newFakeLedger()
	sender := &fakeSender{}
	svc := newService(repo, ledger, sender, &fixedClock{now: testNow()})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.SkippedAlreadySent)
	assert.Len(t, sender.sent, 1)
	assert.Len(t, ledger.records, 1)
}

func TestRun_CancelledContextStartsNoNewBills(t *testing.T) {
	bills := make([]*bill.Bill, 50)
	for i := range bills {
		bills[i] = mkBill(fmt.Sprintf("b%d", i), "a1", 0)
	}
	repo := &fakeBillRepo{
		accounts: []*bill.Account{{ID: "a1", Address: "a1@example.com"}},
		bills:    map[string][]*bill.Bill{"a1": bills},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the run starts

	svc := newService(repo, newFakeLedger(), &fakeSender{}, &fixedClock{now: testNow()})
	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Equal(t, 0, report.Sent)
}

func TestRun_ComposedMessageMatchesTier(t *testing.T) {
	repo := &fakeBillRepo{
		accounts: []*bill.Account{{ID: "a1", Address: "user@example.com"}},
		bills:    map[string][]*bill.Bill{"a1": {mkBill("b1", "a1", 3)}},
	}
	sender := &fakeSender{}
	svc := newService(repo, newFakeLedger(), sender, &fixedClock{now: testNow()})

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "user@example.com", sender.sent[0].address)
	want := reminder.Compose(repo.bills["a1"][0], reminder.TierDueSoon, 3)
	assert.Equal(t, want, sender.sent[0].msg)
}
