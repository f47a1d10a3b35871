package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage names the point in the per-bill pipeline where an error occurred.
type Stage string

const (
	StageEnumerate    Stage = "enumerate"
	StageLedgerCheck  Stage = "ledger_check"
	StageDispatch     Stage = "dispatch"
	StageLedgerRecord Stage = "ledger_record"
)

// RunError carries enough context to diagnose one failed item without
// aborting or log-diving.
type RunError struct {
	AccountID string `json:"account_id"`
	BillID    string `json:"bill_id,omitempty"`
	Stage     Stage  `json:"stage"`
	Message   string `json:"message"`
}

// RunReport aggregates the outcome of one orchestration pass. All Add methods
// are safe for concurrent use by the worker pool; merges are append-only and
// order-independent.
type RunReport struct {
	mu sync.Mutex

	RunID              string     `json:"run_id"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         time.Time  `json:"finished_at"`
	Scanned            int        `json:"scanned"`
	Sent               int        `json:"sent"`
	SkippedNoTier      int        `json:"skipped_no_tier"`
	SkippedAlreadySent int        `json:"skipped_already_sent"`
	Errors             []RunError `json:"errors"`
}

func NewRunReport(startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: startedAt,
		Errors:    make([]RunError, 0),
	}
}

func (r *RunReport) AddScanned() {
	r.mu.Lock()
	r.Scanned++
	r.mu.Unlock()
}

func (r *RunReport) AddSent() {
	r.mu.Lock()
	r.Sent++
	r.mu.Unlock()
}

func (r *RunReport) AddSkippedNoTier() {
	r.mu.Lock()
	r.SkippedNoTier++
	r.mu.Unlock()
}

func (r *RunReport) AddSkippedAlreadySent() {
	r.mu.Lock()
	r.SkippedAlreadySent++
	r.mu.Unlock()
}

func (r *RunReport) AddError(accountID, billID string, stage Stage, err error) {
	r.mu.Lock()
	r.Errors = append(r.Errors, RunError{
		AccountID: accountID,
		BillID:    billID,
		Stage:     stage,
		Message:   err.Error(),
	})
	r.mu.Unlock()
}

func (r *RunReport) Finish(at time.Time) {
	r.mu.Lock()
	r.FinishedAt = at
	r.mu.Unlock()
}

// ErrorCount returns the number of recorded per-item errors.
func (r *RunReport) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors)
}
