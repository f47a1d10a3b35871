package scheduler

import (
	"context"
	"time"

	"bill_reminder_service/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// runTimeout bounds one full pass. Generous: a pass over many accounts is
// mostly network-bound sends.
const runTimeout = 15 * time.Minute

// ReminderScheduler fires the daily reminder scan on a cron schedule. Cron
// evaluates in the reminder timezone so "09:00 daily" means 09:00 where the
// due dates live, not where the server happens to run.
type ReminderScheduler struct {
	cronEngine *cron.Cron
	runner     app.ReminderRunner
	logger     *logrus.Logger
	cronSpec   string
}

func NewReminderScheduler(runner app.ReminderRunner, logger *logrus.Logger, cronSpec string, loc *time.Location) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		runner:     runner,
		logger:     logger,
		cronSpec:   cronSpec,
	}
}

func (s *ReminderScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for daily reminder scan")
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		report, err := s.runner.Run(ctx)
		if err != nil {
			s.logger.Errorf("Scheduled reminder run failed: %v", err)
			return
		}
		s.logger.WithFields(logrus.Fields{
			"run_id":               report.RunID,
			"scanned":              report.Scanned,
			"sent":                 report.Sent,
			"skipped_no_tier":      report.SkippedNoTier,
			"skipped_already_sent": report.SkippedAlreadySent,
			"errors":               report.ErrorCount(),
		}).Info("Scheduled reminder run finished")
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Infof("Reminder scheduler started with spec %q", s.cronSpec)
	return nil
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // Waits for a running job to finish.
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped")
}
