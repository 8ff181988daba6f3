// Package sweeper runs the periodic maintenance passes: due-date reminders and
// retention cleanup of returned loans.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"libracore/internal/accounts"
	"libracore/internal/catalog"
	"libracore/internal/clock"
	"libracore/internal/lending"
	"libracore/internal/notify"
)

// Sweeper scans the loan store on two independent schedules. The reminder
// pass notifies users whose loans come due soon; the retention pass purges
// returned loans past the retention cutoff.
type Sweeper struct {
	loans    lending.Store
	users    accounts.Store
	books    catalog.Store
	notifier notify.Notifier
	clk      clock.Clock

	reminderLead time.Duration
	retentionAge time.Duration
	interval     time.Duration

	logger *zap.Logger
}

// New creates a Sweeper. reminderLead is how far ahead of the due date
// reminders go out; retentionAge is how long past the due date returned loans
// are kept; interval is the cadence of both passes.
func New(loans lending.Store, users accounts.Store, books catalog.Store, notifier notify.Notifier, clk clock.Clock, reminderLead, retentionAge, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		loans:        loans,
		users:        users,
		books:        books,
		notifier:     notifier,
		clk:          clk,
		reminderLead: reminderLead,
		retentionAge: retentionAge,
		interval:     interval,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled, executing both passes on independent
// tickers.
func (s *Sweeper) Run(ctx context.Context) {
	remind := time.NewTicker(s.interval)
	purge := time.NewTicker(s.interval)
	defer remind.Stop()
	defer purge.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-remind.C:
			if n, err := s.RemindDueSoon(ctx); err != nil {
				s.logger.Error("reminder pass failed", zap.Error(err))
			} else {
				s.logger.Info("reminder pass complete", zap.Int("reminders", n))
			}
		case <-purge.C:
			if n, err := s.PurgeReturned(ctx); err != nil {
				s.logger.Error("retention pass failed", zap.Error(err))
			} else {
				s.logger.Info("retention pass complete", zap.Int("purged", n))
			}
		}
	}
}

// RemindDueSoon notifies every user holding an unreturned loan due exactly
// reminderLead from now. A failed notification is logged and skipped so the
// rest of the batch still goes out. It returns the number of reminders sent.
func (s *Sweeper) RemindDueSoon(ctx context.Context) (int, error) {
	due := s.clk.Now().Add(s.reminderLead)
	loans, err := s.loans.FindDueOn(ctx, due, false)
	if err != nil {
		return 0, fmt.Errorf("find due loans: %w", err)
	}

	days := int(s.reminderLead.Hours() / 24)
	sent := 0
	for _, loan := range loans {
		user, err := s.users.Get(ctx, loan.UserID)
		if err != nil {
			s.logger.Warn("reminder skipped: user lookup failed",
				zap.String("loan_id", loan.ID.String()), zap.Error(err))
			continue
		}
		book, err := s.books.Get(ctx, loan.BookID)
		if err != nil {
			s.logger.Warn("reminder skipped: book lookup failed",
				zap.String("loan_id", loan.ID.String()), zap.Error(err))
			continue
		}

		message := fmt.Sprintf("Reminder: Only %d days left to return %q (Due: %s).",
			days, book.Title, loan.DueDate.Format("2006-01-02"))
		if err := s.notifier.Send(ctx, user.Mobile, message); err != nil {
			s.logger.Warn("reminder failed",
				zap.String("loan_id", loan.ID.String()),
				zap.String("mobile", user.Mobile),
				zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// PurgeReturned deletes returned loans whose due date is older than the
// retention cutoff. Deleted records are unrecoverable. It returns the number
// of loans purged.
func (s *Sweeper) PurgeReturned(ctx context.Context) (int, error) {
	cutoff := s.clk.Now().Add(-s.retentionAge)
	loans, err := s.loans.FindReturnedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale loans: %w", err)
	}
	if len(loans) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(loans))
	for _, loan := range loans {
		ids = append(ids, loan.ID)
	}
	if err := s.loans.DeleteAll(ctx, ids); err != nil {
		return 0, fmt.Errorf("delete stale loans: %w", err)
	}
	return len(ids), nil
}
