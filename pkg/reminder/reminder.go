package reminder

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hverma/loantrack/pkg/ledger"
	"github.com/hverma/loantrack/pkg/models"
	"github.com/hverma/loantrack/pkg/store"
	"github.com/robfig/cron/v3"
)

// Reminder runs a daily cron job that logs active loans whose next due date
// falls inside the lookahead window. Best effort only: errors are logged and
// swallowed.
type Reminder struct {
	cron          *cron.Cron
	storage       store.Storage
	at            string // "HH:MM"
	lookaheadDays int
}

func New(storage store.Storage, at string, lookaheadDays int) *Reminder {
	return &Reminder{
		cron:          cron.New(),
		storage:       storage,
		at:            at,
		lookaheadDays: lookaheadDays,
	}
}

func (r *Reminder) Start() error {
	spec, err := cronSpec(r.at)
	if err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(spec, r.checkDueLoans); err != nil {
		return fmt.Errorf("add due-loan check: %w", err)
	}
	r.cron.Start()
	log.Printf("Reminder job scheduled daily at %s (lookahead %d days)", r.at, r.lookaheadDays)
	return nil
}

func (r *Reminder) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reminder) checkDueLoans() {
	loans, err := r.storage.GetActiveLoans()
	if err != nil {
		log.Printf("Reminder: failed to load active loans: %v", err)
		return
	}

	now := time.Now()
	for _, loan := range loans {
		if msg, ok := dueMessage(loan, now, r.lookaheadDays); ok {
			log.Print(msg)
		}
	}
}

// dueMessage renders the reminder line for a loan whose next due date is
// overdue, today, or within the lookahead window. The second return is false
// when the loan needs no reminder yet.
func dueMessage(loan *models.Loan, now time.Time, lookaheadDays int) (string, bool) {
	due := ledger.NextDueDate(loan, now)
	days := ledger.DaysUntil(due, now)
	switch {
	case days < 0:
		return fmt.Sprintf("Reminder: %s is overdue by %d day(s) (was due %s)", loan.Name, -days, due.Format("2006-01-02")), true
	case days == 0:
		return fmt.Sprintf("Reminder: %s is due today", loan.Name), true
	case days <= lookaheadDays:
		return fmt.Sprintf("Reminder: %s is due in %d day(s) on %s", loan.Name, days, due.Format("2006-01-02")), true
	}
	return "", false
}

// cronSpec turns an "HH:MM" wall-clock time into a daily cron expression.
func cronSpec(at string) (string, error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid reminder time %q, want HH:MM", at)
	}
	return fmt.Sprintf("%s %s * * *", parts[1], parts[0]), nil
}
