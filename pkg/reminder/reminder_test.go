package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/hverma/loantrack/pkg/models"
	"github.com/shopspring/decimal"
)

func TestCronSpec(t *testing.T) {
	spec, err := cronSpec("09:30")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if spec != "30 09 * * *" {
		t.Errorf("Expected '30 09 * * *', got %q", spec)
	}

	if _, err := cronSpec("morning"); err == nil {
		t.Error("Expected error for malformed time")
	}
}

// Loan starting 2024-01-15 with due day 15 and no payments: next due date is
// 2024-02-15.
func dueLoan() *models.Loan {
	return &models.Loan{
		Name:         "Car Loan",
		Kind:         models.LoanKindEMI,
		Status:       models.LoanStatusActive,
		Principal:    decimal.NewFromInt(55000),
		EMIAmount:    decimal.NewFromInt(5000),
		StartDate:    time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		TenureMonths: 12,
		DueDateDay:   15,
	}
}

func TestDueMessage(t *testing.T) {
	const lookahead = 3

	cases := []struct {
		name     string
		now      time.Time
		want     string
		remind   bool
	}{
		{
			"overdue",
			time.Date(2024, time.February, 18, 10, 0, 0, 0, time.UTC),
			"overdue by 3 day(s)",
			true,
		},
		{
			"due today",
			time.Date(2024, time.February, 15, 10, 0, 0, 0, time.UTC),
			"due today",
			true,
		},
		{
			"within lookahead",
			time.Date(2024, time.February, 13, 10, 0, 0, 0, time.UTC),
			"due in 2 day(s)",
			true,
		},
		{
			"outside lookahead",
			time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC),
			"",
			false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			msg, ok := dueMessage(dueLoan(), c.now, lookahead)
			if ok != c.remind {
				t.Fatalf("Expected remind=%v, got %v (msg %q)", c.remind, ok, msg)
			}
			if c.remind && !strings.Contains(msg, c.want) {
				t.Errorf("Expected message containing %q, got %q", c.want, msg)
			}
		})
	}
}

func TestDueMessage_LocalClockAgainstStoredDate(t *testing.T) {
	// Due dates are built in the stored (UTC) location while the job clock
	// runs in the server's zone; a loan due today must still say so.
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, time.February, 15, 9, 0, 0, 0, ist)

	msg, ok := dueMessage(dueLoan(), now, 3)
	if !ok {
		t.Fatal("Expected a reminder for a loan due today")
	}
	if !strings.Contains(msg, "due today") {
		t.Errorf("Expected due-today message, got %q", msg)
	}
}
