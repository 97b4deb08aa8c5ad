package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanKind string

const (
	LoanKindEMI    LoanKind = "emi"
	LoanKindNonEMI LoanKind = "non_emi"
)

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
)

// Loan is a tracked debt instrument. EMI loans carry a fixed monthly
// installment schedule; non-EMI loans are free-form debts paid down at will.
type Loan struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Lender            string          `json:"lender"`
	Principal         decimal.Decimal `json:"principal"`
	InterestRate      decimal.Decimal `json:"interestRate"` // annual percentage
	StartDate         time.Time       `json:"startDate"`
	EMIAmount         decimal.Decimal `json:"emiAmount"`
	TenureMonths      int             `json:"tenureMonths"`      // EMI loans only
	InitialPaidMonths int             `json:"initialPaidMonths"` // installments paid before tracking began
	DueDateDay        int             `json:"dueDateDay"`        // 1-31, 0 means unset (falls back to start day)
	Kind              LoanKind        `json:"type"`
	Status            LoanStatus      `json:"status"`
	IsForeclosed      bool            `json:"isForeclosed"`
	Payments          []Payment       `json:"payments"`
}

// Payment is a single money movement against a loan. Payments are owned by
// their loan, created once and never mutated.
type Payment struct {
	ID     uuid.UUID       `json:"id"`
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

type TransactionKind string

const (
	TransactionKindIncome  TransactionKind = "income"
	TransactionKindExpense TransactionKind = "expense"
)

// Transaction is an income or expense event independent of any loan. The
// amount is always stored positive; direction is carried by Kind.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        TransactionKind `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
}

// Validate checks the field combinations the flat struct cannot rule out on
// its own, e.g. a non-EMI loan carrying a tenure.
func (l *Loan) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("loan name is required")
	}
	if !l.Principal.IsPositive() {
		return fmt.Errorf("principal must be positive")
	}
	if l.InterestRate.IsNegative() {
		return fmt.Errorf("interest rate must not be negative")
	}
	if l.DueDateDay < 0 || l.DueDateDay > 31 {
		return fmt.Errorf("due date day must be between 1 and 31, or 0 for unset")
	}
	switch l.Kind {
	case LoanKindEMI:
		if l.TenureMonths <= 0 {
			return fmt.Errorf("emi loan requires a positive tenure")
		}
		if !l.EMIAmount.IsPositive() {
			return fmt.Errorf("emi loan requires a positive installment amount")
		}
		if l.InitialPaidMonths < 0 {
			return fmt.Errorf("initial paid months must not be negative")
		}
	case LoanKindNonEMI:
		if l.TenureMonths != 0 {
			return fmt.Errorf("non-emi loan must not carry a tenure")
		}
		if l.InitialPaidMonths != 0 {
			return fmt.Errorf("non-emi loan must not carry initial paid months")
		}
		if l.EMIAmount.IsNegative() {
			return fmt.Errorf("installment amount must not be negative")
		}
	default:
		return fmt.Errorf("unknown loan kind %q", l.Kind)
	}
	switch l.Status {
	case LoanStatusActive, LoanStatusCompleted:
	default:
		return fmt.Errorf("unknown loan status %q", l.Status)
	}
	return nil
}

// Validate checks transaction invariants: positive amount, known kind.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction amount must be positive")
	}
	switch t.Kind {
	case TransactionKindIncome, TransactionKindExpense:
	default:
		return fmt.Errorf("unknown transaction kind %q", t.Kind)
	}
	return nil
}
