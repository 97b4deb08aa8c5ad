package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hverma/loantrack/pkg/models"
	"github.com/hverma/loantrack/pkg/store"
	"github.com/shopspring/decimal"
)

// Category assigned to the expense transaction written alongside a loan
// payment. The transaction carries no foreign key back to the loan; the two
// are correlated by description text and date only.
const debtRepaymentCategory = "Debt Repayment"

// Ledger handles the business logic for loans, payments and transactions.
type Ledger struct {
	storage store.Storage
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage) *Ledger {
	return &Ledger{storage: s}
}

// SaveLoan creates or updates a loan. A zero ID gets a fresh one; a blank
// status defaults to active. Payments are not touched on update, they only
// change through RecordPayment.
func (l *Ledger) SaveLoan(loan *models.Loan) (*models.Loan, error) {
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	if loan.Status == "" {
		loan.Status = models.LoanStatusActive
	}
	if err := loan.Validate(); err != nil {
		return nil, err
	}

	existing, err := l.storage.GetLoan(loan.ID)
	if errors.Is(err, store.ErrLoanNotFound) {
		if err := l.storage.CreateLoan(loan); err != nil {
			return nil, fmt.Errorf("failed to store loan: %w", err)
		}
		return loan, nil
	}
	if err != nil {
		return nil, err
	}

	loan.Payments = existing.Payments
	if err := l.storage.UpdateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}
	return loan, nil
}

// GetLoan retrieves a loan by its ID.
func (l *Ledger) GetLoan(id uuid.UUID) (*models.Loan, error) {
	return l.storage.GetLoan(id)
}

// GetAllLoans retrieves all loans.
func (l *Ledger) GetAllLoans() ([]*models.Loan, error) {
	return l.storage.GetAllLoans()
}

// DeleteLoan deletes a loan and its payments.
func (l *Ledger) DeleteLoan(id uuid.UUID) error {
	return l.storage.DeleteLoan(id)
}

// RecordPayment appends a payment to a loan, writes the matching debt
// repayment expense transaction, and completes the loan once the remaining
// principal reaches zero.
func (l *Ledger) RecordPayment(loanID uuid.UUID, date time.Time, amount decimal.Decimal, note string) (*models.Payment, error) {
	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return nil, err
	}

	if loan.Status != models.LoanStatusActive {
		return nil, fmt.Errorf("loan is not active")
	}

	payment := models.Payment{
		ID:     uuid.New(),
		Date:   date,
		Amount: amount,
		Note:   note,
	}
	if err := l.storage.CreatePayment(loan.ID, &payment); err != nil {
		return nil, fmt.Errorf("failed to store payment: %w", err)
	}
	loan.Payments = append(loan.Payments, payment)

	if RemainingPrincipal(loan).IsZero() {
		loan.Status = models.LoanStatusCompleted
	}
	if err := l.storage.UpdateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	tx := models.Transaction{
		ID:          uuid.New(),
		Date:        date,
		Amount:      amount,
		Kind:        models.TransactionKindExpense,
		Category:    debtRepaymentCategory,
		Description: fmt.Sprintf("Payment for %s", loan.Name),
	}
	if err := l.storage.SaveTransaction(&tx); err != nil {
		return nil, fmt.Errorf("failed to store repayment transaction: %w", err)
	}

	return &payment, nil
}

// Foreclose settles a loan early: the settlement amount is recorded as a
// payment, the loan is flagged foreclosed and completed regardless of the
// computed balance.
func (l *Ledger) Foreclose(loanID uuid.UUID, settlement decimal.Decimal, date time.Time) (*models.Loan, error) {
	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return nil, err
	}

	if loan.Status != models.LoanStatusActive {
		return nil, fmt.Errorf("loan is not active")
	}

	payment := models.Payment{
		ID:     uuid.New(),
		Date:   date,
		Amount: settlement,
		Note:   "Foreclosure settlement",
	}
	if err := l.storage.CreatePayment(loan.ID, &payment); err != nil {
		return nil, fmt.Errorf("failed to store settlement payment: %w", err)
	}
	loan.Payments = append(loan.Payments, payment)

	loan.IsForeclosed = true
	loan.Status = models.LoanStatusCompleted
	if err := l.storage.UpdateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	tx := models.Transaction{
		ID:          uuid.New(),
		Date:        date,
		Amount:      settlement,
		Kind:        models.TransactionKindExpense,
		Category:    debtRepaymentCategory,
		Description: fmt.Sprintf("Foreclosure settlement for %s", loan.Name),
	}
	if err := l.storage.SaveTransaction(&tx); err != nil {
		return nil, fmt.Errorf("failed to store settlement transaction: %w", err)
	}

	return loan, nil
}

// SaveTransaction upserts an income or expense transaction.
func (l *Ledger) SaveTransaction(tx *models.Transaction) (*models.Transaction, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if err := l.storage.SaveTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}
	return tx, nil
}

// DeleteTransaction removes a transaction.
func (l *Ledger) DeleteTransaction(id uuid.UUID) error {
	return l.storage.DeleteTransaction(id)
}

// GetAllTransactions retrieves all transactions.
func (l *Ledger) GetAllTransactions() ([]*models.Transaction, error) {
	return l.storage.GetAllTransactions()
}

// Snapshot is the full sync payload: every loan with its payments plus every
// transaction.
type Snapshot struct {
	Loans        []*models.Loan        `json:"loans"`
	Transactions []*models.Transaction `json:"transactions"`
}

// GetSnapshot assembles the sync payload.
func (l *Ledger) GetSnapshot() (*Snapshot, error) {
	loans, err := l.storage.GetAllLoans()
	if err != nil {
		return nil, err
	}
	txs, err := l.storage.GetAllTransactions()
	if err != nil {
		return nil, err
	}
	if loans == nil {
		loans = []*models.Loan{}
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	return &Snapshot{Loans: loans, Transactions: txs}, nil
}

// Summary computes the portfolio aggregation as of now.
func (l *Ledger) Summary(now time.Time) (PortfolioSummary, error) {
	loans, err := l.storage.GetAllLoans()
	if err != nil {
		return PortfolioSummary{}, err
	}
	txs, err := l.storage.GetAllTransactions()
	if err != nil {
		return PortfolioSummary{}, err
	}
	return Summarize(loans, txs, now), nil
}
