package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/hverma/loantrack/pkg/models"
)

var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Storage defines the persistence operations for loans, payments and
// transactions. Loans are returned with their payments loaded, ordered by
// payment date.
type Storage interface {
	CreateLoan(loan *models.Loan) error
	GetLoan(id uuid.UUID) (*models.Loan, error)
	UpdateLoan(loan *models.Loan) error
	DeleteLoan(id uuid.UUID) error
	GetAllLoans() ([]*models.Loan, error)
	GetActiveLoans() ([]*models.Loan, error)

	CreatePayment(loanID uuid.UUID, payment *models.Payment) error

	SaveTransaction(tx *models.Transaction) error
	DeleteTransaction(id uuid.UUID) error
	GetAllTransactions() ([]*models.Transaction, error)

	Close() error
}
