package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hverma/loantrack/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Println("Database connection established and schema initialized.")
	return s, nil
}

// initSchema creates the database tables if they don't already exist.
// We use TEXT for decimal fields in SQLite to ensure no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lender TEXT NOT NULL DEFAULT '',
		principal TEXT NOT NULL,
		interest_rate TEXT NOT NULL DEFAULT '0',
		start_date DATETIME,
		emi_amount TEXT NOT NULL DEFAULT '0',
		tenure_months INTEGER NOT NULL DEFAULT 0,
		initial_paid_months INTEGER NOT NULL DEFAULT 0,
		due_date_day INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		is_foreclosed INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		date DATETIME NOT NULL,
		amount TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		FOREIGN KEY(loan_id) REFERENCES loans(id)
	);
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		date DATETIME NOT NULL,
		amount TEXT NOT NULL,
		kind TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateLoan inserts a new loan and any payments it already carries.
func (s *SQLiteStore) CreateLoan(loan *models.Loan) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO loans (id, name, lender, principal, interest_rate, start_date, emi_amount, tenure_months, initial_paid_months, due_date_day, kind, status, is_foreclosed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID.String(), loan.Name, loan.Lender, loan.Principal, loan.InterestRate, nullableDate(loan.StartDate), loan.EMIAmount, loan.TenureMonths, loan.InitialPaidMonths, loan.DueDateDay, loan.Kind, loan.Status, loan.IsForeclosed,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}

	for _, p := range loan.Payments {
		_, err = tx.Exec(
			`INSERT INTO payments (id, loan_id, date, amount, note) VALUES (?, ?, ?, ?, ?)`,
			p.ID.String(), loan.ID.String(), p.Date, p.Amount, p.Note,
		)
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
	}

	return tx.Commit()
}

// GetLoan retrieves a loan by its ID, payments included.
func (s *SQLiteStore) GetLoan(id uuid.UUID) (*models.Loan, error) {
	row := s.db.QueryRow(
		`SELECT id, name, lender, principal, interest_rate, start_date, emi_amount, tenure_months, initial_paid_months, due_date_day, kind, status, is_foreclosed
		FROM loans WHERE id = ?`, id.String())

	loan, err := scanLoan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	if err := s.loadPayments(loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// UpdateLoan updates a loan's own columns. Payments are append-only and go
// through CreatePayment.
func (s *SQLiteStore) UpdateLoan(loan *models.Loan) error {
	result, err := s.db.Exec(
		`UPDATE loans SET name = ?, lender = ?, principal = ?, interest_rate = ?, start_date = ?, emi_amount = ?, tenure_months = ?, initial_paid_months = ?, due_date_day = ?, kind = ?, status = ?, is_foreclosed = ? WHERE id = ?`,
		loan.Name, loan.Lender, loan.Principal, loan.InterestRate, nullableDate(loan.StartDate), loan.EMIAmount, loan.TenureMonths, loan.InitialPaidMonths, loan.DueDateDay, loan.Kind, loan.Status, loan.IsForeclosed, loan.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLoanNotFound
	}
	return nil
}

// DeleteLoan removes a loan and its payments within a transaction.
func (s *SQLiteStore) DeleteLoan(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM payments WHERE loan_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete associated payments: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM loans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLoanNotFound
	}

	return tx.Commit()
}

// GetAllLoans retrieves all loans with their payments.
func (s *SQLiteStore) GetAllLoans() ([]*models.Loan, error) {
	return s.queryLoans(`SELECT id, name, lender, principal, interest_rate, start_date, emi_amount, tenure_months, initial_paid_months, due_date_day, kind, status, is_foreclosed FROM loans`)
}

// GetActiveLoans retrieves all active loans with their payments.
func (s *SQLiteStore) GetActiveLoans() ([]*models.Loan, error) {
	return s.queryLoans(`SELECT id, name, lender, principal, interest_rate, start_date, emi_amount, tenure_months, initial_paid_months, due_date_day, kind, status, is_foreclosed FROM loans WHERE status = 'active'`)
}

func (s *SQLiteStore) queryLoans(query string) ([]*models.Loan, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}

	for _, loan := range loans {
		if err := s.loadPayments(loan); err != nil {
			return nil, err
		}
	}
	return loans, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	var loan models.Loan
	var idStr string
	var startDate sql.NullTime
	if err := row.Scan(&idStr, &loan.Name, &loan.Lender, &loan.Principal, &loan.InterestRate, &startDate, &loan.EMIAmount, &loan.TenureMonths, &loan.InitialPaidMonths, &loan.DueDateDay, &loan.Kind, &loan.Status, &loan.IsForeclosed); err != nil {
		return nil, err
	}
	loan.ID = uuid.MustParse(idStr)
	if startDate.Valid {
		loan.StartDate = startDate.Time
	}
	return &loan, nil
}

func (s *SQLiteStore) loadPayments(loan *models.Loan) error {
	rows, err := s.db.Query(`SELECT id, date, amount, note FROM payments WHERE loan_id = ? ORDER BY date ASC`, loan.ID.String())
	if err != nil {
		return fmt.Errorf("failed to get payments for loan %s: %w", loan.ID, err)
	}
	defer rows.Close()

	loan.Payments = []models.Payment{}
	for rows.Next() {
		var p models.Payment
		var idStr string
		if err := rows.Scan(&idStr, &p.Date, &p.Amount, &p.Note); err != nil {
			return fmt.Errorf("failed to scan payment row: %w", err)
		}
		p.ID = uuid.MustParse(idStr)
		loan.Payments = append(loan.Payments, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error during payment rows iteration: %w", err)
	}
	return nil
}

// CreatePayment appends a payment to a loan.
func (s *SQLiteStore) CreatePayment(loanID uuid.UUID, payment *models.Payment) error {
	_, err := s.db.Exec(
		`INSERT INTO payments (id, loan_id, date, amount, note) VALUES (?, ?, ?, ?, ?)`,
		payment.ID.String(), loanID.String(), payment.Date, payment.Amount, payment.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// SaveTransaction upserts a transaction by ID.
func (s *SQLiteStore) SaveTransaction(tx *models.Transaction) error {
	_, err := s.db.Exec(
		`INSERT INTO transactions (id, date, amount, kind, category, description)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET date = excluded.date, amount = excluded.amount, kind = excluded.kind, category = excluded.category, description = excluded.description`,
		tx.ID.String(), tx.Date, tx.Amount, tx.Kind, tx.Category, tx.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes a transaction by ID.
func (s *SQLiteStore) DeleteTransaction(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM transactions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// GetAllTransactions retrieves all transactions ordered by date.
func (s *SQLiteStore) GetAllTransactions() ([]*models.Transaction, error) {
	rows, err := s.db.Query(`SELECT id, date, amount, kind, category, description FROM transactions ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var idStr string
		if err := rows.Scan(&idStr, &t.Date, &t.Amount, &t.Kind, &t.Category, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		t.ID = uuid.MustParse(idStr)
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return transactions, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
