package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hverma/loantrack/pkg/models"
	"github.com/hverma/loantrack/pkg/store"
	"github.com/shopspring/decimal"
)

// MockStore is a simple in-memory implementation of the Storage interface
// for testing. Payments are tracked separately so returned loans are copies,
// like a real store would hand back.
type MockStore struct {
	loans        map[uuid.UUID]*models.Loan
	payments     map[uuid.UUID][]models.Payment
	transactions map[uuid.UUID]*models.Transaction
}

func NewMockStore() *MockStore {
	return &MockStore{
		loans:        make(map[uuid.UUID]*models.Loan),
		payments:     make(map[uuid.UUID][]models.Payment),
		transactions: make(map[uuid.UUID]*models.Transaction),
	}
}

func (m *MockStore) CreateLoan(loan *models.Loan) error {
	c := *loan
	c.Payments = nil
	m.loans[loan.ID] = &c
	m.payments[loan.ID] = append([]models.Payment{}, loan.Payments...)
	return nil
}

func (m *MockStore) GetLoan(id uuid.UUID) (*models.Loan, error) {
	loan, ok := m.loans[id]
	if !ok {
		return nil, store.ErrLoanNotFound
	}
	c := *loan
	c.Payments = append([]models.Payment{}, m.payments[id]...)
	return &c, nil
}

func (m *MockStore) UpdateLoan(loan *models.Loan) error {
	if _, ok := m.loans[loan.ID]; !ok {
		return store.ErrLoanNotFound
	}
	c := *loan
	c.Payments = nil
	m.loans[loan.ID] = &c
	return nil
}

func (m *MockStore) DeleteLoan(id uuid.UUID) error {
	if _, ok := m.loans[id]; !ok {
		return store.ErrLoanNotFound
	}
	delete(m.loans, id)
	delete(m.payments, id)
	return nil
}

func (m *MockStore) GetAllLoans() ([]*models.Loan, error) {
	loans := []*models.Loan{}
	for id := range m.loans {
		loan, _ := m.GetLoan(id)
		loans = append(loans, loan)
	}
	return loans, nil
}

func (m *MockStore) GetActiveLoans() ([]*models.Loan, error) {
	loans := []*models.Loan{}
	for id, l := range m.loans {
		if l.Status == models.LoanStatusActive {
			loan, _ := m.GetLoan(id)
			loans = append(loans, loan)
		}
	}
	return loans, nil
}

func (m *MockStore) CreatePayment(loanID uuid.UUID, payment *models.Payment) error {
	m.payments[loanID] = append(m.payments[loanID], *payment)
	return nil
}

func (m *MockStore) SaveTransaction(tx *models.Transaction) error {
	c := *tx
	m.transactions[tx.ID] = &c
	return nil
}

func (m *MockStore) DeleteTransaction(id uuid.UUID) error {
	if _, ok := m.transactions[id]; !ok {
		return store.ErrTransactionNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *MockStore) GetAllTransactions() ([]*models.Transaction, error) {
	txs := []*models.Transaction{}
	for _, tx := range m.transactions {
		txs = append(txs, tx)
	}
	return txs, nil
}

func (m *MockStore) Close() error {
	return nil
}

func newEMILoan() *models.Loan {
	return &models.Loan{
		Name:         "Car Loan",
		Lender:       "First Bank",
		Principal:    decimal.NewFromInt(55000),
		InterestRate: decimal.NewFromFloat(9.5),
		StartDate:    date(2024, time.January, 15),
		EMIAmount:    decimal.NewFromInt(5000),
		TenureMonths: 12,
		DueDateDay:   15,
		Kind:         models.LoanKindEMI,
	}
}

func TestSaveLoan_AssignsIDAndDefaults(t *testing.T) {
	l := NewLedger(NewMockStore())

	saved, err := l.SaveLoan(newEMILoan())
	if err != nil {
		t.Fatalf("Failed to save loan: %v", err)
	}

	if saved.ID == uuid.Nil {
		t.Error("Expected a generated loan ID")
	}
	if saved.Status != models.LoanStatusActive {
		t.Errorf("Expected status active, got %s", saved.Status)
	}
}

func TestSaveLoan_UpdatesExisting(t *testing.T) {
	st := NewMockStore()
	l := NewLedger(st)

	saved, err := l.SaveLoan(newEMILoan())
	if err != nil {
		t.Fatalf("Failed to save loan: %v", err)
	}

	saved.Lender = "Second Bank"
	if _, err := l.SaveLoan(saved); err != nil {
		t.Fatalf("Failed to update loan: %v", err)
	}

	if len(st.loans) != 1 {
		t.Fatalf("Expected 1 stored loan, got %d", len(st.loans))
	}
	fetched, _ := l.GetLoan(saved.ID)
	if fetched.Lender != "Second Bank" {
		t.Errorf("Expected updated lender, got %s", fetched.Lender)
	}
}

func TestSaveLoan_RejectsInvalidKindCombination(t *testing.T) {
	l := NewLedger(NewMockStore())

	loan := newEMILoan()
	loan.Kind = models.LoanKindNonEMI // still carries a tenure

	if _, err := l.SaveLoan(loan); err == nil {
		t.Error("Expected validation error for non-EMI loan with a tenure")
	}
}

func TestRecordPayment_AppendsPaymentAndWritesExpense(t *testing.T) {
	st := NewMockStore()
	l := NewLedger(st)

	saved, _ := l.SaveLoan(newEMILoan())

	amount := decimal.NewFromInt(5000)
	payment, err := l.RecordPayment(saved.ID, date(2024, time.February, 15), amount, "February EMI")
	if err != nil {
		t.Fatalf("Failed to record payment: %v", err)
	}
	if !payment.Amount.Equal(amount) {
		t.Errorf("Expected payment amount %s, got %s", amount, payment.Amount)
	}

	fetched, _ := l.GetLoan(saved.ID)
	if len(fetched.Payments) != 1 {
		t.Fatalf("Expected 1 payment on loan, got %d", len(fetched.Payments))
	}
	if fetched.Status != models.LoanStatusActive {
		t.Errorf("Expected loan to stay active, got %s", fetched.Status)
	}

	txs, _ := st.GetAllTransactions()
	if len(txs) != 1 {
		t.Fatalf("Expected 1 linked transaction, got %d", len(txs))
	}
	if txs[0].Kind != models.TransactionKindExpense {
		t.Errorf("Expected expense transaction, got %s", txs[0].Kind)
	}
	if txs[0].Category != "Debt Repayment" {
		t.Errorf("Expected category Debt Repayment, got %s", txs[0].Category)
	}
	if !txs[0].Amount.Equal(amount) {
		t.Errorf("Expected transaction amount %s, got %s", amount, txs[0].Amount)
	}
}

func TestRecordPayment_CompletesLoanAtZeroBalance(t *testing.T) {
	l := NewLedger(NewMockStore())

	loan := newEMILoan()
	loan.TenureMonths = 2
	loan.Principal = decimal.NewFromInt(10000)
	saved, _ := l.SaveLoan(loan)

	emi := decimal.NewFromInt(5000)
	if _, err := l.RecordPayment(saved.ID, date(2024, time.February, 15), emi, ""); err != nil {
		t.Fatalf("Failed to record first payment: %v", err)
	}
	if _, err := l.RecordPayment(saved.ID, date(2024, time.March, 15), emi, ""); err != nil {
		t.Fatalf("Failed to record second payment: %v", err)
	}

	fetched, _ := l.GetLoan(saved.ID)
	if fetched.Status != models.LoanStatusCompleted {
		t.Errorf("Expected status completed, got %s", fetched.Status)
	}
	if !RemainingPrincipal(fetched).IsZero() {
		t.Errorf("Expected zero remaining principal, got %s", RemainingPrincipal(fetched))
	}

	// Completed loans accept no further payments.
	if _, err := l.RecordPayment(saved.ID, date(2024, time.April, 15), emi, ""); err == nil {
		t.Error("Expected error recording payment on completed loan")
	}
}

func TestForeclose(t *testing.T) {
	st := NewMockStore()
	l := NewLedger(st)

	saved, _ := l.SaveLoan(newEMILoan())

	settlement := decimal.NewFromInt(30000)
	loan, err := l.Foreclose(saved.ID, settlement, date(2024, time.June, 1))
	if err != nil {
		t.Fatalf("Failed to foreclose loan: %v", err)
	}

	if !loan.IsForeclosed {
		t.Error("Expected loan to be flagged foreclosed")
	}
	if loan.Status != models.LoanStatusCompleted {
		t.Errorf("Expected status completed, got %s", loan.Status)
	}
	if !RemainingPrincipal(loan).IsZero() {
		t.Errorf("Expected zero remaining principal after foreclosure, got %s", RemainingPrincipal(loan))
	}
	if len(loan.Payments) != 1 || !loan.Payments[0].Amount.Equal(settlement) {
		t.Error("Expected the settlement to be recorded as a payment")
	}

	txs, _ := st.GetAllTransactions()
	if len(txs) != 1 {
		t.Errorf("Expected a settlement transaction, got %d", len(txs))
	}
}

func TestSaveTransaction_UpsertAndDelete(t *testing.T) {
	l := NewLedger(NewMockStore())

	tx, err := l.SaveTransaction(&models.Transaction{
		Date:     date(2024, time.May, 1),
		Amount:   decimal.NewFromInt(1200),
		Kind:     models.TransactionKindIncome,
		Category: "Salary",
	})
	if err != nil {
		t.Fatalf("Failed to save transaction: %v", err)
	}

	tx.Amount = decimal.NewFromInt(1500)
	if _, err := l.SaveTransaction(tx); err != nil {
		t.Fatalf("Failed to upsert transaction: %v", err)
	}

	txs, _ := l.GetAllTransactions()
	if len(txs) != 1 {
		t.Fatalf("Expected 1 transaction after upsert, got %d", len(txs))
	}
	if !txs[0].Amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected updated amount 1500, got %s", txs[0].Amount)
	}

	if err := l.DeleteTransaction(tx.ID); err != nil {
		t.Fatalf("Failed to delete transaction: %v", err)
	}
	if err := l.DeleteTransaction(tx.ID); err == nil {
		t.Error("Expected error deleting a missing transaction")
	}
}

func TestSaveTransaction_RejectsNonPositiveAmount(t *testing.T) {
	l := NewLedger(NewMockStore())

	_, err := l.SaveTransaction(&models.Transaction{
		Date:   date(2024, time.May, 1),
		Amount: decimal.NewFromInt(-50),
		Kind:   models.TransactionKindExpense,
	})
	if err == nil {
		t.Error("Expected validation error for negative amount")
	}
}

func TestGetSnapshot(t *testing.T) {
	l := NewLedger(NewMockStore())

	saved, _ := l.SaveLoan(newEMILoan())
	l.RecordPayment(saved.ID, date(2024, time.February, 15), decimal.NewFromInt(5000), "")

	snapshot, err := l.GetSnapshot()
	if err != nil {
		t.Fatalf("Failed to build snapshot: %v", err)
	}
	if len(snapshot.Loans) != 1 {
		t.Errorf("Expected 1 loan in snapshot, got %d", len(snapshot.Loans))
	}
	if len(snapshot.Loans[0].Payments) != 1 {
		t.Errorf("Expected loan payments in snapshot, got %d", len(snapshot.Loans[0].Payments))
	}
	if len(snapshot.Transactions) != 1 {
		t.Errorf("Expected the repayment transaction in snapshot, got %d", len(snapshot.Transactions))
	}
}
