package ledger

import (
	"time"

	"github.com/hverma/loantrack/pkg/models"
	"github.com/shopspring/decimal"
)

// PortfolioSummary folds the full loan and transaction collections into the
// dashboard-level metrics.
type PortfolioSummary struct {
	TotalOutstanding          decimal.Decimal `json:"totalOutstanding"`
	MonthlyLiability          decimal.Decimal `json:"monthlyLiability"`
	RemainingMonthlyLiability decimal.Decimal `json:"remainingMonthlyLiability"`
	IncomeCount               int             `json:"incomeCount"`
	IncomeTotal               decimal.Decimal `json:"incomeTotal"`
	ExpenseCount              int             `json:"expenseCount"`
	ExpenseTotal              decimal.Decimal `json:"expenseTotal"`
}

// Summarize computes portfolio metrics over all loans and transactions.
// Only active loans contribute to outstanding and liability totals. A loan
// drops out of the remaining monthly liability once any payment is recorded
// inside now's calendar month; this is a calendar match, deliberately
// independent of the due-date resolver's payment-count progression.
func Summarize(loans []*models.Loan, txs []*models.Transaction, now time.Time) PortfolioSummary {
	s := PortfolioSummary{
		TotalOutstanding:          decimal.Zero,
		MonthlyLiability:          decimal.Zero,
		RemainingMonthlyLiability: decimal.Zero,
		IncomeTotal:               decimal.Zero,
		ExpenseTotal:              decimal.Zero,
	}

	for _, loan := range loans {
		if loan.Status != models.LoanStatusActive {
			continue
		}
		s.TotalOutstanding = s.TotalOutstanding.Add(RemainingPrincipal(loan))
		if !loan.EMIAmount.IsPositive() {
			continue
		}
		s.MonthlyLiability = s.MonthlyLiability.Add(loan.EMIAmount)
		if !paidThisMonth(loan, now) {
			s.RemainingMonthlyLiability = s.RemainingMonthlyLiability.Add(loan.EMIAmount)
		}
	}

	for _, tx := range txs {
		switch tx.Kind {
		case models.TransactionKindIncome:
			s.IncomeCount++
			s.IncomeTotal = s.IncomeTotal.Add(tx.Amount)
		case models.TransactionKindExpense:
			s.ExpenseCount++
			s.ExpenseTotal = s.ExpenseTotal.Add(tx.Amount)
		}
	}

	return s
}

func paidThisMonth(loan *models.Loan, now time.Time) bool {
	for _, p := range loan.Payments {
		if p.Date.Year() == now.Year() && p.Date.Month() == now.Month() {
			return true
		}
	}
	return false
}
