package ledger

import (
	"math"
	"time"

	"github.com/hverma/loantrack/pkg/models"
	"github.com/shopspring/decimal"
)

// Bisection bounds and limits for the implied-rate solver. The monthly rate
// is searched in (solverRateMin, solverRateMax) as a fraction, i.e. up to 5%
// per month.
const (
	solverRateMin    = 0.000001
	solverRateMax    = 0.05
	solverIterations = 50
	solverTolerance  = 0.01
)

// Results below one currency unit collapse to zero to absorb rounding drift.
var epsilonFloor = decimal.NewFromInt(1)

// RemainingPrincipal derives the balance still owed on a loan under the flat
// running-balance model: total scheduled cost minus everything paid, floored
// at zero. A completed status is authoritative and always yields zero.
//
// For EMI loans the total cost is installment * tenure, a flat-schedule
// approximation that does not decompose interest from principal per payment.
// For non-EMI loans the principal itself is the total cost.
func RemainingPrincipal(loan *models.Loan) decimal.Decimal {
	if loan.Status == models.LoanStatusCompleted {
		return decimal.Zero
	}

	totalPaid := decimal.Zero
	for _, p := range loan.Payments {
		totalPaid = totalPaid.Add(p.Amount)
	}

	totalCost := loan.Principal
	prePaid := decimal.Zero
	if loan.Kind == models.LoanKindEMI {
		totalCost = loan.EMIAmount.Mul(decimal.NewFromInt(int64(loan.TenureMonths)))
		prePaid = loan.EMIAmount.Mul(decimal.NewFromInt(int64(loan.InitialPaidMonths)))
	}

	remaining := totalCost.Sub(totalPaid).Sub(prePaid)
	if remaining.LessThan(epsilonFloor) {
		return decimal.Zero
	}
	return remaining
}

// NextDueDate resolves the next installment date for a loan. Advancement is
// payment-count-driven: every recorded payment satisfies exactly one month's
// obligation regardless of its amount, so partial payments still move the
// schedule a full month. The result is normalized to midnight.
func NextDueDate(loan *models.Loan, now time.Time) time.Time {
	if loan.StartDate.IsZero() {
		return midnight(now)
	}

	start := midnight(loan.StartDate)
	dueDay := loan.DueDateDay
	if dueDay < 1 || dueDay > 31 {
		dueDay = start.Day()
	}

	// First due date is the first occurrence of the due day strictly after
	// the start date.
	months := 0
	if !dayOfMonth(start.Year(), start.Month(), dueDay, start.Location()).After(start) {
		months = 1
	}
	months += len(loan.Payments) + loan.InitialPaidMonths

	y, m := start.Year(), int(start.Month())+months
	y += (m - 1) / 12
	m = (m-1)%12 + 1
	return dayOfMonth(y, time.Month(m), dueDay, start.Location())
}

// DaysUntil counts whole days from now until target, both taken at midnight.
// Negative means overdue by that many days, zero means due today. Each
// instant is read as the calendar date its own wall clock shows, so a due
// date stored in UTC compares correctly against a local clock.
func DaysUntil(target, now time.Time) int {
	diff := dateOnly(target).Sub(dateOnly(now))
	return int(math.Ceil(diff.Hours() / 24))
}

// EndDate projects the final installment date of a fixed-tenure loan using
// calendar month arithmetic. Go's AddDate normalization applies, so a start
// of Jan 31 plus one month lands on Mar 2 (or Mar 3 in non-leap years).
func EndDate(start time.Time, tenureMonths int) time.Time {
	return midnight(start).AddDate(0, tenureMonths, 0)
}

// ImpliedAnnualRate back-solves the nominal annual rate (monthly rate * 12,
// as a percentage rounded to two places) from a loan's principal, tenure and
// installment via bisection on the amortizing-installment formula
//
//	EMI(r) = P*r*(1+r)^n / ((1+r)^n - 1)
//
// Non-positive inputs, or a schedule that cannot even repay principal
// (emi*n < principal), return 0 rather than an error.
func ImpliedAnnualRate(principal decimal.Decimal, tenureMonths int, emi decimal.Decimal) float64 {
	p := principal.InexactFloat64()
	e := emi.InexactFloat64()
	n := float64(tenureMonths)
	if p <= 0 || e <= 0 || tenureMonths <= 0 || e*n < p {
		return 0
	}

	low, high := solverRateMin, solverRateMax
	mid := low
	for i := 0; i < solverIterations; i++ {
		mid = (low + high) / 2
		calc := installmentAt(p, mid, n)
		if math.Abs(calc-e) < solverTolerance {
			break
		}
		if calc > e {
			high = mid
		} else {
			low = mid
		}
	}

	annualPct := mid * 12 * 100
	return math.Round(annualPct*100) / 100
}

func installmentAt(principal, monthlyRate, months float64) float64 {
	factor := math.Pow(1+monthlyRate, months)
	return principal * monthlyRate * factor / (factor - 1)
}

// dayOfMonth builds a midnight date on the given day, clamped to the month's
// last day when the month is shorter (due day 31 in February lands on the
// 28th or 29th).
func dayOfMonth(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day zero of the following month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dateOnly projects an instant onto its own calendar date, rebuilt in UTC so
// dates observed in different zones difference to whole days.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
