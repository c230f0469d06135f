package loancalc

import (
	"time"

	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// SweepCutoff is the start of today in IST. Rows due strictly before it are late.
func SweepCutoff(now time.Time) time.Time {
	return timeutil.StartOfDay(now)
}

// IsOverdue reports whether a PENDING installment has passed its due date
func IsOverdue(inst models.Installment, now time.Time) bool {
	if inst.Status != models.InstallmentPending {
		return false
	}
	return timeutil.CalendarDate(inst.DueDate).Before(SweepCutoff(now))
}

// Sweep marks late PENDING rows OVERDUE in place and returns the ones it changed.
// Running it twice is a no-op the second time.
func Sweep(items []models.Installment, now time.Time) []models.Installment {
	var changed []models.Installment
	for i := range items {
		if IsOverdue(items[i], now) {
			items[i].Status = models.InstallmentOverdue
			changed = append(changed, items[i])
		}
	}
	return changed
}

// ContinuationDue returns the due date of the current month's row for a monthly loan
// started on start, and whether the loan is eligible (it must start before this month).
func ContinuationDue(start, now time.Time) (time.Time, bool) {
	monthStart := timeutil.StartOfMonth(now)
	start = timeutil.CalendarDate(start)
	if !start.Before(monthStart) {
		return time.Time{}, false
	}
	day := start.Day()
	if last := timeutil.DaysInMonth(now); day > last {
		day = last
	}
	return time.Date(monthStart.Year(), monthStart.Month(), day, 0, 0, 0, 0, timeutil.IST), true
}

// ContinuationInstallment is the interest-only row added for a running monthly loan
func ContinuationInstallment(loan models.Loan, number int, due time.Time) models.Installment {
	interest := MonthlyInterest(loan.Principal, loan.InterestRate)
	return models.Installment{
		LoanID:            loan.ID,
		Number:            number,
		DueDate:           due,
		PrincipalAmount:   decimal.Zero,
		InterestAmount:    interest,
		InstallmentAmount: decimal.Zero,
		Amount:            interest,
		Status:            models.InstallmentPending,
		PenaltyAmount:     decimal.Zero,
		ExtraAmount:       decimal.Zero,
		DueAmount:         decimal.Zero,
	}
}
