package loancalc

import (
	"time"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Payment is one collection against an installment.
// Received is the principal portion handed over by the borrower.
type Payment struct {
	Received decimal.Decimal
	Penalty  decimal.Decimal
	Extra    decimal.Decimal
	PaidAt   time.Time
}

// Outcome is the installment after the payment and the ledger figures it produces
type Outcome struct {
	Installment    models.Installment
	Applied        decimal.Decimal
	LedgerAmount   decimal.Decimal
	LedgerInterest decimal.Decimal
}

// ApplyPayment applies p to inst. Only PENDING and OVERDUE rows can be collected.
func ApplyPayment(inst models.Installment, freq models.Frequency, p Payment) (*Outcome, error) {
	if inst.Status == models.InstallmentPaid || inst.Status == models.InstallmentSkipped {
		return nil, apperrors.Conflict("installment %d is already %s", inst.ID, inst.Status)
	}
	if p.Received.IsNegative() || p.Penalty.IsNegative() || p.Extra.IsNegative() {
		return nil, apperrors.Invalid("amounts must not be negative")
	}

	applied := decimal.Min(p.Received, inst.InstallmentAmount)
	if applied.IsNegative() {
		applied = decimal.Zero
	}

	paidAt := p.PaidAt
	out := inst
	out.DueAmount = inst.InstallmentAmount.Sub(applied)
	out.Status = models.InstallmentPaid
	out.PaidAt = &paidAt
	out.PenaltyAmount = p.Penalty
	out.ExtraAmount = p.Extra

	ledger, interest := LedgerAmount(applied, inst.InterestAmount, p.Extra, freq)
	return &Outcome{
		Installment:    out,
		Applied:        applied,
		LedgerAmount:   ledger,
		LedgerInterest: interest,
	}, nil
}

// LedgerAmount is what the INSTALLMENT ledger row records for a collection, and the
// interest share within it. Penalty is never included.
func LedgerAmount(applied, interest, extra decimal.Decimal, freq models.Frequency) (decimal.Decimal, decimal.Decimal) {
	switch {
	case applied.IsPositive():
		return applied.Add(interest).Add(extra), interest
	case freq == models.FrequencyMonthly:
		// interest-only month
		return interest.Add(extra), interest
	default:
		return extra, decimal.Zero
	}
}

// Revert returns inst to its state before any collection
func Revert(inst models.Installment) models.Installment {
	inst.Status = models.InstallmentPending
	inst.PaidAt = nil
	inst.DueAmount = decimal.Zero
	inst.PenaltyAmount = decimal.Zero
	inst.ExtraAmount = decimal.Zero
	return inst
}

// Settled reports whether every installment is PAID or SKIPPED with no shortfall left
func Settled(items []models.Installment) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if it.Status != models.InstallmentPaid && it.Status != models.InstallmentSkipped {
			return false
		}
		if it.DueAmount.IsPositive() {
			return false
		}
	}
	return true
}
