// Package loancalc holds the pure loan arithmetic: schedule generation, payment
// application and reversal, overdue classification and profit aggregation.
// Nothing here touches the database or the clock.
package loancalc

import (
	"time"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Limits of a schedulable loan. The rate and principal bounds follow the loans columns.
const MaxDurationMonths = 120

var (
	maxInterestRate = decimal.NewFromInt(100)
	maxPrincipal    = decimal.RequireFromString("999999999999.99")
)

// Params are the inputs of a flat-rate schedule. InterestRate is percent per month.
type Params struct {
	Principal      decimal.Decimal
	InterestRate   decimal.Decimal
	DurationMonths int
	Frequency      models.Frequency
	StartDate      time.Time
}

// Schedule is a generated, unsaved installment plan
type Schedule struct {
	Periods       int
	TotalInterest decimal.Decimal
	TotalPayable  decimal.Decimal
	Installments  []models.Installment
}

// Validate rejects parameters the generator cannot schedule
func (p Params) Validate() error {
	switch {
	case !p.Principal.IsPositive(), p.Principal.GreaterThan(maxPrincipal):
		return apperrors.ErrInvalidLoanParameters
	case p.InterestRate.IsNegative(), p.InterestRate.GreaterThan(maxInterestRate):
		return apperrors.ErrInvalidLoanParameters
	case p.DurationMonths <= 0, p.DurationMonths > MaxDurationMonths:
		return apperrors.ErrInvalidLoanParameters
	case !p.Frequency.Valid():
		return apperrors.ErrInvalidLoanParameters
	}
	return nil
}

// Periods returns how many installments a loan of durationMonths has
func Periods(freq models.Frequency, durationMonths int) int {
	switch freq {
	case models.FrequencyWeekly:
		return durationMonths * 4
	case models.FrequencyDaily:
		return durationMonths * 30
	default:
		return durationMonths
	}
}

// TotalInterest is principal × rate/100 × months
func TotalInterest(principal, rate decimal.Decimal, durationMonths int) decimal.Decimal {
	return principal.Mul(rate).Div(hundred).Mul(decimal.NewFromInt(int64(durationMonths))).Round(2)
}

// MonthlyInterest is the interest of one month on the full principal
func MonthlyInterest(principal, rate decimal.Decimal) decimal.Decimal {
	return principal.Mul(rate).Div(hundred).Round(2)
}

// DueDate returns the due date of the 0-indexed period i
func DueDate(start time.Time, freq models.Frequency, i int) time.Time {
	start = timeutil.CalendarDate(start)
	switch freq {
	case models.FrequencyWeekly:
		return start.AddDate(0, 0, (i+1)*7)
	case models.FrequencyDaily:
		return start.AddDate(0, 0, i+1)
	default:
		return AddMonthsClamped(start, i+1)
	}
}

// AddMonthsClamped adds n calendar months, pinning the day to the target month's last
// day when it would otherwise overflow (Jan 31 + 1 → Feb 28).
func AddMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// Generate builds the schedule for p. Shares are truncated to paise and the final
// installment takes the remainder, so the principal and interest columns sum exactly.
func Generate(p Params) (*Schedule, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	periods := Periods(p.Frequency, p.DurationMonths)
	n := decimal.NewFromInt(int64(periods))
	totalInterest := TotalInterest(p.Principal, p.InterestRate, p.DurationMonths)

	principalPer := p.Principal.Div(n).Truncate(2)
	interestPer := totalInterest.Div(n).Truncate(2)

	items := make([]models.Installment, 0, periods)
	principalLeft := p.Principal
	interestLeft := totalInterest
	for i := 0; i < periods; i++ {
		principal, interest := principalPer, interestPer
		if i == periods-1 {
			principal, interest = principalLeft, interestLeft
		}
		principalLeft = principalLeft.Sub(principal)
		interestLeft = interestLeft.Sub(interest)

		items = append(items, models.Installment{
			Number:            i + 1,
			DueDate:           DueDate(p.StartDate, p.Frequency, i),
			PrincipalAmount:   principal,
			InterestAmount:    interest,
			InstallmentAmount: principal,
			Amount:            principal.Add(interest),
			Status:            models.InstallmentPending,
			PenaltyAmount:     decimal.Zero,
			ExtraAmount:       decimal.Zero,
			DueAmount:         decimal.Zero,
		})
	}

	return &Schedule{
		Periods:       periods,
		TotalInterest: totalInterest,
		TotalPayable:  p.Principal.Add(totalInterest),
		Installments:  items,
	}, nil
}

// Preview wraps a generated schedule for the API
func Preview(p Params) (*models.LoanPreview, error) {
	s, err := Generate(p)
	if err != nil {
		return nil, err
	}
	return &models.LoanPreview{
		Principal:      p.Principal,
		InterestRate:   p.InterestRate,
		DurationMonths: p.DurationMonths,
		Frequency:      p.Frequency,
		StartDate:      timeutil.CalendarDate(p.StartDate),
		Periods:        s.Periods,
		TotalInterest:  s.TotalInterest,
		TotalPayable:   s.TotalPayable,
		Installments:   s.Installments,
	}, nil
}
