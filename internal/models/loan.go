package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// Frequency is how often a loan's installments fall due
type Frequency string

const (
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyDaily   Frequency = "DAILY"
)

// Valid reports whether f is one of the supported frequencies
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyWeekly, FrequencyDaily:
		return true
	}
	return false
}

type LoanStatus string

const (
	LoanStatusActive  LoanStatus = "ACTIVE"
	LoanStatusSettled LoanStatus = "SETTLED"
)

type Loan struct {
	ID             int             `json:"id"`
	BorrowerID     int             `json:"borrower_id"`
	BorrowerName   string          `json:"borrower_name,omitempty"`
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"` // percent per month, flat
	DurationMonths int             `json:"duration_months"`
	Frequency      Frequency       `json:"frequency"`
	StartDate      time.Time       `json:"start_date"`
	Status         LoanStatus      `json:"status"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Installments   []Installment   `json:"installments,omitempty"`
}

// CreateLoanRequest represents the request body for creating (or previewing) a loan.
// Amount and duration ranges are checked by the schedule generator.
type CreateLoanRequest struct {
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	DurationMonths int             `json:"duration_months" validate:"max=120"`
	Frequency      Frequency       `json:"frequency" validate:"required,oneof=MONTHLY WEEKLY DAILY"`
	StartDate      string          `json:"start_date" validate:"required"`
}

// LoanPreview is a schedule that has not been persisted
type LoanPreview struct {
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	DurationMonths int             `json:"duration_months"`
	Frequency      Frequency       `json:"frequency"`
	StartDate      time.Time       `json:"start_date"`
	Periods        int             `json:"periods"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	TotalPayable   decimal.Decimal `json:"total_payable"`
	Installments   []Installment   `json:"installments"`
}
