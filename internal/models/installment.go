package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
	InstallmentSkipped InstallmentStatus = "SKIPPED"
)

// Valid reports whether s is a known installment status
func (s InstallmentStatus) Valid() bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue, InstallmentSkipped:
		return true
	}
	return false
}

type Installment struct {
	ID                int               `json:"id"`
	LoanID            int               `json:"loan_id"`
	Number            int               `json:"number"`
	DueDate           time.Time         `json:"due_date"`
	PrincipalAmount   decimal.Decimal   `json:"principal_amount"`
	InterestAmount    decimal.Decimal   `json:"interest_amount"`
	InstallmentAmount decimal.Decimal   `json:"installment_amount"` // principal due for the period
	Amount            decimal.Decimal   `json:"amount"`             // principal + interest due
	Status            InstallmentStatus `json:"status"`
	PaidAt            *time.Time        `json:"paid_at"`
	PenaltyAmount     decimal.Decimal   `json:"penalty_amount"`
	ExtraAmount       decimal.Decimal   `json:"extra_amount"`
	DueAmount         decimal.Decimal   `json:"due_amount"` // unpaid remainder after a partial payment
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	// Joined for agent and overdue listings
	BorrowerID   int    `json:"borrower_id,omitempty"`
	BorrowerName string `json:"borrower_name,omitempty"`
}

// CollectRequest is the body of a collection against one installment.
// Amount is the principal portion received; it is required (zero is allowed).
type CollectRequest struct {
	Amount        *decimal.Decimal `json:"amount"`
	PenaltyAmount decimal.Decimal  `json:"penalty_amount"`
	ExtraAmount   decimal.Decimal  `json:"extra_amount"`
	PaidAt        string           `json:"paid_at"`
	Notes         string           `json:"notes"`
}

// UpdateInstallmentRequest is an admin PATCH; nil fields are left unchanged
type UpdateInstallmentRequest struct {
	DueDate           *string            `json:"due_date"`
	PrincipalAmount   *decimal.Decimal   `json:"principal_amount"`
	InterestAmount    *decimal.Decimal   `json:"interest_amount"`
	InstallmentAmount *decimal.Decimal   `json:"installment_amount"`
	Amount            *decimal.Decimal   `json:"amount"`
	Status            *InstallmentStatus `json:"status" validate:"omitempty,oneof=PENDING PAID OVERDUE SKIPPED"`
	PaidAt            *string            `json:"paid_at"`
	PenaltyAmount     *decimal.Decimal   `json:"penalty_amount"`
	ExtraAmount       *decimal.Decimal   `json:"extra_amount"`
	DueAmount         *decimal.Decimal   `json:"due_amount"`
}

// CollectionState is what the collection transaction locks and hands to the payment rules
type CollectionState struct {
	Installment Installment
	Frequency   Frequency
	BorrowerID  int
	AgentID     *int
}

// CollectionResult is returned after a successful collection
type CollectionResult struct {
	Installment Installment `json:"installment"`
	Transaction Transaction `json:"transaction"`
	LoanStatus  LoanStatus  `json:"loan_status"`
}

// GenerationResult reports rows added by the monthly continuation run
type GenerationResult struct {
	Generated    int           `json:"generated"`
	Installments []Installment `json:"installments"`
}

// ContinuationCandidate is an ACTIVE monthly loan missing this month's row
type ContinuationCandidate struct {
	Loan       Loan
	LastNumber int
}
