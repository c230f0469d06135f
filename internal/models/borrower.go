package models

import "time"

type Borrower struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	GuardianName string    `json:"guardian_name"` // S/O or guarantor
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	PanID        string    `json:"pan_id"`
	AgentID      *int      `json:"agent_id"`
	AgentName    string    `json:"agent_name,omitempty"`
	ActiveLoans  int       `json:"active_loans"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateBorrowerRequest represents the request body for creating a borrower
type CreateBorrowerRequest struct {
	Name         string `json:"name" validate:"required"`
	GuardianName string `json:"guardian_name"`
	Phone        string `json:"phone" validate:"required"`
	Address      string `json:"address"`
	PanID        string `json:"pan_id" validate:"required"`
	AgentID      *int   `json:"agent_id" validate:"omitempty,gt=0"`
}

// UpdateBorrowerRequest replaces every editable field (PUT)
type UpdateBorrowerRequest struct {
	Name         string `json:"name" validate:"required"`
	GuardianName string `json:"guardian_name"`
	Phone        string `json:"phone" validate:"required"`
	Address      string `json:"address"`
	PanID        string `json:"pan_id" validate:"required"`
	AgentID      *int   `json:"agent_id" validate:"omitempty,gt=0"`
}

// BorrowerFilter narrows borrower listings
type BorrowerFilter struct {
	Search  string
	AgentID *int
	Limit   int
	Offset  int
}

// ImportBorrowerItem is one borrower of a bulk import, optionally with a first loan
type ImportBorrowerItem struct {
	CreateBorrowerRequest
	Loan *CreateLoanRequest `json:"loan,omitempty"`
}

// ImportBorrowersRequest is the body of POST /api/admin/borrowers/import
type ImportBorrowersRequest struct {
	Borrowers []ImportBorrowerItem `json:"borrowers" validate:"required,min=1,dive"`
}

// ImportResult lists everything created by one import
type ImportResult struct {
	Borrowers []Borrower `json:"borrowers"`
	Loans     []Loan     `json:"loans"`
}

// ImportDraft is one validated import row ready to persist; Loan carries its schedule
type ImportDraft struct {
	Borrower CreateBorrowerRequest
	Loan     *Loan
}
