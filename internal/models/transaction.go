package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger row
type TransactionType string

const (
	TransactionExpense     TransactionType = "EXPENSE"
	TransactionIncome      TransactionType = "INCOME"
	TransactionCapital     TransactionType = "CAPITAL"
	TransactionInstallment TransactionType = "INSTALLMENT" // created only by collection
	TransactionOther       TransactionType = "OTHER"
)

// Category is the business category of a ledger row
type Category string

const (
	CategoryCollection   Category = "COLLECTION"
	CategorySalary       Category = "SALARY"
	CategoryRent         Category = "RENT"
	CategoryTravel       Category = "TRAVEL"
	CategoryOffice       Category = "OFFICE"
	CategoryFees         Category = "FEES"
	CategoryInvestment   Category = "INVESTMENT"
	CategoryDisbursement Category = "DISBURSEMENT"
	CategoryMisc         Category = "MISC"
	CategoryNeutral      Category = "NEUTRAL" // excluded from every profit/income/expense total
)

type Transaction struct {
	ID             int             `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	InterestAmount decimal.Decimal `json:"interest_amount"` // interest share of an INSTALLMENT row
	Type           TransactionType `json:"type"`
	Category       Category        `json:"category"`
	InstallmentID  *int            `json:"installment_id"`
	LoanID         *int            `json:"loan_id,omitempty"`
	BorrowerName   string          `json:"borrower_name,omitempty"`
	Notes          string          `json:"notes"`
	CreatedBy      *int            `json:"created_by,omitempty"`
	CreatedByName  string          `json:"created_by_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateTransactionRequest creates a manual ledger row. INSTALLMENT rows come from collection only.
type CreateTransactionRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Type     TransactionType `json:"type" validate:"required,oneof=EXPENSE INCOME CAPITAL OTHER"`
	Category Category        `json:"category" validate:"required,oneof=COLLECTION SALARY RENT TRAVEL OFFICE FEES INVESTMENT DISBURSEMENT MISC NEUTRAL"`
	Notes    string          `json:"notes"`
	Date     string          `json:"date"`
}

// UpdateTransactionRequest is a PATCH; nil fields are left unchanged
type UpdateTransactionRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Type     *TransactionType `json:"type" validate:"omitempty,oneof=EXPENSE INCOME CAPITAL OTHER"`
	Category *Category        `json:"category" validate:"omitempty,oneof=COLLECTION SALARY RENT TRAVEL OFFICE FEES INVESTMENT DISBURSEMENT MISC NEUTRAL"`
	Notes    *string          `json:"notes"`
	Date     *string          `json:"date"`
}

// TransactionFilter narrows ledger listings
type TransactionFilter struct {
	Search    string
	Type      TransactionType
	Category  Category
	From      *time.Time
	To        *time.Time
	CreatedBy *int
	Page      int
	Limit     int
}

// TransactionPage is one page of a ledger listing
type TransactionPage struct {
	Items []Transaction `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// LedgerTotal is a grouped sum of ledger rows
type LedgerTotal struct {
	Type           TransactionType `json:"type"`
	Category       Category        `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	InterestAmount decimal.Decimal `json:"interest_amount"`
}
