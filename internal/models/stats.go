package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentTotals are the schedule-side sums of the dashboards
type InstallmentTotals struct {
	PendingCount     int             `json:"pending_count"`
	PendingAmount    decimal.Decimal `json:"pending_amount"`
	OverdueCount     int             `json:"overdue_count"`
	OverdueAmount    decimal.Decimal `json:"overdue_amount"`
	DueTodayCount    int             `json:"due_today_count"`
	ShortfallAmount  decimal.Decimal `json:"shortfall_amount"` // Σ due_amount of partially paid rows
	PenaltyCollected decimal.Decimal `json:"penalty_collected"`
}

// CollectionTotals sums INSTALLMENT ledger rows in a window
type CollectionTotals struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitSummary is interest collected + other income − expenses, NEUTRAL excluded
type ProfitSummary struct {
	InterestCollected decimal.Decimal `json:"interest_collected"`
	OtherIncome       decimal.Decimal `json:"other_income"`
	Expenses          decimal.Decimal `json:"expenses"`
	Profit            decimal.Decimal `json:"profit"`
}

type AdminStats struct {
	Agents         int               `json:"agents"`
	Borrowers      int               `json:"borrowers"`
	ActiveLoans    int               `json:"active_loans"`
	CollectedToday CollectionTotals  `json:"collected_today"`
	Installments   InstallmentTotals `json:"installments"`
	Profit         ProfitSummary     `json:"profit"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

type AgentStats struct {
	AgentID        int               `json:"agent_id"`
	Borrowers      int               `json:"borrowers"`
	ActiveLoans    int               `json:"active_loans"`
	CollectedToday CollectionTotals  `json:"collected_today"`
	Installments   InstallmentTotals `json:"installments"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// StatsScope restricts the counting queries; a nil AgentID means the whole book
type StatsScope struct {
	AgentID *int
	From    time.Time
	To      time.Time
}
