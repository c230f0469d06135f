package loancalc

import (
	"loan-backend/internal/models"

	"github.com/shopspring/decimal"
)

// ComputeProfit folds grouped ledger totals into interest collected, other income,
// expenses and profit. NEUTRAL rows are skipped. CAPITAL and OTHER do not count.
func ComputeProfit(totals []models.LedgerTotal) models.ProfitSummary {
	sum := models.ProfitSummary{
		InterestCollected: decimal.Zero,
		OtherIncome:       decimal.Zero,
		Expenses:          decimal.Zero,
	}
	for _, t := range totals {
		if t.Category == models.CategoryNeutral {
			continue
		}
		switch t.Type {
		case models.TransactionInstallment:
			sum.InterestCollected = sum.InterestCollected.Add(t.InterestAmount)
		case models.TransactionIncome:
			sum.OtherIncome = sum.OtherIncome.Add(t.Amount)
		case models.TransactionExpense:
			sum.Expenses = sum.Expenses.Add(t.Amount)
		}
	}
	sum.Profit = sum.InterestCollected.Add(sum.OtherIncome).Sub(sum.Expenses)
	return sum
}
