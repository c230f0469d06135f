package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"
)

type StatsRepository struct {
	DB *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{DB: db}
}

// Counts returns agent, borrower and active loan counts. Agents is 0 for an agent scope.
func (r *StatsRepository) Counts(ctx context.Context, scope models.StatsScope) (agents, borrowers, activeLoans int, err error) {
	err = r.DB.QueryRow(ctx, `
		SELECT
			CASE WHEN $1::int IS NULL THEN (SELECT COUNT(*) FROM agents) ELSE 0 END,
			(SELECT COUNT(*) FROM borrowers b WHERE $1::int IS NULL OR b.agent_id = $1),
			(SELECT COUNT(*) FROM loans l JOIN borrowers b ON b.id = l.borrower_id
			 WHERE l.status = 'ACTIVE' AND ($1::int IS NULL OR b.agent_id = $1))`,
		scope.AgentID,
	).Scan(&agents, &borrowers, &activeLoans)
	return
}

// InstallmentTotals sums the schedule side of the dashboard. scope.To is "today".
func (r *StatsRepository) InstallmentTotals(ctx context.Context, scope models.StatsScope) (*models.InstallmentTotals, error) {
	var t models.InstallmentTotals
	err := r.DB.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE i.status = 'PENDING'),
			COALESCE(SUM(i.amount) FILTER (WHERE i.status = 'PENDING'), 0),
			COUNT(*) FILTER (WHERE i.status = 'OVERDUE'),
			COALESCE(SUM(i.amount) FILTER (WHERE i.status = 'OVERDUE'), 0),
			COUNT(*) FILTER (WHERE i.status IN ('PENDING', 'OVERDUE') AND i.due_date = $2::date),
			COALESCE(SUM(i.due_amount) FILTER (WHERE i.status = 'PAID'), 0),
			COALESCE(SUM(i.penalty_amount), 0)
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		JOIN borrowers b ON b.id = l.borrower_id
		WHERE $1::int IS NULL OR b.agent_id = $1`,
		scope.AgentID, timeutil.DateString(scope.To),
	).Scan(&t.PendingCount, &t.PendingAmount, &t.OverdueCount, &t.OverdueAmount, &t.DueTodayCount,
		&t.ShortfallAmount, &t.PenaltyCollected)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CollectionTotals sums INSTALLMENT ledger rows booked in [scope.From, scope.To]
func (r *StatsRepository) CollectionTotals(ctx context.Context, scope models.StatsScope) (*models.CollectionTotals, error) {
	var t models.CollectionTotals
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(t.amount), 0)
		FROM transactions t
		LEFT JOIN installments i ON i.id = t.installment_id
		LEFT JOIN loans l ON l.id = i.loan_id
		LEFT JOIN borrowers b ON b.id = l.borrower_id
		WHERE t.type = 'INSTALLMENT' AND t.category <> 'NEUTRAL'
		  AND t.created_at >= $2 AND t.created_at <= $3
		  AND ($1::int IS NULL OR b.agent_id = $1)`,
		scope.AgentID, scope.From, scope.To,
	).Scan(&t.Count, &t.Amount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LedgerTotals groups the whole ledger by type and category
func (r *StatsRepository) LedgerTotals(ctx context.Context) ([]models.LedgerTotal, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT type, category, COALESCE(SUM(amount), 0), COALESCE(SUM(interest_amount), 0)
		FROM transactions
		GROUP BY type, category
		ORDER BY type, category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.LedgerTotal
	for rows.Next() {
		var t models.LedgerTotal
		if err := rows.Scan(&t.Type, &t.Category, &t.Amount, &t.InterestAmount); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
