package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"loan-backend/internal/apperrors"
	"loan-backend/internal/loancalc"
	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"
)

type InstallmentRepository struct {
	DB *pgxpool.Pool
}

func NewInstallmentRepository(db *pgxpool.Pool) *InstallmentRepository {
	return &InstallmentRepository{DB: db}
}

// CollectFunc decides the outcome of a collection from the locked row. It returns the
// installment to write back and the ledger row to insert.
type CollectFunc func(state *models.CollectionState) (*models.Installment, *models.Transaction, error)

const installmentColumns = `
	i.id, i.loan_id, i.number, i.due_date, i.principal_amount, i.interest_amount,
	i.installment_amount, i.amount, i.status, i.paid_at, i.penalty_amount, i.extra_amount,
	i.due_amount, i.created_at, i.updated_at, b.id, b.name`

const installmentFrom = `
	FROM installments i
	JOIN loans l ON l.id = i.loan_id
	JOIN borrowers b ON b.id = l.borrower_id`

// querier is satisfied by both the pool and a transaction
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func installmentScanTargets(i *models.Installment) []any {
	return []any{&i.ID, &i.LoanID, &i.Number, &i.DueDate, &i.PrincipalAmount, &i.InterestAmount,
		&i.InstallmentAmount, &i.Amount, &i.Status, &i.PaidAt, &i.PenaltyAmount, &i.ExtraAmount,
		&i.DueAmount, &i.CreatedAt, &i.UpdatedAt, &i.BorrowerID, &i.BorrowerName}
}

func scanInstallment(row pgx.Row) (*models.Installment, error) {
	var i models.Installment
	if err := row.Scan(installmentScanTargets(&i)...); err != nil {
		return nil, mapError(err, "installment")
	}
	i.DueDate = timeutil.CalendarDate(i.DueDate)
	return &i, nil
}

func queryInstallments(ctx context.Context, q querier, sql string, args ...any) ([]models.Installment, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Installment{}
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *i)
	}
	return items, rows.Err()
}

func listLoanInstallments(ctx context.Context, q querier, loanID int) ([]models.Installment, error) {
	return queryInstallments(ctx, q,
		`SELECT `+installmentColumns+installmentFrom+` WHERE i.loan_id=$1 ORDER BY i.due_date, i.number`, loanID)
}

func updateInstallment(ctx context.Context, tx pgx.Tx, i *models.Installment) error {
	err := tx.QueryRow(ctx,
		`UPDATE installments SET due_date=$1::date, principal_amount=$2, interest_amount=$3, installment_amount=$4,
             amount=$5, status=$6, paid_at=$7, penalty_amount=$8, extra_amount=$9, due_amount=$10,
             updated_at=CURRENT_TIMESTAMP
         WHERE id=$11
         RETURNING updated_at`,
		timeutil.DateString(i.DueDate), i.PrincipalAmount, i.InterestAmount, i.InstallmentAmount,
		i.Amount, i.Status, i.PaidAt, i.PenaltyAmount, i.ExtraAmount, i.DueAmount, i.ID,
	).Scan(&i.UpdatedAt)
	return mapError(err, "installment")
}

// refreshLoanStatus settles or reopens a loan from the current state of its schedule
func refreshLoanStatus(ctx context.Context, tx pgx.Tx, loanID int) (models.LoanStatus, error) {
	items, err := listLoanInstallments(ctx, tx, loanID)
	if err != nil {
		return "", err
	}
	status := models.LoanStatusActive
	if loancalc.Settled(items) {
		status = models.LoanStatusSettled
	}
	_, err = tx.Exec(ctx,
		`UPDATE loans SET status=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2 AND status<>$1`,
		status, loanID)
	return status, err
}

func (r *InstallmentRepository) Get(ctx context.Context, id int) (*models.Installment, error) {
	return scanInstallment(r.DB.QueryRow(ctx, `SELECT `+installmentColumns+installmentFrom+` WHERE i.id=$1`, id))
}

func (r *InstallmentRepository) ListByLoan(ctx context.Context, loanID int) ([]models.Installment, error) {
	return listLoanInstallments(ctx, r.DB, loanID)
}

// checkLinkedStatus keeps a collected installment PAID while its ledger row exists.
// transactionID is 0 when no row points at the installment.
func checkLinkedStatus(i *models.Installment, transactionID int) error {
	if transactionID == 0 || i.Status == models.InstallmentPaid {
		return nil
	}
	return apperrors.Conflict("installment %d was collected by transaction %d; delete transaction %d to revert it",
		i.ID, transactionID, transactionID)
}

// linkedTransaction returns the id of the ledger row settling an installment, or 0
func linkedTransaction(ctx context.Context, tx pgx.Tx, installmentID int) (int, error) {
	var id int
	err := tx.QueryRow(ctx, `SELECT id FROM transactions WHERE installment_id=$1 FOR UPDATE`, installmentID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, mapError(err, "transaction")
	}
	return id, nil
}

// Update writes an admin edit and re-evaluates the loan status. The installment row is
// locked first so a concurrent collection cannot slip a ledger row in between.
func (r *InstallmentRepository) Update(ctx context.Context, i *models.Installment) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT 1 FROM installments WHERE id=$1 FOR UPDATE`, i.ID); err != nil {
		return mapError(err, "installment")
	}
	linked, err := linkedTransaction(ctx, tx, i.ID)
	if err != nil {
		return err
	}
	if err := checkLinkedStatus(i, linked); err != nil {
		return err
	}

	if err := updateInstallment(ctx, tx, i); err != nil {
		return err
	}
	if _, err := refreshLoanStatus(ctx, tx, i.LoanID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes one installment. A ledger row pointing at it keeps its amount and loses the link.
func (r *InstallmentRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var loanID int
	if err := tx.QueryRow(ctx, `DELETE FROM installments WHERE id=$1 RETURNING loan_id`, id).Scan(&loanID); err != nil {
		return mapError(err, "installment")
	}
	if _, err := refreshLoanStatus(ctx, tx, loanID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Collect locks the installment row, lets fn apply the payment, then writes the
// installment, the ledger row and the loan status in the same transaction.
func (r *InstallmentRepository) Collect(ctx context.Context, id int, fn CollectFunc) (*models.CollectionResult, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var state models.CollectionState
	targets := append(installmentScanTargets(&state.Installment), &state.Frequency, &state.AgentID)
	err = tx.QueryRow(ctx,
		`SELECT `+installmentColumns+`, l.frequency, b.agent_id`+installmentFrom+`
         WHERE i.id=$1
         FOR UPDATE OF i`, id,
	).Scan(targets...)
	if err != nil {
		return nil, mapError(err, "installment")
	}
	state.Installment.DueDate = timeutil.CalendarDate(state.Installment.DueDate)
	state.BorrowerID = state.Installment.BorrowerID

	updated, draft, err := fn(&state)
	if err != nil {
		return nil, err
	}

	if err := updateInstallment(ctx, tx, updated); err != nil {
		return nil, err
	}
	draft.InstallmentID = &updated.ID
	if err := insertTransaction(ctx, tx, draft); err != nil {
		return nil, err
	}
	status, err := refreshLoanStatus(ctx, tx, updated.LoanID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	draft.LoanID = &updated.LoanID
	draft.BorrowerName = updated.BorrowerName
	return &models.CollectionResult{Installment: *updated, Transaction: *draft, LoanStatus: status}, nil
}

// MarkOverdue moves PENDING rows due before cutoff (a YYYY-MM-DD date) to OVERDUE
// and returns the rows it changed.
func (r *InstallmentRepository) MarkOverdue(ctx context.Context, cutoff string) ([]models.Installment, error) {
	return queryInstallments(ctx, r.DB,
		`WITH marked AS (
             UPDATE installments SET status='OVERDUE', updated_at=CURRENT_TIMESTAMP
             WHERE status='PENDING' AND due_date < $1::date
             RETURNING *
         )
         SELECT `+installmentColumns+`
         FROM marked i
         JOIN loans l ON l.id = i.loan_id
         JOIN borrowers b ON b.id = l.borrower_id
         ORDER BY i.due_date, i.id`, cutoff)
}

// DueForAgent lists PENDING and OVERDUE rows due on or before through for the agent's borrowers
func (r *InstallmentRepository) DueForAgent(ctx context.Context, agentID int, through string) ([]models.Installment, error) {
	return queryInstallments(ctx, r.DB,
		`SELECT `+installmentColumns+installmentFrom+`
         WHERE b.agent_id=$1 AND i.status IN ('PENDING', 'OVERDUE') AND i.due_date <= $2::date
         ORDER BY i.due_date, b.name, i.id`, agentID, through)
}

// ContinuationCandidates lists ACTIVE monthly loans started before monthStart that have
// no installment due in [monthStart, nextMonthStart).
func (r *InstallmentRepository) ContinuationCandidates(ctx context.Context, monthStart, nextMonthStart string) ([]models.ContinuationCandidate, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT l.id, l.borrower_id, l.principal, l.interest_rate, l.duration_months, l.frequency, l.start_date,
                l.status, l.total_interest, l.created_at, l.updated_at,
                COALESCE((SELECT MAX(number) FROM installments WHERE loan_id = l.id), 0)
         FROM loans l
         WHERE l.status='ACTIVE' AND l.frequency='MONTHLY' AND l.start_date < $1::date
           AND NOT EXISTS (
               SELECT 1 FROM installments i
               WHERE i.loan_id = l.id AND i.due_date >= $1::date AND i.due_date < $2::date
           )
         ORDER BY l.id`, monthStart, nextMonthStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ContinuationCandidate
	for rows.Next() {
		var c models.ContinuationCandidate
		l := &c.Loan
		if err := rows.Scan(&l.ID, &l.BorrowerID, &l.Principal, &l.InterestRate, &l.DurationMonths, &l.Frequency,
			&l.StartDate, &l.Status, &l.TotalInterest, &l.CreatedAt, &l.UpdatedAt, &c.LastNumber); err != nil {
			return nil, err
		}
		l.StartDate = timeutil.CalendarDate(l.StartDate)
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertContinuation adds a generated row. It reports false when a concurrent run
// already took the same (loan_id, number).
func (r *InstallmentRepository) InsertContinuation(ctx context.Context, i *models.Installment) (bool, error) {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO installments(loan_id, number, due_date, principal_amount, interest_amount, installment_amount, amount, status)
         VALUES($1, $2, $3::date, $4, $5, $6, $7, $8)
         ON CONFLICT (loan_id, number) DO NOTHING
         RETURNING id, created_at, updated_at`,
		i.LoanID, i.Number, timeutil.DateString(i.DueDate), i.PrincipalAmount, i.InterestAmount,
		i.InstallmentAmount, i.Amount, i.Status,
	).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err, "installment")
	}
	return true, nil
}
