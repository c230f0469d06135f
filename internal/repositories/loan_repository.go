package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"
)

type LoanRepository struct {
	DB *pgxpool.Pool
}

func NewLoanRepository(db *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{DB: db}
}

const loanSelect = `
	SELECT l.id, l.borrower_id, b.name, l.principal, l.interest_rate, l.duration_months, l.frequency,
	       l.start_date, l.status, l.total_interest, l.created_at, l.updated_at
	FROM loans l
	JOIN borrowers b ON b.id = l.borrower_id`

func scanLoan(row pgx.Row) (*models.Loan, error) {
	var l models.Loan
	err := row.Scan(&l.ID, &l.BorrowerID, &l.BorrowerName, &l.Principal, &l.InterestRate, &l.DurationMonths,
		&l.Frequency, &l.StartDate, &l.Status, &l.TotalInterest, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "loan")
	}
	l.StartDate = timeutil.CalendarDate(l.StartDate)
	return &l, nil
}

// insertLoan writes the loan and its schedule inside tx. IDs and timestamps are filled in place.
func insertLoan(ctx context.Context, tx pgx.Tx, loan *models.Loan) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO loans(borrower_id, principal, interest_rate, duration_months, frequency, start_date, status, total_interest)
         VALUES($1, $2, $3, $4, $5, $6::date, $7, $8)
         RETURNING id, created_at, updated_at`,
		loan.BorrowerID, loan.Principal, loan.InterestRate, loan.DurationMonths, loan.Frequency,
		timeutil.DateString(loan.StartDate), loan.Status, loan.TotalInterest,
	).Scan(&loan.ID, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return mapError(err, "loan")
	}

	batch := &pgx.Batch{}
	for i := range loan.Installments {
		inst := &loan.Installments[i]
		inst.LoanID = loan.ID
		batch.Queue(
			`INSERT INTO installments(loan_id, number, due_date, principal_amount, interest_amount, installment_amount, amount, status)
             VALUES($1, $2, $3::date, $4, $5, $6, $7, $8)
             RETURNING id, created_at, updated_at`,
			inst.LoanID, inst.Number, timeutil.DateString(inst.DueDate), inst.PrincipalAmount,
			inst.InterestAmount, inst.InstallmentAmount, inst.Amount, inst.Status,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range loan.Installments {
		inst := &loan.Installments[i]
		if err := br.QueryRow().Scan(&inst.ID, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			br.Close()
			return mapError(err, "installment")
		}
	}
	return br.Close()
}

// Create persists a loan with its generated schedule in one transaction
func (r *LoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// lock the borrower so it cannot be deleted under the new loan
	if err := tx.QueryRow(ctx,
		`SELECT name FROM borrowers WHERE id=$1 FOR SHARE`, loan.BorrowerID,
	).Scan(&loan.BorrowerName); err != nil {
		return mapError(err, "borrower")
	}

	if err := insertLoan(ctx, tx, loan); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Get returns a loan with its schedule
func (r *LoanRepository) Get(ctx context.Context, id int) (*models.Loan, error) {
	loan, err := scanLoan(r.DB.QueryRow(ctx, loanSelect+` WHERE l.id=$1`, id))
	if err != nil {
		return nil, err
	}
	loan.Installments, err = listLoanInstallments(ctx, r.DB, id)
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ListByBorrower returns the borrower's loans, newest first, without schedules
func (r *LoanRepository) ListByBorrower(ctx context.Context, borrowerID int) ([]models.Loan, error) {
	rows, err := r.DB.Query(ctx, loanSelect+` WHERE l.borrower_id=$1 ORDER BY l.start_date DESC, l.id DESC`, borrowerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []models.Loan{}
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}
