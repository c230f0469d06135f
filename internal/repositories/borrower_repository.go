package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"loan-backend/internal/apperrors"
	"loan-backend/internal/models"
)

type BorrowerRepository struct {
	DB *pgxpool.Pool
}

func NewBorrowerRepository(db *pgxpool.Pool) *BorrowerRepository {
	return &BorrowerRepository{DB: db}
}

const borrowerSelect = `
	SELECT b.id, b.name, b.guardian_name, b.phone, b.address, b.pan_id, b.agent_id,
	       COALESCE(u.name, ''),
	       (SELECT COUNT(*) FROM loans l WHERE l.borrower_id = b.id AND l.status = 'ACTIVE'),
	       b.created_at, b.updated_at
	FROM borrowers b
	LEFT JOIN agents a ON a.id = b.agent_id
	LEFT JOIN users u ON u.id = a.user_id`

func scanBorrower(row pgx.Row) (*models.Borrower, error) {
	var b models.Borrower
	err := row.Scan(&b.ID, &b.Name, &b.GuardianName, &b.Phone, &b.Address, &b.PanID, &b.AgentID,
		&b.AgentName, &b.ActiveLoans, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "borrower")
	}
	return &b, nil
}

// List returns borrowers matching f, newest first
func (r *BorrowerRepository) List(ctx context.Context, f models.BorrowerFilter) ([]models.Borrower, error) {
	w := borrowerWhere(f)
	query := fmt.Sprintf(`%s %s ORDER BY b.created_at DESC, b.id DESC LIMIT $%d OFFSET $%d`,
		borrowerSelect, w.clause(), w.next(), w.next()+1)
	args := append(w.args, clampLimit(f.Limit), max(f.Offset, 0))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	borrowers := []models.Borrower{}
	for rows.Next() {
		b, err := scanBorrower(rows)
		if err != nil {
			return nil, err
		}
		borrowers = append(borrowers, *b)
	}
	return borrowers, rows.Err()
}

func (r *BorrowerRepository) Get(ctx context.Context, id int) (*models.Borrower, error) {
	return scanBorrower(r.DB.QueryRow(ctx, borrowerSelect+` WHERE b.id=$1`, id))
}

func insertBorrower(ctx context.Context, tx pgx.Tx, req *models.CreateBorrowerRequest) (int, error) {
	var id int
	err := tx.QueryRow(ctx,
		`INSERT INTO borrowers(name, guardian_name, phone, address, pan_id, agent_id)
         VALUES($1, $2, $3, $4, $5, $6)
         RETURNING id`,
		req.Name, req.GuardianName, req.Phone, req.Address, req.PanID, req.AgentID,
	).Scan(&id)
	if err != nil {
		return 0, mapError(err, "borrower")
	}
	return id, nil
}

func (r *BorrowerRepository) Create(ctx context.Context, req *models.CreateBorrowerRequest) (*models.Borrower, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	id, err := insertBorrower(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	b, err := scanBorrower(tx.QueryRow(ctx, borrowerSelect+` WHERE b.id=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BorrowerRepository) Update(ctx context.Context, id int, req *models.UpdateBorrowerRequest) (*models.Borrower, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE borrowers SET name=$1, guardian_name=$2, phone=$3, address=$4, pan_id=$5, agent_id=$6, updated_at=CURRENT_TIMESTAMP
         WHERE id=$7`,
		req.Name, req.GuardianName, req.Phone, req.Address, req.PanID, req.AgentID, id)
	if err != nil {
		return nil, mapError(err, "borrower")
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("borrower")
	}
	return r.Get(ctx, id)
}

// Delete removes a borrower and its settled loans. It is refused while any loan is ACTIVE.
// activeLoansConflict blocks deleting a borrower who still owes on a loan
func activeLoansConflict(borrowerID, active int) error {
	if active == 0 {
		return nil
	}
	return apperrors.Conflict("borrower %d has %d active loan(s)", borrowerID, active)
}

func (r *BorrowerRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var locked int
	if err := tx.QueryRow(ctx, `SELECT id FROM borrowers WHERE id=$1 FOR UPDATE`, id).Scan(&locked); err != nil {
		return mapError(err, "borrower")
	}

	var active int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM loans WHERE borrower_id=$1 AND status='ACTIVE'`, id,
	).Scan(&active); err != nil {
		return err
	}
	if err := activeLoansConflict(id, active); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM borrowers WHERE id=$1`, id); err != nil {
		return mapError(err, "borrower")
	}
	return tx.Commit(ctx)
}

// Import creates every borrower, and each optional first loan with its schedule, in one
// transaction. Any failure rolls the whole batch back.
func (r *BorrowerRepository) Import(ctx context.Context, drafts []models.ImportDraft) (*models.ImportResult, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result := &models.ImportResult{Borrowers: []models.Borrower{}, Loans: []models.Loan{}}
	for i := range drafts {
		d := &drafts[i]
		id, err := insertBorrower(ctx, tx, &d.Borrower)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		if d.Loan != nil {
			d.Loan.BorrowerID = id
			if err := insertLoan(ctx, tx, d.Loan); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			result.Loans = append(result.Loans, *d.Loan)
		}

		b, err := scanBorrower(tx.QueryRow(ctx, borrowerSelect+` WHERE b.id=$1`, id))
		if err != nil {
			return nil, err
		}
		result.Borrowers = append(result.Borrowers, *b)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
