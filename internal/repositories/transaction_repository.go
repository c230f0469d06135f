package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"loan-backend/internal/models"
)

type TransactionRepository struct {
	DB *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

const transactionFrom = `
	FROM transactions t
	LEFT JOIN installments i ON i.id = t.installment_id
	LEFT JOIN loans l ON l.id = i.loan_id
	LEFT JOIN borrowers b ON b.id = l.borrower_id
	LEFT JOIN users u ON u.id = t.created_by`

const transactionSelect = `
	SELECT t.id, t.amount, t.interest_amount, t.type, t.category, t.installment_id, l.id,
	       COALESCE(b.name, ''), t.notes, t.created_by, COALESCE(u.name, ''), t.created_at, t.updated_at` + transactionFrom

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.Amount, &t.InterestAmount, &t.Type, &t.Category, &t.InstallmentID, &t.LoanID,
		&t.BorrowerName, &t.Notes, &t.CreatedBy, &t.CreatedByName, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "transaction")
	}
	return &t, nil
}

// nullableTime lets the database default apply when t is zero
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO transactions(amount, interest_amount, type, category, installment_id, notes, created_by, created_at)
         VALUES($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
         RETURNING id, created_at, updated_at`,
		t.Amount, t.InterestAmount, t.Type, t.Category, t.InstallmentID, t.Notes, t.CreatedBy,
		nullableTime(t.CreatedAt),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapError(err, "transaction")
}

func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := insertTransaction(ctx, tx, t); err != nil {
		return nil, err
	}
	created, err := scanTransaction(tx.QueryRow(ctx, transactionSelect+` WHERE t.id=$1`, t.ID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *TransactionRepository) Get(ctx context.Context, id int) (*models.Transaction, error) {
	return scanTransaction(r.DB.QueryRow(ctx, transactionSelect+` WHERE t.id=$1`, id))
}

// Update rewrites the editable columns of a ledger row
func (r *TransactionRepository) Update(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE transactions SET amount=$1, interest_amount=$2, type=$3, category=$4, notes=$5, created_at=$6,
             updated_at=CURRENT_TIMESTAMP
         WHERE id=$7`,
		t.Amount, t.InterestAmount, t.Type, t.Category, t.Notes, t.CreatedAt, t.ID)
	if err != nil {
		return nil, mapError(err, "transaction")
	}
	if tag.RowsAffected() == 0 {
		return nil, mapError(pgx.ErrNoRows, "transaction")
	}
	return r.Get(ctx, t.ID)
}

// List returns one page of ledger rows, newest first, with the total match count
func (r *TransactionRepository) List(ctx context.Context, f models.TransactionFilter) (*models.TransactionPage, error) {
	w := transactionWhere(f)
	page, limit, offset := pageOffset(f.Page, f.Limit)

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) `+transactionFrom+` `+w.clause(), w.args...).Scan(&total); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`%s %s ORDER BY t.created_at DESC, t.id DESC LIMIT $%d OFFSET $%d`,
		transactionSelect, w.clause(), w.next(), w.next()+1)
	rows, err := r.DB.Query(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &models.TransactionPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Delete removes a ledger row. When it settles an installment, revert computes the
// installment's restored state, which is written in the same transaction, and the loan
// is re-evaluated. The reverted installment is nil for unlinked rows.
func (r *TransactionRepository) Delete(ctx context.Context, id int, revert func(models.Installment) models.Installment) (*models.Transaction, *models.Installment, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	t, err := scanTransaction(tx.QueryRow(ctx, transactionSelect+` WHERE t.id=$1 FOR UPDATE OF t`, id))
	if err != nil {
		return nil, nil, err
	}

	var reverted *models.Installment
	if t.InstallmentID != nil {
		inst, err := scanInstallment(tx.QueryRow(ctx,
			`SELECT `+installmentColumns+installmentFrom+` WHERE i.id=$1 FOR UPDATE OF i`, *t.InstallmentID))
		if err != nil {
			return nil, nil, err
		}
		restored := revert(*inst)
		if err := updateInstallment(ctx, tx, &restored); err != nil {
			return nil, nil, err
		}
		reverted = &restored
	}

	if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id=$1`, id); err != nil {
		return nil, nil, mapError(err, "transaction")
	}
	if reverted != nil {
		if _, err := refreshLoanStatus(ctx, tx, reverted.LoanID); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return t, reverted, nil
}
