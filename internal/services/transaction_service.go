package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/cache"
	"loan-backend/internal/loancalc"
	"loan-backend/internal/metrics"
	"loan-backend/internal/middleware"
	"loan-backend/internal/models"
	"loan-backend/internal/monitoring"
	"loan-backend/internal/timeutil"
)

type TransactionService struct {
	Transactions TransactionStore
	Installments InstallmentStore
	Live         Publisher
	Now          timeutil.Clock
}

func NewTransactionService(transactions TransactionStore, installments InstallmentStore, live Publisher) *TransactionService {
	if live == nil {
		live = nopPublisher{}
	}
	return &TransactionService{
		Transactions: transactions,
		Installments: installments,
		Live:         live,
		Now:          timeutil.Now,
	}
}

// Reversal is what deleting a ledger row undid
type Reversal struct {
	Transaction models.Transaction  `json:"transaction"`
	Installment *models.Installment `json:"installment,omitempty"`
}

func (s *TransactionService) List(ctx context.Context, f models.TransactionFilter) (*models.TransactionPage, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperrors.Invalid("to is before from")
	}
	return s.Transactions.List(ctx, f)
}

func (s *TransactionService) Get(ctx context.Context, id int) (*models.Transaction, error) {
	return s.Transactions.Get(ctx, id)
}

// Create records a manual ledger row. INSTALLMENT rows only come from collection.
func (s *TransactionService) Create(ctx context.Context, userID int, req *models.CreateTransactionRequest) (*models.Transaction, error) {
	if req.Type == models.TransactionInstallment {
		return nil, apperrors.Invalid("INSTALLMENT transactions are created by collection")
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.Invalid("amount must be positive")
	}
	at, err := paymentTime(req.Date, s.Now())
	if err != nil {
		return nil, apperrors.Invalid("date %q is not a valid date", req.Date)
	}

	t, err := s.Transactions.Create(ctx, &models.Transaction{
		Amount:    req.Amount,
		Type:      req.Type,
		Category:  req.Category,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedBy: &userID,
		CreatedAt: at,
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateKeys(ctx, cache.AdminStatsKey)
	return t, nil
}

// Update edits a ledger row. The type of a collection row is fixed, and no row can become one.
func (s *TransactionService) Update(ctx context.Context, id int, req *models.UpdateTransactionRequest) (*models.Transaction, error) {
	t, err := s.Transactions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Type != nil && *req.Type != t.Type {
		if t.Type == models.TransactionInstallment || *req.Type == models.TransactionInstallment {
			return nil, apperrors.Invalid("the INSTALLMENT type cannot be changed")
		}
		t.Type = *req.Type
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, apperrors.Invalid("amount must be positive")
		}
		if t.Type == models.TransactionInstallment && req.Amount.LessThan(t.InterestAmount) {
			return nil, apperrors.Invalid("amount is below the interest share of this collection")
		}
		t.Amount = *req.Amount
	}
	if req.Category != nil {
		t.Category = *req.Category
	}
	if req.Notes != nil {
		t.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Date != nil {
		at, err := timeutil.ParseDate(*req.Date)
		if err != nil {
			return nil, apperrors.Invalid("date %q is not a valid date", *req.Date)
		}
		t.CreatedAt = at
	}

	updated, err := s.Transactions.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	cache.InvalidateStatsCaches(ctx)
	return updated, nil
}

// Delete removes a ledger row. A row that settled an installment takes the payment with
// it: the installment goes back to PENDING with no penalty, extra or shortfall.
func (s *TransactionService) Delete(ctx context.Context, id int) (*Reversal, error) {
	t, inst, err := s.Transactions.Delete(ctx, id, loancalc.Revert)
	if err != nil {
		return nil, err
	}
	cache.InvalidateStatsCaches(ctx)

	rev := &Reversal{Transaction: *t, Installment: inst}
	if inst != nil {
		metrics.ReversalsTotal.Inc()
		s.Live.Publish(monitoring.EventReversal, rev)
		middleware.LoggerFromContext(ctx).Info("collection reverted",
			slog.Int("transaction_id", t.ID),
			slog.Int("installment_id", inst.ID),
		)
	}
	return rev, nil
}

// Receipt renders a PDF receipt for a ledger row
func (s *TransactionService) Receipt(ctx context.Context, id int) ([]byte, error) {
	t, err := s.Transactions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var inst *models.Installment
	if t.InstallmentID != nil {
		inst, err = s.Installments.Get(ctx, *t.InstallmentID)
		if err != nil {
			return nil, err
		}
	}
	pdf, err := RenderReceipt(t, inst, s.Now())
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return pdf, nil
}
