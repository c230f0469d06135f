package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/cache"
	"loan-backend/internal/loancalc"
	"loan-backend/internal/metrics"
	"loan-backend/internal/middleware"
	"loan-backend/internal/models"
	"loan-backend/internal/monitoring"
	"loan-backend/internal/timeutil"
)

// Collector identifies who records a collection. AgentID is nil for admins, who may
// collect against any borrower.
type Collector struct {
	UserID  int
	AgentID *int
}

func (c Collector) source() string {
	if c.AgentID != nil {
		return "agent"
	}
	return "admin"
}

type CollectionService struct {
	Installments InstallmentStore
	Live         Publisher
	Now          timeutil.Clock
}

func NewCollectionService(installments InstallmentStore, live Publisher) *CollectionService {
	if live == nil {
		live = nopPublisher{}
	}
	return &CollectionService{
		Installments: installments,
		Live:         live,
		Now:          timeutil.Now,
	}
}

// paymentTime parses the optional paid_at of a request, defaulting to now
func paymentTime(value string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return now, nil
	}
	t, err := timeutil.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.Invalid("paid_at %q is not a valid date", value)
	}
	return t, nil
}

// Collect applies a payment to one installment and records its INSTALLMENT ledger row.
// The row lock, ownership check, installment write, ledger insert and loan status
// update happen in one database transaction.
func (s *CollectionService) Collect(ctx context.Context, by Collector, installmentID int, req *models.CollectRequest) (*models.CollectionResult, error) {
	if req.Amount == nil {
		return nil, apperrors.Invalid("amount is required")
	}
	paidAt, err := paymentTime(req.PaidAt, s.Now())
	if err != nil {
		return nil, err
	}
	payment := loancalc.Payment{
		Received: *req.Amount,
		Penalty:  req.PenaltyAmount,
		Extra:    req.ExtraAmount,
		PaidAt:   paidAt,
	}

	result, err := s.Installments.Collect(ctx, installmentID, func(state *models.CollectionState) (*models.Installment, *models.Transaction, error) {
		if by.AgentID != nil && (state.AgentID == nil || *state.AgentID != *by.AgentID) {
			return nil, nil, apperrors.Forbidden("installment %d belongs to a borrower not assigned to you", installmentID)
		}

		out, err := loancalc.ApplyPayment(state.Installment, state.Frequency, payment)
		if err != nil {
			return nil, nil, err
		}

		notes := strings.TrimSpace(req.Notes)
		if notes == "" {
			notes = fmt.Sprintf("Installment #%d collection", state.Installment.Number)
		}
		userID := by.UserID
		return &out.Installment, &models.Transaction{
			Amount:         out.LedgerAmount,
			InterestAmount: out.LedgerInterest,
			Type:           models.TransactionInstallment,
			Category:       models.CategoryCollection,
			Notes:          notes,
			CreatedBy:      &userID,
			CreatedAt:      paidAt,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CollectionsTotal.WithLabelValues(by.source()).Inc()
	metrics.CollectedAmount.Add(result.Transaction.Amount.InexactFloat64())
	cache.InvalidateStatsCaches(ctx)
	s.Live.Publish(monitoring.EventCollection, result)

	middleware.LoggerFromContext(ctx).Info("installment collected",
		slog.Int("installment_id", installmentID),
		slog.Int("transaction_id", result.Transaction.ID),
		slog.String("amount", result.Transaction.Amount.StringFixed(2)),
		slog.String("loan_status", string(result.LoanStatus)),
		slog.String("source", by.source()),
	)
	return result, nil
}
