package services

import (
	"context"
	"log"
	"strings"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/cache"
	"loan-backend/internal/loancalc"
	"loan-backend/internal/metrics"
	"loan-backend/internal/models"
	"loan-backend/internal/monitoring"
	"loan-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

type InstallmentService struct {
	Installments InstallmentStore
	Live         Publisher
	Now          timeutil.Clock
}

func NewInstallmentService(installments InstallmentStore, live Publisher) *InstallmentService {
	if live == nil {
		live = nopPublisher{}
	}
	return &InstallmentService{
		Installments: installments,
		Live:         live,
		Now:          timeutil.Now,
	}
}

func (s *InstallmentService) Get(ctx context.Context, id int) (*models.Installment, error) {
	return s.Installments.Get(ctx, id)
}

func nonNegative(field string, v *decimal.Decimal) error {
	if v != nil && v.IsNegative() {
		return apperrors.Invalid("%s must not be negative", field)
	}
	return nil
}

// applyInstallmentUpdate copies the non-nil fields of req onto inst
func applyInstallmentUpdate(inst *models.Installment, req *models.UpdateInstallmentRequest) error {
	for field, v := range map[string]*decimal.Decimal{
		"principal_amount":   req.PrincipalAmount,
		"interest_amount":    req.InterestAmount,
		"installment_amount": req.InstallmentAmount,
		"amount":             req.Amount,
		"penalty_amount":     req.PenaltyAmount,
		"extra_amount":       req.ExtraAmount,
		"due_amount":         req.DueAmount,
	} {
		if err := nonNegative(field, v); err != nil {
			return err
		}
	}

	if req.DueDate != nil {
		due, err := timeutil.ParseDate(*req.DueDate)
		if err != nil {
			return apperrors.Invalid("due_date %q is not a valid date", *req.DueDate)
		}
		inst.DueDate = timeutil.CalendarDate(due)
	}
	if req.PrincipalAmount != nil {
		inst.PrincipalAmount = *req.PrincipalAmount
	}
	if req.InterestAmount != nil {
		inst.InterestAmount = *req.InterestAmount
	}
	if req.InstallmentAmount != nil {
		inst.InstallmentAmount = *req.InstallmentAmount
	}
	if req.Amount != nil {
		inst.Amount = *req.Amount
	}
	if req.PenaltyAmount != nil {
		inst.PenaltyAmount = *req.PenaltyAmount
	}
	if req.ExtraAmount != nil {
		inst.ExtraAmount = *req.ExtraAmount
	}
	if req.DueAmount != nil {
		inst.DueAmount = *req.DueAmount
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			return apperrors.Invalid("unknown status %q", *req.Status)
		}
		// PAID comes only from a collection, which also writes the ledger row
		if *req.Status == models.InstallmentPaid && inst.Status != models.InstallmentPaid {
			return apperrors.Conflict("installment %d is not collected; record a collection to mark it PAID", inst.ID)
		}
		inst.Status = *req.Status
		if inst.Status == models.InstallmentPending || inst.Status == models.InstallmentOverdue {
			inst.PaidAt = nil
		}
	}
	if req.PaidAt != nil {
		if strings.TrimSpace(*req.PaidAt) == "" {
			inst.PaidAt = nil
		} else {
			paid, err := timeutil.ParseDate(*req.PaidAt)
			if err != nil {
				return apperrors.Invalid("paid_at %q is not a valid date", *req.PaidAt)
			}
			inst.PaidAt = &paid
		}
	}
	return nil
}

// Update is an admin correction of one installment. The loan is settled or reopened to match.
func (s *InstallmentService) Update(ctx context.Context, id int, req *models.UpdateInstallmentRequest) (*models.Installment, error) {
	inst, err := s.Installments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyInstallmentUpdate(inst, req); err != nil {
		return nil, err
	}
	if err := s.Installments.Update(ctx, inst); err != nil {
		return nil, err
	}
	cache.InvalidateStatsCaches(ctx)
	return inst, nil
}

func (s *InstallmentService) Delete(ctx context.Context, id int) error {
	if err := s.Installments.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateStatsCaches(ctx)
	return nil
}

// Sweep marks every PENDING installment due before today (IST) as OVERDUE and
// returns the rows it changed. A second run on the same day returns nothing.
func (s *InstallmentService) Sweep(ctx context.Context) ([]models.Installment, error) {
	cutoff := timeutil.DateString(loancalc.SweepCutoff(s.Now()))
	marked, err := s.Installments.MarkOverdue(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	if len(marked) > 0 {
		log.Printf("[Sweep] Marked %d installment(s) overdue (due before %s)", len(marked), cutoff)
		metrics.OverdueMarkedTotal.Add(float64(len(marked)))
		cache.InvalidateStatsCaches(ctx)
		s.Live.Publish(monitoring.EventOverdue, marked)
	}
	return marked, nil
}

// GenerateMonthly adds this month's interest-only row to every ACTIVE monthly loan
// that started before this month and has no row due in it yet. Re-running is a no-op.
func (s *InstallmentService) GenerateMonthly(ctx context.Context) (*models.GenerationResult, error) {
	now := s.Now()
	monthStart := timeutil.StartOfMonth(now)
	nextMonth := monthStart.AddDate(0, 1, 0)

	candidates, err := s.Installments.ContinuationCandidates(ctx,
		timeutil.DateString(monthStart), timeutil.DateString(nextMonth))
	if err != nil {
		return nil, err
	}

	result := &models.GenerationResult{Installments: []models.Installment{}}
	for _, c := range candidates {
		due, ok := loancalc.ContinuationDue(c.Loan.StartDate, now)
		if !ok {
			continue
		}
		inst := loancalc.ContinuationInstallment(c.Loan, c.LastNumber+1, due)
		inserted, err := s.Installments.InsertContinuation(ctx, &inst)
		if err != nil {
			return nil, err
		}
		if inserted {
			result.Installments = append(result.Installments, inst)
		}
	}
	result.Generated = len(result.Installments)

	if result.Generated > 0 {
		log.Printf("[Generate] Added %d monthly installment(s) for %s", result.Generated, monthStart.Format("2006-01"))
		metrics.ContinuationRowsTotal.Add(float64(result.Generated))
		cache.InvalidateStatsCaches(ctx)
		s.Live.Publish(monitoring.EventGenerated, result)
	}
	return result, nil
}

// DueForAgent lists the agent's PENDING and OVERDUE installments due up to today
func (s *InstallmentService) DueForAgent(ctx context.Context, agentID int) ([]models.Installment, error) {
	return s.Installments.DueForAgent(ctx, agentID, timeutil.DateString(s.Now()))
}
