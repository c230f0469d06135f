package services

import (
	"context"
	"fmt"
	"strings"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/cache"
	"loan-backend/internal/models"
)

type BorrowerService struct {
	Borrowers BorrowerStore
}

func NewBorrowerService(borrowers BorrowerStore) *BorrowerService {
	return &BorrowerService{Borrowers: borrowers}
}

func (s *BorrowerService) List(ctx context.Context, f models.BorrowerFilter) ([]models.Borrower, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.Borrowers.List(ctx, f)
}

func (s *BorrowerService) Get(ctx context.Context, id int) (*models.Borrower, error) {
	return s.Borrowers.Get(ctx, id)
}

// GetForAgent returns the borrower only when agentID owns it
func (s *BorrowerService) GetForAgent(ctx context.Context, agentID, id int) (*models.Borrower, error) {
	b, err := s.Borrowers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.AgentID == nil || *b.AgentID != agentID {
		return nil, apperrors.Forbidden("borrower %d is not assigned to you", id)
	}
	return b, nil
}

func normalizeBorrower(req *models.CreateBorrowerRequest) {
	req.Name = strings.TrimSpace(req.Name)
	req.GuardianName = strings.TrimSpace(req.GuardianName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.PanID = strings.ToUpper(strings.TrimSpace(req.PanID))
}

func (s *BorrowerService) Create(ctx context.Context, req *models.CreateBorrowerRequest) (*models.Borrower, error) {
	normalizeBorrower(req)
	b, err := s.Borrowers.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	cache.InvalidateStatsCaches(ctx)
	return b, nil
}

func (s *BorrowerService) Update(ctx context.Context, id int, req *models.UpdateBorrowerRequest) (*models.Borrower, error) {
	create := models.CreateBorrowerRequest(*req)
	normalizeBorrower(&create)
	update := models.UpdateBorrowerRequest(create)

	b, err := s.Borrowers.Update(ctx, id, &update)
	if err != nil {
		return nil, err
	}
	cache.InvalidateStatsCaches(ctx)
	return b, nil
}

// Delete removes a borrower with no ACTIVE loan
func (s *BorrowerService) Delete(ctx context.Context, id int) error {
	if err := s.Borrowers.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateStatsCaches(ctx)
	return nil
}

// Import validates every row and generates every schedule before anything is written,
// then creates the whole batch in one transaction.
func (s *BorrowerService) Import(ctx context.Context, req *models.ImportBorrowersRequest) (*models.ImportResult, error) {
	if len(req.Borrowers) == 0 {
		return nil, apperrors.Invalid("borrowers is required")
	}

	pans := make(map[string]int, len(req.Borrowers))
	drafts := make([]models.ImportDraft, 0, len(req.Borrowers))
	for i := range req.Borrowers {
		item := req.Borrowers[i]
		row := i + 1

		normalizeBorrower(&item.CreateBorrowerRequest)
		if item.Name == "" || item.Phone == "" || item.PanID == "" {
			return nil, apperrors.Invalid("row %d: name, phone and pan_id are required", row)
		}
		if prev, dup := pans[item.PanID]; dup {
			return nil, apperrors.Conflict("row %d: pan_id %s repeats row %d", row, item.PanID, prev)
		}
		pans[item.PanID] = row

		draft := models.ImportDraft{Borrower: item.CreateBorrowerRequest}
		if item.Loan != nil {
			loan, err := newLoan(0, item.Loan)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
			draft.Loan = loan
		}
		drafts = append(drafts, draft)
	}

	result, err := s.Borrowers.Import(ctx, drafts)
	if err != nil {
		return nil, err
	}
	cache.InvalidateStatsCaches(ctx)
	return result, nil
}
