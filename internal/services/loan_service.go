package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/cache"
	"loan-backend/internal/loancalc"
	"loan-backend/internal/models"
	"loan-backend/internal/storage"
	"loan-backend/internal/timeutil"
)

type LoanService struct {
	Loans     LoanStore
	Borrowers BorrowerStore
	Archive   Archiver // nil when object storage is not configured
	Now       timeutil.Clock
}

func NewLoanService(loans LoanStore, borrowers BorrowerStore, archive Archiver) *LoanService {
	return &LoanService{
		Loans:     loans,
		Borrowers: borrowers,
		Archive:   archive,
		Now:       timeutil.Now,
	}
}

// scheduleParams converts a request into generator input. A bad date is an invalid request.
func scheduleParams(req *models.CreateLoanRequest) (loancalc.Params, error) {
	start, err := timeutil.ParseDate(req.StartDate)
	if err != nil {
		return loancalc.Params{}, apperrors.Invalid("start_date %q is not a valid date", req.StartDate)
	}
	return loancalc.Params{
		Principal:      req.Principal,
		InterestRate:   req.InterestRate,
		DurationMonths: req.DurationMonths,
		Frequency:      req.Frequency,
		StartDate:      timeutil.CalendarDate(start),
	}, nil
}

// newLoan builds an unsaved ACTIVE loan with its full schedule
func newLoan(borrowerID int, req *models.CreateLoanRequest) (*models.Loan, error) {
	params, err := scheduleParams(req)
	if err != nil {
		return nil, err
	}
	schedule, err := loancalc.Generate(params)
	if err != nil {
		return nil, err
	}
	return &models.Loan{
		BorrowerID:     borrowerID,
		Principal:      params.Principal,
		InterestRate:   params.InterestRate,
		DurationMonths: params.DurationMonths,
		Frequency:      params.Frequency,
		StartDate:      params.StartDate,
		Status:         models.LoanStatusActive,
		TotalInterest:  schedule.TotalInterest,
		Installments:   schedule.Installments,
	}, nil
}

// Preview returns the schedule a loan would get, without saving anything
func (s *LoanService) Preview(req *models.CreateLoanRequest) (*models.LoanPreview, error) {
	params, err := scheduleParams(req)
	if err != nil {
		return nil, err
	}
	return loancalc.Preview(params)
}

// Create saves a loan and its schedule for the borrower
func (s *LoanService) Create(ctx context.Context, borrowerID int, req *models.CreateLoanRequest) (*models.Loan, error) {
	loan, err := newLoan(borrowerID, req)
	if err != nil {
		return nil, err
	}
	if err := s.Loans.Create(ctx, loan); err != nil {
		return nil, err
	}
	cache.InvalidateStatsCaches(ctx)
	return loan, nil
}

func (s *LoanService) Get(ctx context.Context, id int) (*models.Loan, error) {
	return s.Loans.Get(ctx, id)
}

func (s *LoanService) ListByBorrower(ctx context.Context, borrowerID int) ([]models.Loan, error) {
	if _, err := s.Borrowers.Get(ctx, borrowerID); err != nil {
		return nil, err
	}
	return s.Loans.ListByBorrower(ctx, borrowerID)
}

// Statement renders the loan's schedule and payment state as a PDF
func (s *LoanService) Statement(ctx context.Context, id int) ([]byte, *models.Loan, error) {
	loan, err := s.Loans.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	borrower, err := s.Borrowers.Get(ctx, loan.BorrowerID)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := RenderStatement(loan, borrower, s.Now())
	if err != nil {
		return nil, nil, fmt.Errorf("render statement: %w", err)
	}
	return pdf, loan, nil
}

// ArchiveStatement renders the statement and uploads it, returning the object key
func (s *LoanService) ArchiveStatement(ctx context.Context, id int) (string, error) {
	if s.Archive == nil {
		return "", fmt.Errorf("%w: object storage is not configured", apperrors.ErrUnavailable)
	}
	pdf, loan, err := s.Statement(ctx, id)
	if err != nil {
		return "", err
	}

	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	key, err := s.Archive.Put(uploadCtx, storage.StatementKey(loan.ID, s.Now()), "application/pdf", pdf)
	if err != nil {
		log.Printf("[Archive] Loan %d statement upload failed: %v", loan.ID, err)
		return "", err
	}
	return key, nil
}
