package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"loan-backend/internal/apperrors"
	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"
)

type fakeArchiver struct {
	key  string
	body []byte
	err  error
}

func (f *fakeArchiver) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	f.key, f.body = key, body
	return key, f.err
}

func loanRequest() *models.CreateLoanRequest {
	return &models.CreateLoanRequest{
		Principal:      d("50000"),
		InterestRate:   d("2"),
		DurationMonths: 6,
		Frequency:      models.FrequencyMonthly,
		StartDate:      "2024-01-15",
	}
}

func TestLoanCreate_PersistsGeneratedSchedule(t *testing.T) {
	loans := &mockLoanStore{}
	svc := NewLoanService(loans, &mockBorrowerStore{}, nil)

	loans.On("Create", mock.Anything, mock.AnythingOfType("*models.Loan")).Return(nil)

	loan, err := svc.Create(context.Background(), 9, loanRequest())
	require.NoError(t, err)
	assert.Equal(t, 9, loan.BorrowerID)
	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assert.Equal(t, "6000.00", loan.TotalInterest.StringFixed(2))
	require.Len(t, loan.Installments, 6)
	assert.Equal(t, "8333.33", loan.Installments[0].InstallmentAmount.StringFixed(2))
	assert.Equal(t, "8333.35", loan.Installments[5].InstallmentAmount.StringFixed(2))
	assert.Equal(t, "2024-02-15", timeutil.DateString(loan.Installments[0].DueDate))
}

func TestLoanCreate_InvalidParameters(t *testing.T) {
	svc := NewLoanService(&mockLoanStore{}, &mockBorrowerStore{}, nil)

	req := loanRequest()
	req.Principal = d("0")
	_, err := svc.Create(context.Background(), 9, req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidLoanParameters)

	req = loanRequest()
	req.StartDate = "15-01-2024"
	_, err = svc.Create(context.Background(), 9, req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestLoanPreview_MatchesCreate(t *testing.T) {
	svc := NewLoanService(&mockLoanStore{}, &mockBorrowerStore{}, nil)
	req := loanRequest()
	req.Frequency = models.FrequencyWeekly

	preview, err := svc.Preview(req)
	require.NoError(t, err)
	assert.Equal(t, 24, preview.Periods)
	assert.Equal(t, "56000.00", preview.TotalPayable.StringFixed(2))
}

func TestArchiveStatement(t *testing.T) {
	loans := &mockLoanStore{}
	borrowers := &mockBorrowerStore{}

	unconfigured := NewLoanService(loans, borrowers, nil)
	_, err := unconfigured.ArchiveStatement(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	archive := &fakeArchiver{}
	svc := NewLoanService(loans, borrowers, archive)
	svc.Now = func() time.Time { return time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC) }

	loan, err := newLoan(2, loanRequest())
	require.NoError(t, err)
	loan.ID = 1
	loans.On("Get", mock.Anything, 1).Return(loan, nil)
	borrowers.On("Get", mock.Anything, 2).Return(&models.Borrower{ID: 2, Name: "Ravi Kumar", PanID: "ABCDE1234F"}, nil)

	key, err := svc.ArchiveStatement(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "statements/loan_1/20240305_103000.pdf", key)
	assert.Equal(t, "%PDF", string(archive.body[:4]))

	archive.err = errors.New("bucket missing")
	_, err = svc.ArchiveStatement(context.Background(), 1)
	assert.Error(t, err)
}

func TestListByBorrower_MissingBorrower(t *testing.T) {
	borrowers := &mockBorrowerStore{}
	svc := NewLoanService(&mockLoanStore{}, borrowers, nil)
	borrowers.On("Get", mock.Anything, 77).Return(nil, apperrors.NotFound("borrower"))

	_, err := svc.ListByBorrower(context.Background(), 77)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
