package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"loan-backend/internal/apperrors"
	"loan-backend/internal/models"
	"loan-backend/internal/monitoring"
	"loan-backend/internal/timeutil"
)

func TestSweep_UsesISTStartOfDay(t *testing.T) {
	store := &mockInstallmentStore{}
	live := &recorder{}
	svc := NewInstallmentService(store, live)
	// 01:00 IST on 10 March is still 9 March in UTC
	svc.Now = fixedClock(2024, time.March, 10, 1)

	marked := []models.Installment{{ID: 1, Status: models.InstallmentOverdue}}
	store.On("MarkOverdue", mock.Anything, "2024-03-10").Return(marked, nil).Once()
	store.On("MarkOverdue", mock.Anything, "2024-03-10").Return([]models.Installment{}, nil).Once()

	got, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	again, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)

	assert.Equal(t, []string{monitoring.EventOverdue}, live.Events())
	store.AssertExpectations(t)
}

func TestGenerateMonthly(t *testing.T) {
	store := &mockInstallmentStore{}
	svc := NewInstallmentService(store, nil)
	svc.Now = fixedClock(2024, time.February, 10, 12)

	loan := models.Loan{
		ID:           4,
		Principal:    d("50000"),
		InterestRate: d("2"),
		Frequency:    models.FrequencyMonthly,
		StartDate:    time.Date(2023, time.August, 31, 0, 0, 0, 0, timeutil.IST),
		Status:       models.LoanStatusActive,
	}
	raced := loan
	raced.ID = 5

	store.On("ContinuationCandidates", mock.Anything, "2024-02-01", "2024-03-01").
		Return([]models.ContinuationCandidate{{Loan: loan, LastNumber: 6}, {Loan: raced, LastNumber: 6}}, nil)
	store.On("InsertContinuation", mock.Anything, mock.MatchedBy(func(i *models.Installment) bool { return i.LoanID == 4 })).
		Return(true, nil)
	store.On("InsertContinuation", mock.Anything, mock.MatchedBy(func(i *models.Installment) bool { return i.LoanID == 5 })).
		Return(false, nil)

	res, err := svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Generated)

	inst := res.Installments[0]
	assert.Equal(t, 7, inst.Number)
	assert.Equal(t, "2024-02-29", timeutil.DateString(inst.DueDate))
	assert.True(t, inst.PrincipalAmount.IsZero())
	assert.Equal(t, "1000.00", inst.InterestAmount.StringFixed(2))
	assert.Equal(t, models.InstallmentPending, inst.Status)
}

func TestGenerateMonthly_NothingToDo(t *testing.T) {
	store := &mockInstallmentStore{}
	svc := NewInstallmentService(store, nil)
	svc.Now = fixedClock(2024, time.February, 10, 12)
	store.On("ContinuationCandidates", mock.Anything, "2024-02-01", "2024-03-01").Return([]models.ContinuationCandidate{}, nil)

	res, err := svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Generated)
	assert.NotNil(t, res.Installments)
	store.AssertNotCalled(t, "InsertContinuation", mock.Anything, mock.Anything)
}

func TestInstallmentUpdate(t *testing.T) {
	store := &mockInstallmentStore{}
	svc := NewInstallmentService(store, nil)

	paidAt := time.Date(2024, time.January, 5, 0, 0, 0, 0, timeutil.IST)
	existing := &models.Installment{ID: 3, LoanID: 1, Status: models.InstallmentPaid, PaidAt: &paidAt, Amount: d("100")}
	store.On("Get", mock.Anything, 3).Return(existing, nil)
	store.On("Update", mock.Anything, mock.Anything).Return(nil)

	status := models.InstallmentSkipped
	due := "2024-04-30"
	amount := d("120")
	got, err := svc.Update(context.Background(), 3, &models.UpdateInstallmentRequest{Status: &status, DueDate: &due, Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentSkipped, got.Status)
	assert.Equal(t, "2024-04-30", timeutil.DateString(got.DueDate))
	assert.Equal(t, "120.00", got.Amount.StringFixed(2))
	assert.NotNil(t, got.PaidAt)

	pending := models.InstallmentPending
	got, err = svc.Update(context.Background(), 3, &models.UpdateInstallmentRequest{Status: &pending})
	require.NoError(t, err)
	assert.Nil(t, got.PaidAt)
}

func TestInstallmentUpdate_Rejects(t *testing.T) {
	store := &mockInstallmentStore{}
	svc := NewInstallmentService(store, nil)
	store.On("Get", mock.Anything, 3).Return(&models.Installment{ID: 3}, nil)

	negative := d("-1")
	_, err := svc.Update(context.Background(), 3, &models.UpdateInstallmentRequest{PenaltyAmount: &negative})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	bad := models.InstallmentStatus("LOST")
	_, err = svc.Update(context.Background(), 3, &models.UpdateInstallmentRequest{Status: &bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	date := "31/02/2024"
	_, err = svc.Update(context.Background(), 3, &models.UpdateInstallmentRequest{DueDate: &date})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	paid := models.InstallmentPaid
	_, err = svc.Update(context.Background(), 3, &models.UpdateInstallmentRequest{Status: &paid})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestInstallmentUpdate_CollectedRowConflict(t *testing.T) {
	store := &mockInstallmentStore{}
	svc := NewInstallmentService(store, nil)
	store.On("Get", mock.Anything, 3).Return(&models.Installment{ID: 3, LoanID: 1, Status: models.InstallmentPaid}, nil)
	store.On("Update", mock.Anything, mock.Anything).
		Return(apperrors.Conflict("installment 3 was collected by transaction 9; delete transaction 9 to revert it"))

	pending := models.InstallmentPending
	_, err := svc.Update(context.Background(), 3, &models.UpdateInstallmentRequest{Status: &pending})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "delete transaction 9")
}

func TestDueForAgent(t *testing.T) {
	store := &mockInstallmentStore{}
	svc := NewInstallmentService(store, nil)
	svc.Now = fixedClock(2024, time.June, 1, 23)
	store.On("DueForAgent", mock.Anything, 5, "2024-06-01").Return([]models.Installment{{ID: 1}}, nil)

	items, err := svc.DueForAgent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
