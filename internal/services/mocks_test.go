package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"loan-backend/internal/models"
	"loan-backend/internal/repositories"
	"loan-backend/internal/timeutil"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedClock(y int, m time.Month, day, hour int) timeutil.Clock {
	t := time.Date(y, m, day, hour, 0, 0, 0, timeutil.IST)
	return func() time.Time { return t }
}

func intPtr(v int) *int { return &v }

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserStore) Get(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserStore) SetTOTPSecret(ctx context.Context, userID int, secret string) error {
	return m.Called(ctx, userID, secret).Error(0)
}

func (m *mockUserStore) EnableTOTP(ctx context.Context, userID int, hashedCodes string) error {
	return m.Called(ctx, userID, hashedCodes).Error(0)
}

func (m *mockUserStore) DisableTOTP(ctx context.Context, userID int) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUserStore) SetBackupCodes(ctx context.Context, userID int, hashedCodes string) error {
	return m.Called(ctx, userID, hashedCodes).Error(0)
}

type mockAgentStore struct{ mock.Mock }

func (m *mockAgentStore) List(ctx context.Context) ([]models.Agent, error) {
	args := m.Called(ctx)
	a, _ := args.Get(0).([]models.Agent)
	return a, args.Error(1)
}

func (m *mockAgentStore) Get(ctx context.Context, id int) (*models.Agent, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.Agent)
	return a, args.Error(1)
}

func (m *mockAgentStore) Create(ctx context.Context, user *models.User, area string) (*models.Agent, error) {
	args := m.Called(ctx, user, area)
	a, _ := args.Get(0).(*models.Agent)
	return a, args.Error(1)
}

func (m *mockAgentStore) Update(ctx context.Context, a *models.Agent, passwordHash string) (*models.Agent, error) {
	args := m.Called(ctx, a, passwordHash)
	out, _ := args.Get(0).(*models.Agent)
	return out, args.Error(1)
}

func (m *mockAgentStore) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAgentStore) AssignBorrowers(ctx context.Context, agentID int, borrowerIDs []int) (int, error) {
	args := m.Called(ctx, agentID, borrowerIDs)
	return args.Int(0), args.Error(1)
}

type mockBorrowerStore struct{ mock.Mock }

func (m *mockBorrowerStore) List(ctx context.Context, f models.BorrowerFilter) ([]models.Borrower, error) {
	args := m.Called(ctx, f)
	b, _ := args.Get(0).([]models.Borrower)
	return b, args.Error(1)
}

func (m *mockBorrowerStore) Get(ctx context.Context, id int) (*models.Borrower, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.Borrower)
	return b, args.Error(1)
}

func (m *mockBorrowerStore) Create(ctx context.Context, req *models.CreateBorrowerRequest) (*models.Borrower, error) {
	args := m.Called(ctx, req)
	b, _ := args.Get(0).(*models.Borrower)
	return b, args.Error(1)
}

func (m *mockBorrowerStore) Update(ctx context.Context, id int, req *models.UpdateBorrowerRequest) (*models.Borrower, error) {
	args := m.Called(ctx, id, req)
	b, _ := args.Get(0).(*models.Borrower)
	return b, args.Error(1)
}

func (m *mockBorrowerStore) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBorrowerStore) Import(ctx context.Context, drafts []models.ImportDraft) (*models.ImportResult, error) {
	args := m.Called(ctx, drafts)
	r, _ := args.Get(0).(*models.ImportResult)
	return r, args.Error(1)
}

type mockLoanStore struct{ mock.Mock }

func (m *mockLoanStore) Create(ctx context.Context, loan *models.Loan) error {
	return m.Called(ctx, loan).Error(0)
}

func (m *mockLoanStore) Get(ctx context.Context, id int) (*models.Loan, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*models.Loan)
	return l, args.Error(1)
}

func (m *mockLoanStore) ListByBorrower(ctx context.Context, borrowerID int) ([]models.Loan, error) {
	args := m.Called(ctx, borrowerID)
	l, _ := args.Get(0).([]models.Loan)
	return l, args.Error(1)
}

// mockInstallmentStore runs the collect closure against State, the way the repository
// does inside its row-locked transaction.
type mockInstallmentStore struct {
	mock.Mock
	State *models.CollectionState
}

func (m *mockInstallmentStore) Get(ctx context.Context, id int) (*models.Installment, error) {
	args := m.Called(ctx, id)
	i, _ := args.Get(0).(*models.Installment)
	return i, args.Error(1)
}

func (m *mockInstallmentStore) ListByLoan(ctx context.Context, loanID int) ([]models.Installment, error) {
	args := m.Called(ctx, loanID)
	i, _ := args.Get(0).([]models.Installment)
	return i, args.Error(1)
}

func (m *mockInstallmentStore) Update(ctx context.Context, i *models.Installment) error {
	return m.Called(ctx, i).Error(0)
}

func (m *mockInstallmentStore) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInstallmentStore) Collect(ctx context.Context, id int, fn repositories.CollectFunc) (*models.CollectionResult, error) {
	if err := m.Called(ctx, id).Error(0); err != nil {
		return nil, err
	}
	inst, txn, err := fn(m.State)
	if err != nil {
		return nil, err
	}
	txn.ID = 99
	txn.InstallmentID = &inst.ID
	return &models.CollectionResult{Installment: *inst, Transaction: *txn, LoanStatus: models.LoanStatusActive}, nil
}

func (m *mockInstallmentStore) MarkOverdue(ctx context.Context, cutoff string) ([]models.Installment, error) {
	args := m.Called(ctx, cutoff)
	i, _ := args.Get(0).([]models.Installment)
	return i, args.Error(1)
}

func (m *mockInstallmentStore) DueForAgent(ctx context.Context, agentID int, through string) ([]models.Installment, error) {
	args := m.Called(ctx, agentID, through)
	i, _ := args.Get(0).([]models.Installment)
	return i, args.Error(1)
}

func (m *mockInstallmentStore) ContinuationCandidates(ctx context.Context, monthStart, nextMonthStart string) ([]models.ContinuationCandidate, error) {
	args := m.Called(ctx, monthStart, nextMonthStart)
	c, _ := args.Get(0).([]models.ContinuationCandidate)
	return c, args.Error(1)
}

func (m *mockInstallmentStore) InsertContinuation(ctx context.Context, i *models.Installment) (bool, error) {
	args := m.Called(ctx, i)
	return args.Bool(0), args.Error(1)
}

type mockTransactionStore struct{ mock.Mock }

func (m *mockTransactionStore) Create(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	args := m.Called(ctx, t)
	out, _ := args.Get(0).(*models.Transaction)
	return out, args.Error(1)
}

func (m *mockTransactionStore) Get(ctx context.Context, id int) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*models.Transaction)
	return t, args.Error(1)
}

func (m *mockTransactionStore) Update(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	args := m.Called(ctx, t)
	out, _ := args.Get(0).(*models.Transaction)
	return out, args.Error(1)
}

func (m *mockTransactionStore) List(ctx context.Context, f models.TransactionFilter) (*models.TransactionPage, error) {
	args := m.Called(ctx, f)
	p, _ := args.Get(0).(*models.TransactionPage)
	return p, args.Error(1)
}

// Delete applies revert to the installment configured in the first return value
func (m *mockTransactionStore) Delete(ctx context.Context, id int, revert func(models.Installment) models.Installment) (*models.Transaction, *models.Installment, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*models.Transaction)
	linked, _ := args.Get(1).(*models.Installment)
	if err := args.Error(2); err != nil {
		return nil, nil, err
	}
	if linked == nil {
		return t, nil, nil
	}
	restored := revert(*linked)
	return t, &restored, nil
}

type mockStatsStore struct{ mock.Mock }

func (m *mockStatsStore) Counts(ctx context.Context, scope models.StatsScope) (int, int, int, error) {
	args := m.Called(ctx, scope)
	return args.Int(0), args.Int(1), args.Int(2), args.Error(3)
}

func (m *mockStatsStore) InstallmentTotals(ctx context.Context, scope models.StatsScope) (*models.InstallmentTotals, error) {
	args := m.Called(ctx, scope)
	t, _ := args.Get(0).(*models.InstallmentTotals)
	return t, args.Error(1)
}

func (m *mockStatsStore) CollectionTotals(ctx context.Context, scope models.StatsScope) (*models.CollectionTotals, error) {
	args := m.Called(ctx, scope)
	t, _ := args.Get(0).(*models.CollectionTotals)
	return t, args.Error(1)
}

func (m *mockStatsStore) LedgerTotals(ctx context.Context) ([]models.LedgerTotal, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).([]models.LedgerTotal)
	return t, args.Error(1)
}

// recorder is a Publisher that keeps every event
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(eventType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
