package services

import (
	"context"

	"loan-backend/internal/models"
	"loan-backend/internal/repositories"
)

// Store interfaces are declared where they are consumed; the repositories package
// satisfies them and tests replace them with mocks.

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID int, secret string) error
	EnableTOTP(ctx context.Context, userID int, hashedCodes string) error
	DisableTOTP(ctx context.Context, userID int) error
	SetBackupCodes(ctx context.Context, userID int, hashedCodes string) error
}

type AgentStore interface {
	List(ctx context.Context) ([]models.Agent, error)
	Get(ctx context.Context, id int) (*models.Agent, error)
	Create(ctx context.Context, user *models.User, area string) (*models.Agent, error)
	Update(ctx context.Context, a *models.Agent, passwordHash string) (*models.Agent, error)
	Delete(ctx context.Context, id int) error
	AssignBorrowers(ctx context.Context, agentID int, borrowerIDs []int) (int, error)
}

type BorrowerStore interface {
	List(ctx context.Context, f models.BorrowerFilter) ([]models.Borrower, error)
	Get(ctx context.Context, id int) (*models.Borrower, error)
	Create(ctx context.Context, req *models.CreateBorrowerRequest) (*models.Borrower, error)
	Update(ctx context.Context, id int, req *models.UpdateBorrowerRequest) (*models.Borrower, error)
	Delete(ctx context.Context, id int) error
	Import(ctx context.Context, drafts []models.ImportDraft) (*models.ImportResult, error)
}

type LoanStore interface {
	Create(ctx context.Context, loan *models.Loan) error
	Get(ctx context.Context, id int) (*models.Loan, error)
	ListByBorrower(ctx context.Context, borrowerID int) ([]models.Loan, error)
}

type InstallmentStore interface {
	Get(ctx context.Context, id int) (*models.Installment, error)
	ListByLoan(ctx context.Context, loanID int) ([]models.Installment, error)
	Update(ctx context.Context, i *models.Installment) error
	Delete(ctx context.Context, id int) error
	Collect(ctx context.Context, id int, fn repositories.CollectFunc) (*models.CollectionResult, error)
	MarkOverdue(ctx context.Context, cutoff string) ([]models.Installment, error)
	DueForAgent(ctx context.Context, agentID int, through string) ([]models.Installment, error)
	ContinuationCandidates(ctx context.Context, monthStart, nextMonthStart string) ([]models.ContinuationCandidate, error)
	InsertContinuation(ctx context.Context, i *models.Installment) (bool, error)
}

type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction) (*models.Transaction, error)
	Get(ctx context.Context, id int) (*models.Transaction, error)
	Update(ctx context.Context, t *models.Transaction) (*models.Transaction, error)
	List(ctx context.Context, f models.TransactionFilter) (*models.TransactionPage, error)
	Delete(ctx context.Context, id int, revert func(models.Installment) models.Installment) (*models.Transaction, *models.Installment, error)
}

type StatsStore interface {
	Counts(ctx context.Context, scope models.StatsScope) (agents, borrowers, activeLoans int, err error)
	InstallmentTotals(ctx context.Context, scope models.StatsScope) (*models.InstallmentTotals, error)
	CollectionTotals(ctx context.Context, scope models.StatsScope) (*models.CollectionTotals, error)
	LedgerTotals(ctx context.Context) ([]models.LedgerTotal, error)
}

// Publisher receives live-feed events; *monitoring.Hub implements it
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Archiver uploads generated documents; *storage.Archiver implements it
type Archiver interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

var (
	_ UserStore        = (*repositories.UserRepository)(nil)
	_ AgentStore       = (*repositories.AgentRepository)(nil)
	_ BorrowerStore    = (*repositories.BorrowerRepository)(nil)
	_ LoanStore        = (*repositories.LoanRepository)(nil)
	_ InstallmentStore = (*repositories.InstallmentRepository)(nil)
	_ TransactionStore = (*repositories.TransactionRepository)(nil)
	_ StatsStore       = (*repositories.StatsRepository)(nil)
)
