package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"loan-backend/internal/handlers"
	"loan-backend/internal/middleware"
	"loan-backend/internal/models"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth         *handlers.AuthHandler
	TOTP         *handlers.TOTPHandler
	Agents       *handlers.AgentHandler
	Borrowers    *handlers.BorrowerHandler
	Loans        *handlers.LoanHandler
	Installments *handlers.InstallmentHandler
	Collections  *handlers.CollectionHandler
	Transactions *handlers.TransactionHandler
	Stats        *handlers.StatsHandler
	Health       *handlers.HealthHandler
	Live         http.HandlerFunc
}

// Guards are the per-route middlewares; nil entries are skipped
type Guards struct {
	LoginRateLimit func(http.Handler) http.Handler
	Idempotency    func(http.Handler) http.Handler
}

func wrap(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return out
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware, guards Guards) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// Public API routes - Authentication
	r.Handle("/auth/login", wrap(h.Auth.Login, guards.LoginRateLimit)).Methods("POST")
	r.Handle("/auth/2fa/verify", wrap(h.Auth.VerifyTOTP, guards.LoginRateLimit)).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/me", h.Auth.Me).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMiddleware.RequireRole(models.RoleAdmin))

	admin.HandleFunc("/2fa/status", h.TOTP.GetStatus).Methods("GET")
	admin.HandleFunc("/2fa/setup", h.TOTP.SetupTOTP).Methods("POST")
	admin.HandleFunc("/2fa/enable", h.TOTP.EnableTOTP).Methods("POST")
	admin.HandleFunc("/2fa/disable", h.TOTP.DisableTOTP).Methods("POST")
	admin.HandleFunc("/2fa/backup-codes", h.TOTP.RegenerateBackupCodes).Methods("POST")

	admin.HandleFunc("/agents", h.Agents.ListAgents).Methods("GET")
	admin.HandleFunc("/agents", h.Agents.CreateAgent).Methods("POST")
	admin.HandleFunc("/agents/{id:[0-9]+}", h.Agents.GetAgent).Methods("GET")
	admin.HandleFunc("/agents/{id:[0-9]+}", h.Agents.UpdateAgent).Methods("PATCH")
	admin.HandleFunc("/agents/{id:[0-9]+}", h.Agents.DeleteAgent).Methods("DELETE")
	admin.HandleFunc("/agents/{id:[0-9]+}/borrowers", h.Agents.ListAgentBorrowers).Methods("GET")
	admin.HandleFunc("/agents/{id:[0-9]+}/borrowers", h.Agents.AssignBorrowers).Methods("POST")

	admin.HandleFunc("/borrowers", h.Borrowers.ListBorrowers).Methods("GET")
	admin.HandleFunc("/borrowers", h.Borrowers.CreateBorrower).Methods("POST")
	admin.HandleFunc("/borrowers/import", h.Borrowers.ImportBorrowers).Methods("POST")
	admin.HandleFunc("/borrowers/{id:[0-9]+}", h.Borrowers.GetBorrower).Methods("GET")
	admin.HandleFunc("/borrowers/{id:[0-9]+}", h.Borrowers.UpdateBorrower).Methods("PUT")
	admin.HandleFunc("/borrowers/{id:[0-9]+}", h.Borrowers.DeleteBorrower).Methods("DELETE")
	admin.HandleFunc("/borrowers/{id:[0-9]+}/loans", h.Loans.ListBorrowerLoans).Methods("GET")
	admin.HandleFunc("/borrowers/{id:[0-9]+}/loans", h.Loans.CreateBorrowerLoan).Methods("POST")

	admin.HandleFunc("/loans/preview", h.Loans.PreviewLoan).Methods("POST")
	admin.HandleFunc("/loans/{id:[0-9]+}", h.Loans.GetLoan).Methods("GET")
	admin.HandleFunc("/loans/{id:[0-9]+}/statement", h.Loans.Statement).Methods("GET")
	admin.HandleFunc("/loans/{id:[0-9]+}/statement/archive", h.Loans.ArchiveStatement).Methods("POST")

	admin.HandleFunc("/installments/overdue", h.Installments.Overdue).Methods("GET")
	admin.HandleFunc("/installments/generate", h.Installments.Generate).Methods("GET")
	admin.HandleFunc("/installments/{id:[0-9]+}", h.Installments.GetInstallment).Methods("GET")
	admin.HandleFunc("/installments/{id:[0-9]+}", h.Installments.UpdateInstallment).Methods("PATCH")
	admin.HandleFunc("/installments/{id:[0-9]+}", h.Installments.DeleteInstallment).Methods("DELETE")
	admin.Handle("/installments/{id:[0-9]+}/collect", wrap(h.Collections.AdminCollect, guards.Idempotency)).Methods("POST")

	admin.HandleFunc("/transactions", h.Transactions.ListTransactions).Methods("GET")
	admin.HandleFunc("/transactions", h.Transactions.CreateTransaction).Methods("POST")
	admin.HandleFunc("/transactions/{id:[0-9]+}", h.Transactions.GetTransaction).Methods("GET")
	admin.HandleFunc("/transactions/{id:[0-9]+}", h.Transactions.UpdateTransaction).Methods("PATCH")
	admin.HandleFunc("/transactions/{id:[0-9]+}", h.Transactions.DeleteTransaction).Methods("DELETE")
	admin.HandleFunc("/transactions/{id:[0-9]+}/receipt", h.Transactions.Receipt).Methods("GET")

	admin.HandleFunc("/stats", h.Stats.AdminStats).Methods("GET")
	if h.Live != nil {
		admin.HandleFunc("/live", h.Live).Methods("GET")
	}

	// Agent routes
	agent := api.PathPrefix("/agent").Subrouter()
	agent.Use(authMiddleware.RequireRole(models.RoleAgent))
	agent.Handle("/collect/{installmentId:[0-9]+}", wrap(h.Collections.AgentCollect, guards.Idempotency)).Methods("POST")
	agent.HandleFunc("/borrowers", h.Collections.AgentBorrowers).Methods("GET")
	agent.HandleFunc("/borrowers/{id:[0-9]+}", h.Collections.AgentBorrower).Methods("GET")
	agent.HandleFunc("/installments/due", h.Collections.DueInstallments).Methods("GET")
	agent.HandleFunc("/stats", h.Stats.AgentStats).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
