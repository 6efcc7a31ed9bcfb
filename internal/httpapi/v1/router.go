// Package v1 wires the HTTP surface of the ledger service.
// Handlers stay thin and delegate business rules to the service layer.
package v1

import (
	"log/slog"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/finledger/internal/payroll"
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/service/filing"
	"github.com/tinoosan/finledger/internal/service/integration"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/service/quality"
	"github.com/tinoosan/finledger/internal/service/statement"
	"github.com/tinoosan/finledger/internal/tax"
)

// Server wires handlers and middleware using Chi.
type Server struct {
	accounts     account.Service
	journal      journal.Service
	statements   statement.Service
	filings      filing.Service
	integrations integration.Service
	audit        audit.Service
	quality      quality.Service
	schedule     tax.Schedule
	payroll      *payroll.Calculator
	ready        ReadyChecker
	currency     string

	limiter *clientLimiter
	log     *slog.Logger
	rt      *chi.Mux
}

// Option customizes the server.
type Option func(*Server)

// WithRateLimit caps each client at rps requests per second with the given
// burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = newClientLimiter(rps, burst)
		}
	}
}

// WithReadyChecker makes /readyz consult rc.
func WithReadyChecker(rc ReadyChecker) Option { return func(s *Server) { s.ready = rc } }

// New constructs the HTTP server with routes and middleware.
func New(svcs Services, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		accounts:     svcs.Accounts,
		journal:      svcs.Journal,
		statements:   svcs.Statements,
		filings:      svcs.Filings,
		integrations: svcs.Integrations,
		audit:        svcs.Audit,
		quality:      svcs.Quality,
		schedule:     svcs.Schedule,
		payroll:      svcs.Payroll,
		currency:     strings.ToUpper(svcs.Currency),
		log:          logger,
		rt:           chi.NewRouter(),
	}
	for _, o := range opts {
		o(s)
	}
	s.rt.Use(chimw.RequestID)
	s.rt.Use(instrument(logger))
	s.rt.Use(recoverer(logger))
	if s.limiter != nil {
		s.rt.Use(s.limiter.middleware)
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func (s *Server) routes() {
	s.rt.Route("/v1", func(r chi.Router) {
		// Accounts
		r.With(requireJSON, s.validatePostAccount()).Post("/accounts", s.postAccount)
		r.With(s.validateListAccounts()).Get("/accounts", s.listAccounts)
		r.Get("/accounts/{id}", s.getAccount)
		r.With(requireJSON).Patch("/accounts/{id}", s.renameAccount)
		r.Delete("/accounts/{id}", s.deleteAccount)
		r.Get("/accounts/{id}/entries", s.listEntries)
		r.Get("/entries/{id}", s.getEntry)
		r.Post("/accounts/{id}/reconcile", s.reconcileAccount)

		// Transactions
		r.With(requireJSON, s.validatePostTransaction()).Post("/transactions", s.postTransaction)

		// Reports
		r.Get("/reports/balance-sheet", s.balanceSheet)
		r.Get("/reports/income-statement", s.incomeStatement)

		// Tax
		r.With(requireJSON, s.validateComputeTax()).Post("/tax/compute", s.computeTax)
		r.With(requireJSON, s.validatePostFiling()).Post("/tax/filings", s.postFiling)
		r.Get("/tax/filings", s.listFilings)
		r.Get("/tax/filings/{id}", s.getFiling)
		r.Post("/tax/filings/{id}/submit", s.submitFiling)

		// Payroll
		r.With(requireJSON, s.validateComputePayroll()).Post("/payroll/compute", s.computePayroll)

		// Integrations
		r.With(requireJSON, s.validatePostIntegration()).Post("/integrations", s.postIntegration)
		r.Get("/integrations/{id}", s.getIntegration)
		r.Post("/integrations/{id}/sync", s.syncIntegration)

		// Audit trail
		r.With(requireJSON, s.validatePostAuditLog()).Post("/audit-logs", s.postAuditLog)
		r.With(s.validateListAuditLogs()).Get("/audit-logs", s.listAuditLogs)
		r.Get("/audit-logs/{id}", s.getAuditLog)

		// Data quality
		r.Get("/data-quality/report", s.qualityReport)
		r.With(requireJSON, s.validateValidateField()).Post("/data-quality/validate", s.validateField)
	})

	// Unversioned
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
