package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/spf13/cobra"

	"github.com/tinoosan/finledger/internal/config"
	"github.com/tinoosan/finledger/internal/events"
	"github.com/tinoosan/finledger/internal/events/amqp"
	"github.com/tinoosan/finledger/internal/events/kafka"
	httpapi "github.com/tinoosan/finledger/internal/httpapi/v1"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/payroll"
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/service/filing"
	"github.com/tinoosan/finledger/internal/service/integration"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/service/quality"
	"github.com/tinoosan/finledger/internal/service/statement"
	"github.com/tinoosan/finledger/internal/storage/memory"
	pgstore "github.com/tinoosan/finledger/internal/storage/postgres"
	"github.com/tinoosan/finledger/internal/tax"
)

// store is everything the services need from a storage backend.
type store interface {
	account.Repo
	account.Writer
	journal.Repo
	journal.Writer
	statement.Repo
	filing.Repo
	filing.Writer
	integration.Repo
	integration.Writer
	audit.Repo
	audit.Writer
	quality.Repo
	httpapi.ReadyChecker
}

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), a.cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := buildLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	pub, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Error("closing event publisher", "err", err)
		}
	}()

	schedule := tax.DefaultSchedule()
	if cfg.TaxBracketsFile != "" {
		if schedule, err = tax.LoadSchedule(cfg.TaxBracketsFile); err != nil {
			return err
		}
		logger.Info("tax brackets loaded", "file", cfg.TaxBracketsFile, "brackets", len(schedule.Brackets))
	}
	calc, err := payroll.New(payroll.Rates{Tax: cfg.PayrollTaxRate, Deduction: cfg.PayrollDeductionRate})
	if err != nil {
		return err
	}

	auditSvc := audit.New(st, st)
	svcs := httpapi.Services{
		Accounts:     account.New(st, st, cfg.Currency),
		Journal:      journal.New(st, st, journal.WithPublisher(pub), journal.WithAuditor(auditSvc), journal.WithLogger(logger)),
		Statements:   statement.New(st, cfg.Currency),
		Filings:      filing.New(st, st, schedule, filing.WithAuditor(auditSvc, logger)),
		Integrations: integration.New(st, st, integration.NewHTTPFetcher(cfg.IntegrationTimeout, cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout)),
		Audit:        auditSvc,
		Quality:      quality.New(st, cfg.Currency),
		Schedule:     schedule,
		Payroll:      calc,
		Currency:     cfg.Currency,
	}
	handler := httpapi.New(svcs, logger,
		httpapi.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		httpapi.WithReadyChecker(st),
	).Handler()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledger service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
}

// openStore picks Postgres when a database is configured and an in-memory
// store with a small seed otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	if cfg.DatabaseURL == "" {
		mem := memory.New()
		zero, err := ledger.Zero(cfg.Currency)
		if err != nil {
			return nil, nil, err
		}
		seed := devChart(zero)
		for _, acc := range seed {
			mem.SeedAccount(acc)
		}
		logDevSeed(logger, "memory", seed)
		printDevSeedBanner(seed)
		logger.Info("storage backend: memory")
		return mem, func() {}, nil
	}

	if cfg.AutoMigrate {
		if err := pgstore.Migrate(cfg.DatabaseURL, pgstore.Up); err != nil {
			return nil, nil, err
		}
		logger.Info("migrations applied")
	}
	pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.DevSeed {
		if _, err := pg.SeedDev(ctx, cfg.Currency); err != nil {
			logger.Error("dev seed failed", "err", err)
		} else if accs, err := pg.ListAccounts(ctx); err == nil {
			logDevSeed(logger, "postgres", accs)
			printDevSeedBanner(accs)
		}
	}
	logger.Info("storage backend: postgres")
	return pg, pg.Close, nil
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	var next events.Publisher
	switch cfg.EventsBackend {
	case config.EventsKafka:
		next = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.EventsAMQP:
		p, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return nil, err
		}
		next = p
	default:
		return events.Nop{}, nil
	}
	logger.Info("event publishing enabled", "backend", cfg.EventsBackend)
	return events.NewBreaker(next, events.BreakerSettings{
		Name:        "events-" + cfg.EventsBackend,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger), nil
}

func devChart(zero money.Amount) []ledger.Account {
	now := time.Now().UTC()
	accs := []ledger.Account{
		{Name: "Opening Balances", Type: ledger.AccountTypeEquity},
		{Name: "Cash", Type: ledger.AccountTypeAsset},
		{Name: "Salary", Type: ledger.AccountTypeRevenue},
		{Name: "Rent", Type: ledger.AccountTypeExpense},
	}
	for i := range accs {
		accs[i].ID = uuid.New()
		accs[i].Currency = zero.Curr().Code()
		accs[i].Balance = zero
		accs[i].CreatedAt = now
	}
	return accs
}

// logDevSeed emits the seeded account ids as one structured record.
func logDevSeed(l *slog.Logger, backend string, accs []ledger.Account) {
	ids := make(map[string]string, len(accs))
	for _, a := range accs {
		ids[a.Name] = a.ID.String()
	}
	l.Info("DEV seed ("+backend+")", "ids", ids)
}

// printDevSeedBanner prints ids to stdout for easy copy/paste.
func printDevSeedBanner(accs []ledger.Account) {
	fmt.Println("==================== DEV SEED ====================")
	for _, a := range accs {
		fmt.Printf("%-9s %-18s %s\n", a.Type, a.Name, a.ID)
	}
	fmt.Println("==================================================")
}
