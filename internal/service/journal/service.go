// Package journal posts money movements against accounts and keeps each
// account's cached balance consistent with its entry history.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/events"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/audit"
)

// Repo defines read operations needed by the service.
type Repo interface {
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	GetEntry(ctx context.Context, id uuid.UUID) (ledger.Entry, error)
	FetchEntries(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error)
}

// Auditor appends to the audit trail.
type Auditor interface {
	Record(ctx context.Context, in audit.Input) (audit.Log, error)
}

// Writer opens a unit of work. Everything done through the returned Tx is
// applied on Commit or discarded on Rollback.
type Writer interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is the storage port used while an account row is held.
type Tx interface {
	// LockAccount loads the account and holds its row lock until the
	// transaction ends. It returns errs.ErrNotFound for unknown ids.
	LockAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	InsertEntry(ctx context.Context, e ledger.Entry) (uuid.UUID, error)
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error
	FetchEntries(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error)
	Commit(ctx context.Context) error
	// Rollback is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// PostInput is a validated request to move money on one account.
type PostInput struct {
	AccountID uuid.UUID
	Amount    money.Amount
	Direction ledger.Direction
	Memo      string
}

// Service exposes posting, reconciliation and entry listing.
type Service interface {
	ValidatePost(in PostInput) error
	PostTransaction(ctx context.Context, in PostInput) (ledger.Account, error)
	Reconcile(ctx context.Context, accountID uuid.UUID) (bool, error)
	ListEntries(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (ledger.Entry, error)
}

type service struct {
	repo   Repo
	writer Writer
	pub    events.Publisher
	audit  Auditor
	log    *slog.Logger
	now    func() time.Time
}

// Option customizes the service.
type Option func(*service)

// WithPublisher emits ledger events after each committed change.
func WithPublisher(p events.Publisher) Option { return func(s *service) { s.pub = p } }

// WithAuditor records posts and reconciliations after commit.
func WithAuditor(a Auditor) Option { return func(s *service) { s.audit = a } }

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option { return func(s *service) { s.log = l } }

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

func New(repo Repo, writer Writer, opts ...Option) Service {
	s := &service{
		repo:   repo,
		writer: writer,
		pub:    events.Nop{},
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) ValidatePost(in PostInput) error {
	if in.AccountID == uuid.Nil {
		return fmt.Errorf("%w: account_id is required", errs.ErrInvalid)
	}
	if in.Amount.IsNeg() {
		return fmt.Errorf("%w: amount must be >= 0", errs.ErrInvalid)
	}
	if !in.Direction.Valid() {
		return fmt.Errorf("%w: direction must be debit or credit", errs.ErrInvalid)
	}
	return nil
}

// PostTransaction appends an entry and moves the cached balance in one unit
// of work. Concurrent posts to the same account serialize on its row lock.
func (s *service) PostTransaction(ctx context.Context, in PostInput) (ledger.Account, error) {
	if err := s.ValidatePost(in); err != nil {
		return ledger.Account{}, err
	}
	tx, err := s.writer.BeginTx(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	acc, err := tx.LockAccount(ctx, in.AccountID)
	if err != nil {
		return ledger.Account{}, err
	}
	if code := in.Amount.Curr().Code(); code != acc.Currency {
		return ledger.Account{}, fmt.Errorf("%w: amount currency %s does not match account currency %s", errs.ErrInvalid, code, acc.Currency)
	}

	entry := ledger.Entry{
		ID:         uuid.New(),
		AccountID:  acc.ID,
		Amount:     in.Amount,
		Direction:  in.Direction,
		Memo:       in.Memo,
		OccurredAt: s.now().UTC(),
	}
	balance, err := ledger.Apply(acc.Balance, entry)
	if err != nil {
		return ledger.Account{}, err
	}
	if entry.ID, err = tx.InsertEntry(ctx, entry); err != nil {
		return ledger.Account{}, err
	}
	if err := tx.UpdateAccountBalance(ctx, acc.ID, balance); err != nil {
		return ledger.Account{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Account{}, err
	}
	acc.Balance = balance

	s.publish(ctx, events.TypeTransactionPosted, acc.ID, events.TransactionPosted{
		EntryID:      entry.ID,
		AccountID:    acc.ID,
		Direction:    string(entry.Direction),
		AmountMinor:  ledger.MinorUnits(entry.Amount),
		BalanceMinor: ledger.MinorUnits(balance),
		Currency:     acc.Currency,
		OccurredAt:   entry.OccurredAt,
	})
	s.record(ctx, audit.ActionTransactionPosted, entry.ID,
		fmt.Sprintf("%s %s on account %s, balance %s", entry.Direction, entry.Amount, acc.ID, balance))
	return acc, nil
}

// Reconcile recomputes the balance from the full entry history and
// overwrites the cached value. A missing account yields false and no writes.
func (s *service) Reconcile(ctx context.Context, accountID uuid.UUID) (bool, error) {
	if accountID == uuid.Nil {
		return false, nil
	}
	tx, err := s.writer.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	acc, err := tx.LockAccount(ctx, accountID)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	entries, err := tx.FetchEntries(ctx, acc.ID)
	if err != nil {
		return false, err
	}
	calculated, err := ledger.Recompute(acc.Currency, entries)
	if err != nil {
		return false, err
	}
	if err := tx.UpdateAccountBalance(ctx, acc.ID, calculated); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	s.publish(ctx, events.TypeAccountReconciled, acc.ID, events.AccountReconciled{
		AccountID:     acc.ID,
		PreviousMinor: ledger.MinorUnits(acc.Balance),
		BalanceMinor:  ledger.MinorUnits(calculated),
		Currency:      acc.Currency,
		Entries:       len(entries),
	})
	s.record(ctx, audit.ActionAccountReconciled, acc.ID,
		fmt.Sprintf("balance %s recomputed as %s from %d entries", acc.Balance, calculated, len(entries)))
	return true, nil
}

func (s *service) ListEntries(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error) {
	if accountID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.FetchEntries(ctx, accountID)
}

func (s *service) GetEntry(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
	if id == uuid.Nil {
		return ledger.Entry{}, errs.ErrInvalid
	}
	return s.repo.GetEntry(ctx, id)
}

func (s *service) record(ctx context.Context, action string, subject uuid.UUID, details string) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Record(ctx, audit.Input{Action: action, Subject: subject.String(), Details: details}); err != nil {
		s.log.Warn("audit record failed", "action", action, "subject", subject.String(), "err", err)
	}
}

func (s *service) publish(ctx context.Context, typ string, key uuid.UUID, payload any) {
	ev, err := events.New(typ, key.String(), payload)
	if err == nil {
		err = s.pub.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn("event publish failed", "type", typ, "key", key.String(), "err", err)
	}
}
