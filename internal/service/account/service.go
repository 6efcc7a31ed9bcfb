// Package account implements the account rules: names unique by slug key,
// fixed type and currency, and no deletion while entries reference it.
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/slug"
)

type Repo interface {
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	FetchAccountsByType(ctx context.Context, t ledger.AccountType) ([]ledger.Account, error)
}

// Writer persists account changes. Implementations report duplicate name
// keys and deletes of referenced accounts as errs.ErrConflict.
type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	RenameAccount(ctx context.Context, id uuid.UUID, name string) (ledger.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

type CreateInput struct {
	Name string
	Type ledger.AccountType
}

type Service interface {
	ValidateCreate(in CreateInput) error
	Create(ctx context.Context, in CreateInput) (ledger.Account, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	// List returns every account, or only those of typ when it is set.
	List(ctx context.Context, typ ledger.AccountType) ([]ledger.Account, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (ledger.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repo
	writer   Writer
	currency string
}

// New returns a service that opens accounts in currency.
func New(repo Repo, writer Writer, currency string) Service {
	return &service{repo: repo, writer: writer, currency: strings.ToUpper(currency)}
}

const maxNameLen = 255

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: name longer than %d bytes", errs.ErrInvalid, maxNameLen)
	}
	if slug.Key(name) == "" {
		return fmt.Errorf("%w: name needs at least one letter or digit", errs.ErrInvalid)
	}
	return nil
}

func (s *service) ValidateCreate(in CreateInput) error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", errs.ErrInvalid, in.Type)
	}
	return nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (ledger.Account, error) {
	if err := s.ValidateCreate(in); err != nil {
		return ledger.Account{}, err
	}
	zero, err := ledger.Zero(s.currency)
	if err != nil {
		return ledger.Account{}, err
	}
	a := ledger.Account{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Type:      in.Type,
		Currency:  s.currency,
		Balance:   zero,
		CreatedAt: time.Now().UTC(),
	}
	return s.writer.CreateAccount(ctx, a)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	if id == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	return s.repo.GetAccount(ctx, id)
}

func (s *service) List(ctx context.Context, typ ledger.AccountType) ([]ledger.Account, error) {
	if typ == "" {
		return s.repo.ListAccounts(ctx)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", errs.ErrInvalid, typ)
	}
	return s.repo.FetchAccountsByType(ctx, typ)
}

func (s *service) Rename(ctx context.Context, id uuid.UUID, name string) (ledger.Account, error) {
	if id == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	if err := validateName(name); err != nil {
		return ledger.Account{}, err
	}
	return s.writer.RenameAccount(ctx, id, strings.TrimSpace(name))
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	return s.writer.DeleteAccount(ctx, id)
}
