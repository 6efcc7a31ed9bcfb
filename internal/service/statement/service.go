// Package statement builds the balance sheet and income statement from
// the ledger's read side.
package statement

import (
	"context"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/ledger"
)

// Repo is the read side used for reporting.
type Repo interface {
	FetchAccountsByType(ctx context.Context, t ledger.AccountType) ([]ledger.Account, error)
	FetchEntries(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error)
}

type Service interface {
	BalanceSheet(ctx context.Context) (ledger.BalanceSheet, error)
	IncomeStatement(ctx context.Context) (ledger.IncomeStatement, error)
}

type service struct {
	repo     Repo
	currency string
}

// New reports amounts in currency; empty groups total zero in it.
func New(repo Repo, currency string) Service { return &service{repo: repo, currency: currency} }

func (s *service) BalanceSheet(ctx context.Context) (ledger.BalanceSheet, error) {
	var out ledger.BalanceSheet
	var err error
	if out.Assets, err = s.sumBalances(ctx, ledger.AccountTypeAsset); err != nil {
		return ledger.BalanceSheet{}, err
	}
	if out.Liabilities, err = s.sumBalances(ctx, ledger.AccountTypeLiability); err != nil {
		return ledger.BalanceSheet{}, err
	}
	if out.Equity, err = s.sumBalances(ctx, ledger.AccountTypeEquity); err != nil {
		return ledger.BalanceSheet{}, err
	}
	return out, nil
}

func (s *service) sumBalances(ctx context.Context, t ledger.AccountType) (money.Amount, error) {
	total, err := ledger.Zero(s.currency)
	if err != nil {
		return money.Amount{}, err
	}
	accs, err := s.repo.FetchAccountsByType(ctx, t)
	if err != nil {
		return money.Amount{}, err
	}
	for _, a := range accs {
		if total, err = ledger.Add(total, a.Balance); err != nil {
			return money.Amount{}, err
		}
	}
	return total, nil
}

// IncomeStatement counts credits on revenue accounts and debits on expense
// accounts. Reversing entries are excluded and only counted.
func (s *service) IncomeStatement(ctx context.Context) (ledger.IncomeStatement, error) {
	var out ledger.IncomeStatement
	revenues, excluded, err := s.sumEntries(ctx, ledger.AccountTypeRevenue, ledger.DirectionCredit)
	if err != nil {
		return ledger.IncomeStatement{}, err
	}
	out.Excluded += excluded
	expenses, excluded, err := s.sumEntries(ctx, ledger.AccountTypeExpense, ledger.DirectionDebit)
	if err != nil {
		return ledger.IncomeStatement{}, err
	}
	out.Excluded += excluded
	net, err := ledger.Sub(revenues, expenses)
	if err != nil {
		return ledger.IncomeStatement{}, err
	}
	out.Revenues, out.Expenses, out.NetIncome = revenues, expenses, net
	return out, nil
}

func (s *service) sumEntries(ctx context.Context, t ledger.AccountType, d ledger.Direction) (money.Amount, int, error) {
	total, err := ledger.Zero(s.currency)
	if err != nil {
		return money.Amount{}, 0, err
	}
	accs, err := s.repo.FetchAccountsByType(ctx, t)
	if err != nil {
		return money.Amount{}, 0, err
	}
	excluded := 0
	for _, a := range accs {
		entries, err := s.repo.FetchEntries(ctx, a.ID)
		if err != nil {
			return money.Amount{}, 0, err
		}
		for _, e := range entries {
			if e.Direction != d {
				excluded++
				continue
			}
			if total, err = ledger.Add(total, e.Amount); err != nil {
				return money.Amount{}, 0, err
			}
		}
	}
	return total, excluded, nil
}
