// Package quality checks stored ledger data against its own invariants and
// validates single field values against the ledger's input rules.
package quality

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
)

type IssueType string

const (
	// IssueBalanceDrift: the cached balance differs from the entry history.
	IssueBalanceDrift IssueType = "balance_drift"
	// IssueCurrencyMismatch: an entry is in another currency than its account.
	IssueCurrencyMismatch IssueType = "currency_mismatch"
	// IssueUnrecomputable: the entry history cannot be folded into a balance.
	IssueUnrecomputable IssueType = "unrecomputable"
)

type Issue struct {
	AccountID   uuid.UUID
	AccountName string
	Type        IssueType
	Description string
}

type Report struct {
	GeneratedAt     time.Time
	CheckedAccounts int
	CheckedEntries  int
	Issues          []Issue
}

// Result of validating one field value. Errors is empty when Valid.
type Result struct {
	Valid  bool
	Errors []string
}

type Repo interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	FetchEntries(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error)
}

type Service interface {
	Report(ctx context.Context) (Report, error)
	ValidateField(field, value string) (Result, error)
}

type service struct {
	repo     Repo
	currency string
	now      func() time.Time
}

// New checks amounts without a currency against currency.
func New(repo Repo, currency string) Service {
	return &service{repo: repo, currency: strings.ToUpper(currency), now: time.Now}
}

// Report scans every account and its entries. It only reads; drift is
// repaired by reconciling the account.
func (s *service) Report(ctx context.Context) (Report, error) {
	accs, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return Report{}, err
	}
	rep := Report{GeneratedAt: s.now().UTC(), CheckedAccounts: len(accs), Issues: []Issue{}}
	for _, a := range accs {
		entries, err := s.repo.FetchEntries(ctx, a.ID)
		if err != nil {
			return Report{}, err
		}
		rep.CheckedEntries += len(entries)
		rep.Issues = append(rep.Issues, checkAccount(a, entries)...)
	}
	sort.SliceStable(rep.Issues, func(i, j int) bool { return rep.Issues[i].AccountName < rep.Issues[j].AccountName })
	return rep, nil
}

func checkAccount(a ledger.Account, entries []ledger.Entry) []Issue {
	issue := func(t IssueType, format string, args ...any) Issue {
		return Issue{AccountID: a.ID, AccountName: a.Name, Type: t, Description: fmt.Sprintf(format, args...)}
	}
	var out []Issue
	for _, e := range entries {
		if code := e.Amount.Curr().Code(); code != a.Currency {
			out = append(out, issue(IssueCurrencyMismatch, "entry %s is in %s, account is in %s", e.ID, code, a.Currency))
		}
	}
	if len(out) > 0 {
		return out
	}
	calculated, err := ledger.Recompute(a.Currency, entries)
	if err != nil {
		return []Issue{issue(IssueUnrecomputable, "%v", err)}
	}
	if calculated.Decimal().Cmp(a.Balance.Decimal()) != 0 {
		return []Issue{issue(IssueBalanceDrift, "stored balance %s, entries sum to %s", a.Balance.Decimal(), calculated.Decimal())}
	}
	return nil
}

// ValidateField applies the rule for field to value. Unknown fields are
// ErrInvalid; a value that breaks the rule is reported in the Result.
func (s *service) ValidateField(field, value string) (Result, error) {
	check, ok := fieldRules[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		return Result{}, errs.Invalidf("unsupported field %q", field)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Result{Errors: []string{"value is required"}}, nil
	}
	if err := check(s, value); err != nil {
		return Result{Errors: []string{err.Error()}}, nil
	}
	return Result{Valid: true, Errors: []string{}}, nil
}

var fieldRules = map[string]func(s *service, v string) error{
	"amount": func(s *service, v string) error {
		a, err := ledger.ParseAmount(s.currency, v)
		if err != nil {
			return err
		}
		if !a.IsPos() {
			return fmt.Errorf("amount must be greater than zero")
		}
		return nil
	},
	"currency": func(_ *service, v string) error {
		_, err := money.ParseCurr(v)
		return err
	},
	"direction": func(_ *service, v string) error {
		_, err := ledger.ParseDirection(v)
		return err
	},
	"account_type": func(_ *service, v string) error {
		_, err := ledger.ParseAccountType(v)
		return err
	},
	"email": func(_ *service, v string) error {
		addr, err := mail.ParseAddress(v)
		if err != nil {
			return err
		}
		if addr.Address != v {
			return fmt.Errorf("email must be a bare address")
		}
		return nil
	},
	"date": func(_ *service, v string) error {
		_, err := time.Parse(time.DateOnly, v)
		return err
	},
}
