package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/service/filing"
	"github.com/tinoosan/finledger/internal/service/journal"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

// setup migrates the schema, wipes every table and returns an open store.
func setup(t *testing.T) *Store {
	t.Helper()
	dsn := getTestDSN(t)
	if err := Migrate(dsn, Up); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)
	if _, err := s.pool.Exec(ctx, `truncate table entries, accounts, tax_filings, integrations, audit_logs cascade`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func newAccount(t *testing.T, s *Store, name string, typ ledger.AccountType) ledger.Account {
	t.Helper()
	zero, _ := money.NewAmountFromMinorUnits("USD", 0)
	a := ledger.Account{ID: uuid.New(), Name: name, Type: typ, Currency: "USD", Balance: zero, CreatedAt: time.Now().UTC()}
	if _, err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func TestStore_AccountsRoundTrip(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	cash := newAccount(t, s, "Cash", ledger.AccountTypeAsset)
	newAccount(t, s, "Rent", ledger.AccountTypeExpense)

	dup := ledger.Account{ID: uuid.New(), Name: "cash", Type: ledger.AccountTypeAsset, Currency: "USD", Balance: cash.Balance, CreatedAt: time.Now()}
	if _, err := s.CreateAccount(ctx, dup); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on duplicate name key, got %v", err)
	}

	got, err := s.GetAccount(ctx, cash.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Cash" || got.Type != ledger.AccountTypeAsset || got.Currency != "USD" {
		t.Fatalf("unexpected account: %+v", got)
	}
	assets, _ := s.FetchAccountsByType(ctx, ledger.AccountTypeAsset)
	if len(assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(assets))
	}
	all, _ := s.ListAccounts(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(all))
	}
	if _, err := s.GetAccount(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_PostAndDeleteGuard(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	cash := newAccount(t, s, "Cash", ledger.AccountTypeAsset)
	svc := journal.New(s, s)

	amt, _ := money.NewAmountFromMinorUnits("USD", 1250)
	acc, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: cash.ID, Amount: amt, Direction: ledger.DirectionCredit, Memo: "opening"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if ledger.MinorUnits(acc.Balance) != 1250 {
		t.Fatalf("expected 1250, got %d", ledger.MinorUnits(acc.Balance))
	}
	entries, _ := s.FetchEntries(ctx, cash.ID)
	if len(entries) != 1 || entries[0].Memo != "opening" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	one, err := svc.GetEntry(ctx, entries[0].ID)
	if err != nil || one.AccountID != cash.ID || ledger.MinorUnits(one.Amount) != 1250 {
		t.Fatalf("get entry: %+v %v", one, err)
	}
	if _, err := s.GetEntry(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for unknown entry, got %v", err)
	}
	if err := s.DeleteAccount(ctx, cash.ID); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict deleting referenced account, got %v", err)
	}
}

func TestStore_ConcurrentPostsSerialize(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	cash := newAccount(t, s, "Cash", ledger.AccountTypeAsset)
	svc := journal.New(s, s)

	amt, _ := money.NewAmountFromMinorUnits("USD", 100)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: cash.ID, Amount: amt, Direction: ledger.DirectionCredit}); err != nil {
				t.Errorf("post: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetAccount(ctx, cash.ID)
	if ledger.MinorUnits(got.Balance) != 2000 {
		t.Fatalf("lost update: expected 2000, got %d", ledger.MinorUnits(got.Balance))
	}
	ok, err := svc.Reconcile(ctx, cash.ID)
	if err != nil || !ok {
		t.Fatalf("reconcile: %v %v", ok, err)
	}
}

func TestStore_Filings(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	usd := func(minor int64) money.Amount { a, _ := money.NewAmountFromMinorUnits("USD", minor); return a }
	f := filing.Filing{
		ID: uuid.New(), UserID: uuid.New(), Year: 2024,
		Income: usd(1000000), Deductions: usd(0), TaxableIncome: usd(1000000), TaxDue: usd(100250),
		Status: filing.StatusPending, CreatedAt: time.Now().UTC(),
	}
	if _, err := s.CreateFiling(ctx, f); err != nil {
		t.Fatalf("create filing: %v", err)
	}
	filed, err := s.MarkFiled(ctx, f.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark filed: %v", err)
	}
	if filed.Status != filing.StatusFiled || filed.FiledAt == nil {
		t.Fatalf("unexpected filing: %+v", filed)
	}
	if _, err := s.MarkFiled(ctx, f.ID, time.Now().UTC()); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on second submit, got %v", err)
	}
	if _, err := s.MarkFiled(ctx, uuid.New(), time.Now().UTC()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	list, _ := s.ListFilings(ctx, f.UserID)
	if len(list) != 1 || ledger.MinorUnits(list[0].TaxDue) != 100250 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestStore_BalanceOverflowNotStored(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	cash := newAccount(t, s, "Cash", ledger.AccountTypeAsset)
	svc := journal.New(s, s)

	half, _ := ledger.ParseAmount("USD", "46116860184273879.04")
	if _, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: cash.ID, Amount: half, Direction: ledger.DirectionCredit}); err != nil {
		t.Fatalf("first post: %v", err)
	}
	if _, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: cash.ID, Amount: half, Direction: ledger.DirectionCredit}); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("expected invalid on overflow, got %v", err)
	}
	got, _ := s.GetAccount(ctx, cash.ID)
	if ledger.MinorUnits(got.Balance) != 4611686018427387904 {
		t.Fatalf("balance changed: %s", got.Balance)
	}

	// The store refuses an out-of-range balance even if a caller skips Apply.
	big, _ := money.ParseAmount("USD", "92233720368547758.08")
	tx, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.LockAccount(ctx, cash.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := tx.UpdateAccountBalance(ctx, cash.ID, big); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("expected invalid balance, got %v", err)
	}
}

func TestStore_AuditLogs(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	svc := audit.New(s, s)

	user := uuid.New()
	var ids []uuid.UUID
	for _, action := range []string{"first", "second", "third"} {
		l, err := svc.Record(ctx, audit.Input{UserID: &user, Action: action, Details: "d"})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		ids = append(ids, l.ID)
	}
	got, err := svc.Get(ctx, ids[0])
	if err != nil || got.Action != "first" || got.UserID == nil || *got.UserID != user {
		t.Fatalf("get: %+v %v", got, err)
	}
	page, err := svc.List(ctx, 1, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].Action != "second" || page[1].Action != "first" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if _, err := svc.Get(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
