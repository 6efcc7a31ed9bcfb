package journal_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/events"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/storage/memory"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func usd(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("USD", minor)
	require.NoError(t, err)
	return a
}

func seedAccount(t *testing.T, store *memory.Store, name string, typ ledger.AccountType) ledger.Account {
	t.Helper()
	a := ledger.Account{ID: uuid.New(), Name: name, Type: typ, Currency: "USD", Balance: usd(t, 0)}
	store.SeedAccount(a)
	return a
}

type capturePublisher struct {
	mu  sync.Mutex
	got []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestPostThenReconcile(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := seedAccount(t, store, "Cash", ledger.AccountTypeAsset)
	pub := &capturePublisher{}
	svc := journal.New(store, store, journal.WithPublisher(pub), journal.WithLogger(testLogger()))

	got, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, 100000), Direction: ledger.DirectionCredit})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), ledger.MinorUnits(got.Balance))

	got, err = svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, 30000), Direction: ledger.DirectionDebit})
	require.NoError(t, err)
	assert.Equal(t, int64(70000), ledger.MinorUnits(got.Balance))

	ok, err := svc.Reconcile(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	stored, err := store.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70000), ledger.MinorUnits(stored.Balance))

	// Second reconcile is a no-op on the value.
	ok, err = svc.Reconcile(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	again, _ := store.GetAccount(ctx, acc.ID)
	assert.Equal(t, ledger.MinorUnits(stored.Balance), ledger.MinorUnits(again.Balance))

	require.Len(t, pub.got, 4)
	assert.Equal(t, events.TypeTransactionPosted, pub.got[0].Type)
	assert.Equal(t, events.TypeAccountReconciled, pub.got[3].Type)
}

func TestReconcile_RepairsDrift(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := seedAccount(t, store, "Cash", ledger.AccountTypeAsset)
	svc := journal.New(store, store)

	_, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, 2500), Direction: ledger.DirectionCredit})
	require.NoError(t, err)

	drifted, _ := store.GetAccount(ctx, acc.ID)
	drifted.Balance = usd(t, 999999)
	store.SeedAccount(drifted)

	ok, err := svc.Reconcile(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	fixed, _ := store.GetAccount(ctx, acc.ID)
	assert.Equal(t, int64(2500), ledger.MinorUnits(fixed.Balance))
}

func TestReconcile_MissingAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := journal.New(store, store)

	ok, err := svc.Reconcile(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	accs, _ := store.ListAccounts(ctx)
	assert.Empty(t, accs)
}

func TestPost_Validation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := seedAccount(t, store, "Cash", ledger.AccountTypeAsset)
	svc := journal.New(store, store)

	_, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, -1), Direction: ledger.DirectionCredit})
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, 1), Direction: "both"})
	assert.ErrorIs(t, err, errs.ErrInvalid)

	eur, _ := money.NewAmountFromMinorUnits("EUR", 100)
	_, err = svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: eur, Direction: ledger.DirectionCredit})
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = svc.PostTransaction(ctx, journal.PostInput{AccountID: uuid.New(), Amount: usd(t, 1), Direction: ledger.DirectionCredit})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	entries, _ := store.FetchEntries(ctx, acc.ID)
	assert.Empty(t, entries)
}

func TestPost_ConcurrentSameAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := seedAccount(t, store, "Cash", ledger.AccountTypeAsset)
	svc := journal.New(store, store)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir := ledger.DirectionCredit
			if i%5 == 0 {
				dir = ledger.DirectionDebit
			}
			_, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, 100), Direction: dir})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, _ := store.GetAccount(ctx, acc.ID)
	// 40 credits and 10 debits of 1.00
	assert.Equal(t, int64(3000), ledger.MinorUnits(got.Balance))

	entries, _ := store.FetchEntries(ctx, acc.ID)
	recomputed, err := ledger.Recompute("USD", entries)
	require.NoError(t, err)
	assert.Equal(t, ledger.MinorUnits(got.Balance), ledger.MinorUnits(recomputed))
}

// failingWriter hands out transactions whose balance update fails.
type failingWriter struct{ store *memory.Store }

func (w failingWriter) BeginTx(ctx context.Context) (journal.Tx, error) {
	tx, err := w.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return failingTx{Tx: tx}, nil
}

type failingTx struct{ journal.Tx }

func (failingTx) UpdateAccountBalance(context.Context, uuid.UUID, money.Amount) error {
	return errs.Storage("update balance", errors.New("disk full"))
}

func TestPost_StorageFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := seedAccount(t, store, "Cash", ledger.AccountTypeAsset)
	svc := journal.New(store, failingWriter{store: store})

	_, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, 500), Direction: ledger.DirectionCredit})
	require.ErrorIs(t, err, errs.ErrStorage)

	entries, _ := store.FetchEntries(ctx, acc.ID)
	assert.Empty(t, entries, "entry must not survive a failed post")
	got, _ := store.GetAccount(ctx, acc.ID)
	assert.True(t, got.Balance.IsZero())

	// The row lock was released by the rollback.
	ok := journal.New(store, store)
	_, err = ok.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, 500), Direction: ledger.DirectionCredit})
	require.NoError(t, err)
}

func TestListEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := seedAccount(t, store, "Cash", ledger.AccountTypeAsset)
	svc := journal.New(store, store)

	_, err := svc.ListEntries(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, 10), Direction: ledger.DirectionCredit, Memo: "float"})
	require.NoError(t, err)
	entries, err := svc.ListEntries(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "float", entries[0].Memo)
	assert.False(t, entries[0].OccurredAt.IsZero())
}

func TestPost_BalanceOverflowRejected(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := seedAccount(t, store, "Cash", ledger.AccountTypeAsset)
	svc := journal.New(store, store, journal.WithLogger(testLogger()))

	half, err := ledger.ParseAmount("USD", "46116860184273879.04")
	require.NoError(t, err)

	_, err = svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: half, Direction: ledger.DirectionCredit})
	require.NoError(t, err)

	_, err = svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: half, Direction: ledger.DirectionCredit})
	require.ErrorIs(t, err, errs.ErrInvalid)

	stored, err := store.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4611686018427387904), ledger.MinorUnits(stored.Balance))
	entries, err := store.FetchEntries(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPostAndReconcile_AreAudited(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := seedAccount(t, store, "Cash", ledger.AccountTypeAsset)
	trail := audit.New(store, store)
	svc := journal.New(store, store, journal.WithAuditor(trail), journal.WithLogger(testLogger()))

	_, err := svc.PostTransaction(ctx, journal.PostInput{AccountID: acc.ID, Amount: usd(t, 2500), Direction: ledger.DirectionCredit})
	require.NoError(t, err)
	ok, err := svc.Reconcile(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Rejected posts leave no trace.
	_, err = svc.PostTransaction(ctx, journal.PostInput{AccountID: uuid.New(), Amount: usd(t, 1), Direction: ledger.DirectionCredit})
	require.ErrorIs(t, err, errs.ErrNotFound)

	logs, err := trail.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, audit.ActionAccountReconciled, logs[0].Action)
	assert.Equal(t, acc.ID.String(), logs[0].Subject)
	assert.Equal(t, audit.ActionTransactionPosted, logs[1].Action)

	entry, err := svc.GetEntry(ctx, uuid.MustParse(logs[1].Subject))
	require.NoError(t, err)
	assert.Equal(t, acc.ID, entry.AccountID)
	assert.Equal(t, int64(2500), ledger.MinorUnits(entry.Amount))

	_, err = svc.GetEntry(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = svc.GetEntry(ctx, uuid.Nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
}
