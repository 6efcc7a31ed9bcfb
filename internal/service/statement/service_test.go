package statement_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/service/statement"
	"github.com/tinoosan/finledger/internal/storage/memory"
)

func seed(store *memory.Store, name string, typ ledger.AccountType) uuid.UUID {
	zero, _ := ledger.Zero("USD")
	id := uuid.New()
	store.SeedAccount(ledger.Account{ID: id, Name: name, Type: typ, Currency: "USD", Balance: zero})
	return id
}

func post(t *testing.T, j journal.Service, id uuid.UUID, minor int64, dir ledger.Direction) {
	t.Helper()
	amt, err := money.NewAmountFromMinorUnits("USD", minor)
	require.NoError(t, err)
	_, err = j.PostTransaction(context.Background(), journal.PostInput{AccountID: id, Amount: amt, Direction: dir})
	require.NoError(t, err)
}

func TestEmptyLedgerReportsZero(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := statement.New(store, "USD")

	bs, err := svc.BalanceSheet(ctx)
	require.NoError(t, err)
	assert.True(t, bs.Assets.IsZero())
	assert.True(t, bs.Liabilities.IsZero())
	assert.True(t, bs.Equity.IsZero())

	is, err := svc.IncomeStatement(ctx)
	require.NoError(t, err)
	assert.True(t, is.NetIncome.IsZero())
	assert.Equal(t, 0, is.Excluded)
}

func TestBalanceSheetSumsStoredBalances(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	j := journal.New(store, store)
	cash := seed(store, "Cash", ledger.AccountTypeAsset)
	bank := seed(store, "Bank", ledger.AccountTypeAsset)
	card := seed(store, "Card", ledger.AccountTypeLiability)
	seed(store, "Owner", ledger.AccountTypeEquity)

	post(t, j, cash, 10000, ledger.DirectionCredit)
	post(t, j, bank, 5050, ledger.DirectionCredit)
	post(t, j, card, 2000, ledger.DirectionCredit)

	bs, err := statement.New(store, "USD").BalanceSheet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(15050), ledger.MinorUnits(bs.Assets))
	assert.Equal(t, int64(2000), ledger.MinorUnits(bs.Liabilities))
	assert.True(t, bs.Equity.IsZero())
}

func TestIncomeStatementExcludesReversingEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	j := journal.New(store, store)
	salary := seed(store, "Salary", ledger.AccountTypeRevenue)
	rent := seed(store, "Rent", ledger.AccountTypeExpense)

	post(t, j, salary, 500000, ledger.DirectionCredit)
	post(t, j, salary, 10000, ledger.DirectionDebit) // excluded
	post(t, j, rent, 120000, ledger.DirectionDebit)
	post(t, j, rent, 5000, ledger.DirectionCredit) // excluded
	post(t, j, rent, 30000, ledger.DirectionDebit)

	is, err := statement.New(store, "USD").IncomeStatement(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), ledger.MinorUnits(is.Revenues))
	assert.Equal(t, int64(150000), ledger.MinorUnits(is.Expenses))
	assert.Equal(t, int64(350000), ledger.MinorUnits(is.NetIncome))
	assert.Equal(t, 2, is.Excluded)
}

func TestIncomeStatementCanBeNegative(t *testing.T) {
	store := memory.New()
	j := journal.New(store, store)
	rent := seed(store, "Rent", ledger.AccountTypeExpense)
	post(t, j, rent, 700, ledger.DirectionDebit)

	is, err := statement.New(store, "USD").IncomeStatement(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(-700), ledger.MinorUnits(is.NetIncome))
}
