// Package postgres provides a pgx-backed implementation of the storage ports
// used by the services. Money is stored as minor units next to a currency code.
// The schema lives in migrations/ and is applied with Migrate.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/slug"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// mapErr translates driver errors into the errs taxonomy.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return errs.ErrConflict
		case "23514":
			return errs.ErrInvalid
		}
	}
	return errs.Storage(op, err)
}

// SeedDev creates a small chart of accounts for local testing. Existing
// names are left alone.
func (s *Store) SeedDev(ctx context.Context, currency string) ([]ledger.Account, error) {
	zero, err := ledger.Zero(currency)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	seed := []ledger.Account{
		{ID: uuid.New(), Name: "Opening Balances", Type: ledger.AccountTypeEquity},
		{ID: uuid.New(), Name: "Cash", Type: ledger.AccountTypeAsset},
		{ID: uuid.New(), Name: "Salary", Type: ledger.AccountTypeRevenue},
		{ID: uuid.New(), Name: "Rent", Type: ledger.AccountTypeExpense},
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapErr("seed", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for i := range seed {
		seed[i].Currency = zero.Curr().Code()
		seed[i].Balance = zero
		seed[i].CreatedAt = now
		a := seed[i]
		if _, err := tx.Exec(ctx, `
			insert into accounts (id, name, name_key, type, currency, balance_minor, created_at)
			values ($1,$2,$3,$4,$5,0,$6)
			on conflict (name_key) do nothing
		`, a.ID, a.Name, slug.Key(a.Name), string(a.Type), a.Currency, a.CreatedAt); err != nil {
			return nil, mapErr("seed", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapErr("seed", err)
	}
	return seed, nil
}

// --- Account reads ---

const accountColumns = `id, name, type, currency, balance_minor, created_at`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var (
		a     ledger.Account
		typ   string
		minor int64
	)
	if err := row.Scan(&a.ID, &a.Name, &typ, &a.Currency, &minor, &a.CreatedAt); err != nil {
		return ledger.Account{}, err
	}
	a.Type = ledger.AccountType(typ)
	a.Currency = strings.TrimSpace(a.Currency)
	bal, err := money.NewAmountFromMinorUnits(a.Currency, minor)
	if err != nil {
		return ledger.Account{}, err
	}
	a.Balance = bal
	return a, nil
}

func getAccount(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (ledger.Account, error) {
	sql := `select ` + accountColumns + ` from accounts where id = $1`
	if forUpdate {
		sql += ` for update`
	}
	a, err := scanAccount(q.QueryRow(ctx, sql, id))
	if err != nil {
		return ledger.Account{}, mapErr("get account", err)
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return getAccount(ctx, s.pool, id, false)
}

func (s *Store) listAccounts(ctx context.Context, sql string, args ...any) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr("list accounts", err)
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, mapErr("list accounts", err)
		}
		out = append(out, a)
	}
	return out, mapErr("list accounts", rows.Err())
}

// ListAccounts returns accounts ordered by type then name.
func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return s.listAccounts(ctx, `select `+accountColumns+` from accounts order by type, name`)
}

func (s *Store) FetchAccountsByType(ctx context.Context, t ledger.AccountType) ([]ledger.Account, error) {
	return s.listAccounts(ctx, `select `+accountColumns+` from accounts where type = $1 order by name`, string(t))
}

// --- Account writes ---

func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	balance, err := ledger.ToMinor(a.Balance)
	if err != nil {
		return ledger.Account{}, err
	}
	_, err = s.pool.Exec(ctx, `
		insert into accounts (id, name, name_key, type, currency, balance_minor, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, a.ID, a.Name, slug.Key(a.Name), string(a.Type), strings.ToUpper(a.Currency), balance, a.CreatedAt)
	if err != nil {
		return ledger.Account{}, mapErr("create account", err)
	}
	return a, nil
}

func (s *Store) RenameAccount(ctx context.Context, id uuid.UUID, name string) (ledger.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		update accounts set name = $1, name_key = $2
		where id = $3
		returning `+accountColumns, name, slug.Key(name), id))
	if err != nil {
		return ledger.Account{}, mapErr("rename account", err)
	}
	return a, nil
}

// DeleteAccount relies on the entries foreign key to refuse referenced accounts.
func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return mapErr("delete account", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Entries ---

const entryColumns = `id, account_id, direction, amount_minor, currency, memo, occurred_at`

func scanEntry(row pgx.Row) (ledger.Entry, error) {
	var (
		e     ledger.Entry
		dir   string
		curr  string
		minor int64
	)
	if err := row.Scan(&e.ID, &e.AccountID, &dir, &minor, &curr, &e.Memo, &e.OccurredAt); err != nil {
		return ledger.Entry{}, err
	}
	e.Direction = ledger.Direction(dir)
	amount, err := money.NewAmountFromMinorUnits(strings.TrimSpace(curr), minor)
	if err != nil {
		return ledger.Entry{}, errs.Storage("scan entry", err)
	}
	e.Amount = amount
	return e, nil
}

func fetchEntries(ctx context.Context, q querier, accountID uuid.UUID) ([]ledger.Entry, error) {
	rows, err := q.Query(ctx, `select `+entryColumns+` from entries where account_id = $1 order by seq`, accountID)
	if err != nil {
		return nil, mapErr("fetch entries", err)
	}
	defer rows.Close()
	out := make([]ledger.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, mapErr("fetch entries", err)
		}
		out = append(out, e)
	}
	return out, mapErr("fetch entries", rows.Err())
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx, `select `+entryColumns+` from entries where id = $1`, id))
	if err != nil {
		return ledger.Entry{}, mapErr("get entry", err)
	}
	return e, nil
}

// FetchEntries returns an account's entries in posting order.
func (s *Store) FetchEntries(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error) {
	return fetchEntries(ctx, s.pool, accountID)
}

// BeginTx opens a read-committed transaction. Row locks taken through
// LockAccount are held until Commit or Rollback.
func (s *Store) BeginTx(ctx context.Context) (journal.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, mapErr("begin", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx.Tx for one posting or reconciliation.
type Tx struct{ tx pgx.Tx }

func (t *Tx) LockAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return getAccount(ctx, t.tx, id, true)
}

func (t *Tx) InsertEntry(ctx context.Context, e ledger.Entry) (uuid.UUID, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	amount, err := ledger.ToMinor(e.Amount)
	if err != nil {
		return uuid.Nil, err
	}
	_, err = t.tx.Exec(ctx, `
		insert into entries (id, account_id, direction, amount_minor, currency, memo, occurred_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.AccountID, string(e.Direction), amount, e.Amount.Curr().Code(), e.Memo, e.OccurredAt)
	if err != nil {
		return uuid.Nil, mapErr("insert entry", err)
	}
	return e.ID, nil
}

func (t *Tx) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error {
	minor, err := ledger.ToMinor(balance)
	if err != nil {
		return err
	}
	ct, err := t.tx.Exec(ctx, `update accounts set balance_minor = $1 where id = $2`, minor, id)
	if err != nil {
		return mapErr("update balance", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *Tx) FetchEntries(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error) {
	return fetchEntries(ctx, t.tx, accountID)
}

func (t *Tx) Commit(ctx context.Context) error { return mapErr("commit", t.tx.Commit(ctx)) }

func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return mapErr("rollback", err)
}
