// Package memory provides an in-memory implementation used for development and tests.
// Postings serialize per account on a row mutex, mirroring SELECT ... FOR UPDATE.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/service/filing"
	"github.com/tinoosan/finledger/internal/service/integration"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/slug"
)

var (
	errAccountNotHeld = errors.New("account not locked in this transaction")
	errTxDone         = errors.New("transaction already finished")
)

// Store is guarded by an RWMutex for map access; rowLocks hold accounts
// for the lifetime of a unit of work.
type Store struct {
	mu               sync.RWMutex
	accounts         map[uuid.UUID]ledger.Account
	nameKeys         map[string]uuid.UUID
	entries          map[uuid.UUID][]ledger.Entry
	filings          map[uuid.UUID]filing.Filing
	integrations     map[uuid.UUID]integration.Integration
	integrationNames map[string]uuid.UUID
	auditLogs        []audit.Log

	lockMu   sync.Mutex
	rowLocks map[uuid.UUID]*sync.Mutex
}

// New constructs an empty in-memory store.
func New() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset drops all data.
func (s *Store) Reset() {
	s.mu.Lock()
	s.accounts = make(map[uuid.UUID]ledger.Account)
	s.nameKeys = make(map[string]uuid.UUID)
	s.entries = make(map[uuid.UUID][]ledger.Entry)
	s.filings = make(map[uuid.UUID]filing.Filing)
	s.integrations = make(map[uuid.UUID]integration.Integration)
	s.integrationNames = make(map[string]uuid.UUID)
	s.auditLogs = nil
	s.mu.Unlock()
	s.lockMu.Lock()
	s.rowLocks = make(map[uuid.UUID]*sync.Mutex)
	s.lockMu.Unlock()
}

// SeedAccount inserts or replaces an account for local dev/tests.
func (s *Store) SeedAccount(a ledger.Account) {
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.nameKeys[slug.Key(a.Name)] = a.ID
	s.mu.Unlock()
}

// Ready always succeeds.
func (s *Store) Ready(context.Context) error { return nil }

func (s *Store) rowLock(id uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	m, ok := s.rowLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[id] = m
	}
	return m
}

// --- Accounts ---

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// ListAccounts returns accounts ordered by type then name.
func (s *Store) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) FetchAccountsByType(_ context.Context, t ledger.AccountType) ([]ledger.Account, error) {
	s.mu.RLock()
	out := make([]ledger.Account, 0)
	for _, a := range s.accounts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slug.Key(a.Name)
	if _, taken := s.nameKeys[key]; taken {
		return ledger.Account{}, errs.ErrConflict
	}
	s.accounts[a.ID] = a
	s.nameKeys[key] = a.ID
	return a, nil
}

func (s *Store) RenameAccount(_ context.Context, id uuid.UUID, name string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	oldKey, newKey := slug.Key(a.Name), slug.Key(name)
	if owner, taken := s.nameKeys[newKey]; taken && owner != id {
		return ledger.Account{}, errs.ErrConflict
	}
	delete(s.nameKeys, oldKey)
	s.nameKeys[newKey] = id
	a.Name = name
	s.accounts[id] = a
	return a, nil
}

// DeleteAccount removes an account with no entries. It waits for any unit
// of work holding the account.
func (s *Store) DeleteAccount(_ context.Context, id uuid.UUID) error {
	m := s.rowLock(id)
	m.Lock()
	defer m.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errs.ErrNotFound
	}
	if len(s.entries[id]) > 0 {
		return errs.ErrConflict
	}
	delete(s.accounts, id)
	delete(s.nameKeys, slug.Key(a.Name))
	return nil
}

// --- Entries ---

// FetchEntries returns an account's committed entries in posting order.
func (s *Store) FetchEntries(_ context.Context, accountID uuid.UUID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.entries[accountID]
	out := make([]ledger.Entry, len(src))
	copy(out, src)
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id uuid.UUID) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.entries {
		for _, e := range list {
			if e.ID == id {
				return e, nil
			}
		}
	}
	return ledger.Entry{}, errs.ErrNotFound
}

// BeginTx starts a unit of work. Writes are staged and applied on Commit.
func (s *Store) BeginTx(_ context.Context) (journal.Tx, error) {
	return &Tx{
		s:        s,
		held:     make(map[uuid.UUID]*sync.Mutex),
		balances: make(map[uuid.UUID]money.Amount),
	}, nil
}

// Tx stages entry inserts and balance updates for the accounts it holds.
type Tx struct {
	s        *Store
	held     map[uuid.UUID]*sync.Mutex
	entries  []ledger.Entry
	balances map[uuid.UUID]money.Amount
	done     bool
}

func (t *Tx) LockAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	if t.done {
		return ledger.Account{}, errTxDone
	}
	if _, ok := t.held[id]; !ok {
		if _, err := t.s.GetAccount(ctx, id); err != nil {
			return ledger.Account{}, err
		}
		m := t.s.rowLock(id)
		m.Lock()
		t.held[id] = m
	}
	// Re-read under the row lock: a concurrent delete may have won.
	a, err := t.s.GetAccount(ctx, id)
	if err != nil {
		t.held[id].Unlock()
		delete(t.held, id)
		return ledger.Account{}, err
	}
	if bal, ok := t.balances[id]; ok {
		a.Balance = bal
	}
	return a, nil
}

func (t *Tx) InsertEntry(_ context.Context, e ledger.Entry) (uuid.UUID, error) {
	if _, ok := t.held[e.AccountID]; !ok {
		return uuid.Nil, errs.Storage("insert entry", errAccountNotHeld)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	t.entries = append(t.entries, e)
	return e.ID, nil
}

func (t *Tx) UpdateAccountBalance(_ context.Context, id uuid.UUID, balance money.Amount) error {
	if _, ok := t.held[id]; !ok {
		return errs.Storage("update balance", errAccountNotHeld)
	}
	t.balances[id] = balance
	return nil
}

// FetchEntries returns committed entries plus the ones staged in this unit of work.
func (t *Tx) FetchEntries(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error) {
	out, err := t.s.FetchEntries(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, e := range t.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return errTxDone
	}
	t.s.mu.Lock()
	for _, e := range t.entries {
		t.s.entries[e.AccountID] = append(t.s.entries[e.AccountID], e)
	}
	for id, bal := range t.balances {
		a := t.s.accounts[id]
		a.Balance = bal
		t.s.accounts[id] = a
	}
	t.s.mu.Unlock()
	t.release()
	return nil
}

func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	for _, m := range t.held {
		m.Unlock()
	}
	t.held = nil
	t.entries = nil
	t.balances = nil
	t.done = true
}
