// Package events defines the ledger's outbound domain events and the
// publisher port that transports them.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeTransactionPosted = "ledger.transaction_posted"
	TypeAccountReconciled = "ledger.account_reconciled"
)

// Event is the envelope every transport carries. Key orders events per
// account on partitioned transports.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// TransactionPosted follows a committed post.
type TransactionPosted struct {
	EntryID      uuid.UUID `json:"entry_id"`
	AccountID    uuid.UUID `json:"account_id"`
	Direction    string    `json:"direction"`
	AmountMinor  int64     `json:"amount_minor"`
	BalanceMinor int64     `json:"balance_minor"`
	Currency     string    `json:"currency"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// AccountReconciled follows a committed reconciliation.
type AccountReconciled struct {
	AccountID     uuid.UUID `json:"account_id"`
	PreviousMinor int64     `json:"previous_minor"`
	BalanceMinor  int64     `json:"balance_minor"`
	Currency      string    `json:"currency"`
	Entries       int       `json:"entries"`
}

// New wraps payload in an envelope.
func New(typ, key string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: uuid.New(), Type: typ, Key: key, OccurredAt: time.Now().UTC(), Payload: raw}, nil
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
