// Package audit keeps an append-only trail of ledger actions.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
)

// Actions recorded by the ledger itself. Clients may record their own.
const (
	ActionTransactionPosted = "transaction.posted"
	ActionAccountReconciled = "account.reconciled"
	ActionFilingSubmitted   = "filing.submitted"
)

const (
	maxActionLen  = 255
	maxDetailsLen = 4096

	DefaultLimit = 100
	MaxLimit     = 1000
)

// Log is one audit record. UserID and Subject are optional.
type Log struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	Action    string
	Subject   string
	Details   string
	Timestamp time.Time
}

// Input is a request to append a record.
type Input struct {
	UserID  *uuid.UUID
	Action  string
	Subject string
	Details string
}

type Repo interface {
	GetAuditLog(ctx context.Context, id uuid.UUID) (Log, error)
	// ListAuditLogs returns records newest first.
	ListAuditLogs(ctx context.Context, skip, limit int) ([]Log, error)
}

type Writer interface {
	InsertAuditLog(ctx context.Context, l Log) (Log, error)
}

type Service interface {
	Validate(in Input) error
	Record(ctx context.Context, in Input) (Log, error)
	Get(ctx context.Context, id uuid.UUID) (Log, error)
	List(ctx context.Context, skip, limit int) ([]Log, error)
}

type service struct {
	repo   Repo
	writer Writer
	now    func() time.Time
}

func New(repo Repo, writer Writer) Service {
	return &service{repo: repo, writer: writer, now: time.Now}
}

func (s *service) Validate(in Input) error {
	action := strings.TrimSpace(in.Action)
	if action == "" {
		return errs.Invalidf("action is required")
	}
	if utf8.RuneCountInString(action) > maxActionLen {
		return errs.Invalidf("action longer than %d characters", maxActionLen)
	}
	if len(in.Details) > maxDetailsLen {
		return errs.Invalidf("details longer than %d bytes", maxDetailsLen)
	}
	if in.UserID != nil && *in.UserID == uuid.Nil {
		return errs.Invalidf("user_id must not be the nil uuid")
	}
	return nil
}

func (s *service) Record(ctx context.Context, in Input) (Log, error) {
	if err := s.Validate(in); err != nil {
		return Log{}, err
	}
	return s.writer.InsertAuditLog(ctx, Log{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Action:    strings.TrimSpace(in.Action),
		Subject:   in.Subject,
		Details:   in.Details,
		Timestamp: s.now().UTC(),
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Log, error) {
	if id == uuid.Nil {
		return Log{}, errs.ErrInvalid
	}
	return s.repo.GetAuditLog(ctx, id)
}

// List pages through the trail newest first. A zero limit means
// DefaultLimit.
func (s *service) List(ctx context.Context, skip, limit int) ([]Log, error) {
	if skip < 0 {
		return nil, errs.Invalidf("skip must be >= 0")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", errs.ErrInvalid, MaxLimit)
	}
	return s.repo.ListAuditLogs(ctx, skip, limit)
}
