// Package filing records yearly tax filings computed through a tax schedule.
package filing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/tax"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusFiled   Status = "filed"
)

// Filing is a tax computation frozen at the time it was recorded.
type Filing struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Year          int
	Income        money.Amount
	Deductions    money.Amount
	TaxableIncome money.Amount
	TaxDue        money.Amount
	Status        Status
	CreatedAt     time.Time
	FiledAt       *time.Time
}

type Repo interface {
	GetFiling(ctx context.Context, id uuid.UUID) (Filing, error)
	ListFilings(ctx context.Context, userID uuid.UUID) ([]Filing, error)
}

// Writer persists filings. MarkFiled returns errs.ErrConflict when the
// filing is no longer pending.
type Writer interface {
	CreateFiling(ctx context.Context, f Filing) (Filing, error)
	MarkFiled(ctx context.Context, id uuid.UUID, at time.Time) (Filing, error)
}

type Input struct {
	UserID     uuid.UUID
	Year       int
	Income     money.Amount
	Deductions money.Amount
}

type Service interface {
	Validate(in Input) error
	File(ctx context.Context, in Input) (Filing, error)
	Submit(ctx context.Context, id uuid.UUID) (Filing, error)
	Get(ctx context.Context, id uuid.UUID) (Filing, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Filing, error)
}

// Auditor appends to the audit trail.
type Auditor interface {
	Record(ctx context.Context, in audit.Input) (audit.Log, error)
}

type service struct {
	repo     Repo
	writer   Writer
	schedule tax.Schedule
	audit    Auditor
	log      *slog.Logger
}

type Option func(*service)

// WithAuditor records submissions after they are stored.
func WithAuditor(a Auditor, log *slog.Logger) Option {
	return func(s *service) {
		s.audit = a
		if log != nil {
			s.log = log
		}
	}
}

func New(repo Repo, writer Writer, schedule tax.Schedule, opts ...Option) Service {
	s := &service{repo: repo, writer: writer, schedule: schedule, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

const (
	minYear = 1900
	maxYear = 2100
)

func (s *service) Validate(in Input) error {
	if in.UserID == uuid.Nil {
		return fmt.Errorf("%w: user_id is required", errs.ErrInvalid)
	}
	if in.Year < minYear || in.Year > maxYear {
		return fmt.Errorf("%w: filing_year must be between %d and %d", errs.ErrInvalid, minYear, maxYear)
	}
	if in.Income.IsNeg() || in.Deductions.IsNeg() {
		return fmt.Errorf("%w: income and deductions must be >= 0", errs.ErrInvalid)
	}
	if in.Income.Curr() != in.Deductions.Curr() {
		return fmt.Errorf("%w: income and deductions differ in currency", errs.ErrInvalid)
	}
	return nil
}

func (s *service) File(ctx context.Context, in Input) (Filing, error) {
	if err := s.Validate(in); err != nil {
		return Filing{}, err
	}
	res, err := s.schedule.Compute(in.Income.Decimal(), in.Deductions.Decimal())
	if err != nil {
		return Filing{}, err
	}
	curr := in.Income.Curr()
	taxable, err := money.NewAmountFromDecimal(curr, res.TaxableIncome)
	if err != nil {
		return Filing{}, err
	}
	due, err := money.NewAmountFromDecimal(curr, res.TaxDue)
	if err != nil {
		return Filing{}, err
	}
	return s.writer.CreateFiling(ctx, Filing{
		ID:            uuid.New(),
		UserID:        in.UserID,
		Year:          in.Year,
		Income:        in.Income,
		Deductions:    in.Deductions,
		TaxableIncome: taxable,
		TaxDue:        due,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *service) Submit(ctx context.Context, id uuid.UUID) (Filing, error) {
	if id == uuid.Nil {
		return Filing{}, errs.ErrInvalid
	}
	f, err := s.writer.MarkFiled(ctx, id, time.Now().UTC())
	if err != nil {
		return Filing{}, err
	}
	if s.audit != nil {
		user := f.UserID
		_, err := s.audit.Record(ctx, audit.Input{
			UserID:  &user,
			Action:  audit.ActionFilingSubmitted,
			Subject: f.ID.String(),
			Details: fmt.Sprintf("%d filing, tax due %s", f.Year, f.TaxDue),
		})
		if err != nil {
			s.log.Warn("audit record failed", "action", audit.ActionFilingSubmitted, "subject", f.ID.String(), "err", err)
		}
	}
	return f, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Filing, error) {
	if id == uuid.Nil {
		return Filing{}, errs.ErrInvalid
	}
	return s.repo.GetFiling(ctx, id)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Filing, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id is required", errs.ErrInvalid)
	}
	return s.repo.ListFilings(ctx, userID)
}
