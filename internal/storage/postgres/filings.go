package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/filing"
)

const filingColumns = `id, user_id, year, currency, income_minor, deductions_minor, taxable_minor, tax_due_minor, status, created_at, filed_at`

func scanFiling(row pgx.Row) (filing.Filing, error) {
	var (
		f                                   filing.Filing
		curr, status                        string
		income, deductions, taxable, taxDue int64
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.Year, &curr, &income, &deductions, &taxable, &taxDue, &status, &f.CreatedAt, &f.FiledAt); err != nil {
		return filing.Filing{}, err
	}
	curr = strings.TrimSpace(curr)
	f.Status = filing.Status(status)
	var err error
	for _, p := range []struct {
		dst   *money.Amount
		minor int64
	}{{&f.Income, income}, {&f.Deductions, deductions}, {&f.TaxableIncome, taxable}, {&f.TaxDue, taxDue}} {
		if *p.dst, err = money.NewAmountFromMinorUnits(curr, p.minor); err != nil {
			return filing.Filing{}, err
		}
	}
	return f, nil
}

func (s *Store) CreateFiling(ctx context.Context, f filing.Filing) (filing.Filing, error) {
	var minor [4]int64
	for i, a := range []money.Amount{f.Income, f.Deductions, f.TaxableIncome, f.TaxDue} {
		units, err := ledger.ToMinor(a)
		if err != nil {
			return filing.Filing{}, err
		}
		minor[i] = units
	}
	_, err := s.pool.Exec(ctx, `
		insert into tax_filings (`+filingColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, f.ID, f.UserID, f.Year, f.Income.Curr().Code(),
		minor[0], minor[1], minor[2], minor[3],
		string(f.Status), f.CreatedAt, f.FiledAt)
	if err != nil {
		return filing.Filing{}, mapErr("create filing", err)
	}
	return f, nil
}

func (s *Store) GetFiling(ctx context.Context, id uuid.UUID) (filing.Filing, error) {
	f, err := scanFiling(s.pool.QueryRow(ctx, `select `+filingColumns+` from tax_filings where id = $1`, id))
	if err != nil {
		return filing.Filing{}, mapErr("get filing", err)
	}
	return f, nil
}

// ListFilings returns a user's filings, newest year first.
func (s *Store) ListFilings(ctx context.Context, userID uuid.UUID) ([]filing.Filing, error) {
	rows, err := s.pool.Query(ctx, `
		select `+filingColumns+`
		from tax_filings
		where user_id = $1
		order by year desc, created_at desc
	`, userID)
	if err != nil {
		return nil, mapErr("list filings", err)
	}
	defer rows.Close()
	out := make([]filing.Filing, 0)
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, mapErr("list filings", err)
		}
		out = append(out, f)
	}
	return out, mapErr("list filings", rows.Err())
}

// MarkFiled moves a pending filing to filed. A filing in any other state is
// a conflict.
func (s *Store) MarkFiled(ctx context.Context, id uuid.UUID, at time.Time) (filing.Filing, error) {
	f, err := scanFiling(s.pool.QueryRow(ctx, `
		update tax_filings set status = $1, filed_at = $2
		where id = $3 and status = $4
		returning `+filingColumns,
		string(filing.StatusFiled), at, id, string(filing.StatusPending)))
	if err == nil {
		return f, nil
	}
	if mapped := mapErr("mark filed", err); !errors.Is(mapped, errs.ErrNotFound) {
		return filing.Filing{}, mapped
	}
	if _, err := s.GetFiling(ctx, id); err != nil {
		return filing.Filing{}, err
	}
	return filing.Filing{}, errs.ErrConflict
}
