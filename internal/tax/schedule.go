// Package tax computes progressive income tax over a marginal bracket table.
package tax

import (
	"fmt"

	"github.com/govalues/decimal"

	"github.com/tinoosan/finledger/internal/errs"
)

// Bracket taxes the slice of income between the previous bracket's UpTo
// (exclusive) and its own UpTo (inclusive) at Rate. The final bracket of a
// schedule is Unbounded and ignores UpTo.
type Bracket struct {
	UpTo      decimal.Decimal
	Rate      decimal.Decimal
	Unbounded bool
}

// Schedule is an ordered bracket table. It holds no mutable state and is
// safe for concurrent use.
type Schedule struct {
	Brackets []Bracket
}

// Result is the outcome of one computation.
type Result struct {
	TaxableIncome decimal.Decimal
	TaxDue        decimal.Decimal
}

// DefaultSchedule returns the built-in federal-style table.
func DefaultSchedule() Schedule {
	return Schedule{Brackets: []Bracket{
		{UpTo: decimal.MustParse("9875"), Rate: decimal.MustParse("0.10")},
		{UpTo: decimal.MustParse("40125"), Rate: decimal.MustParse("0.12")},
		{UpTo: decimal.MustParse("85525"), Rate: decimal.MustParse("0.22")},
		{UpTo: decimal.MustParse("163300"), Rate: decimal.MustParse("0.24")},
		{UpTo: decimal.MustParse("207350"), Rate: decimal.MustParse("0.32")},
		{UpTo: decimal.MustParse("518400"), Rate: decimal.MustParse("0.35")},
		{Rate: decimal.MustParse("0.37"), Unbounded: true},
	}}
}

// Validate checks that limits strictly increase, rates lie in [0, 1] and
// exactly the last bracket is unbounded.
func (s Schedule) Validate() error {
	if len(s.Brackets) == 0 {
		return fmt.Errorf("%w: schedule has no brackets", errs.ErrInvalid)
	}
	prev := decimal.Zero
	for i, b := range s.Brackets {
		if b.Rate.IsNeg() || b.Rate.Cmp(decimal.One) > 0 {
			return fmt.Errorf("%w: bracket %d: rate %s outside [0, 1]", errs.ErrInvalid, i, b.Rate)
		}
		last := i == len(s.Brackets)-1
		if b.Unbounded != last {
			if last {
				return fmt.Errorf("%w: final bracket must be unbounded", errs.ErrInvalid)
			}
			return fmt.Errorf("%w: bracket %d: only the final bracket may be unbounded", errs.ErrInvalid, i)
		}
		if b.Unbounded {
			continue
		}
		if b.UpTo.Cmp(prev) <= 0 {
			return fmt.Errorf("%w: bracket %d: limit %s must exceed %s", errs.ErrInvalid, i, b.UpTo, prev)
		}
		prev = b.UpTo
	}
	return nil
}

// Compute returns the taxable income and the tax due for income less
// deductions. Negative inputs are rejected; deductions larger than income
// clamp taxable income to zero.
func (s Schedule) Compute(income, deductions decimal.Decimal) (Result, error) {
	if income.IsNeg() {
		return Result{}, fmt.Errorf("%w: income must be >= 0", errs.ErrInvalid)
	}
	if deductions.IsNeg() {
		return Result{}, fmt.Errorf("%w: deductions must be >= 0", errs.ErrInvalid)
	}
	taxable, err := income.Sub(deductions)
	if err != nil {
		return Result{}, err
	}
	if taxable.IsNeg() {
		taxable = decimal.Zero
	}

	due := decimal.Zero
	prev := decimal.Zero
	for _, b := range s.Brackets {
		if taxable.Cmp(prev) <= 0 {
			break
		}
		upper := taxable
		if !b.Unbounded && b.UpTo.Cmp(taxable) < 0 {
			upper = b.UpTo
		}
		slice, err := upper.Sub(prev)
		if err != nil {
			return Result{}, err
		}
		part, err := slice.Mul(b.Rate)
		if err != nil {
			return Result{}, err
		}
		if due, err = due.Add(part); err != nil {
			return Result{}, err
		}
		if b.Unbounded {
			break
		}
		prev = b.UpTo
	}
	return Result{TaxableIncome: taxable.Pad(2), TaxDue: due.Round(2).Pad(2)}, nil
}
