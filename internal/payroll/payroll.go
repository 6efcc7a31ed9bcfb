// Package payroll derives a monthly payslip from an annual salary.
package payroll

import (
	"fmt"

	"github.com/govalues/decimal"

	"github.com/tinoosan/finledger/internal/errs"
)

// Rates are fractions of gross pay withheld each period.
type Rates struct {
	Tax       decimal.Decimal
	Deduction decimal.Decimal
}

// DefaultRates withholds 20% tax and 5% benefit deductions.
func DefaultRates() Rates {
	return Rates{Tax: decimal.MustParse("0.20"), Deduction: decimal.MustParse("0.05")}
}

// Payslip amounts are rounded to cents.
type Payslip struct {
	GrossPay   decimal.Decimal
	Taxes      decimal.Decimal
	Deductions decimal.Decimal
	NetPay     decimal.Decimal
}

// Calculator is safe for concurrent use.
type Calculator struct {
	rates Rates
}

// New validates rates and returns a calculator.
func New(r Rates) (*Calculator, error) {
	for name, v := range map[string]decimal.Decimal{"tax": r.Tax, "deduction": r.Deduction} {
		if v.IsNeg() || v.Cmp(decimal.One) > 0 {
			return nil, fmt.Errorf("%w: %s rate %s outside [0, 1]", errs.ErrInvalid, name, v)
		}
	}
	sum, err := r.Tax.Add(r.Deduction)
	if err != nil {
		return nil, err
	}
	if sum.Cmp(decimal.One) > 0 {
		return nil, fmt.Errorf("%w: combined rates exceed 1", errs.ErrInvalid)
	}
	return &Calculator{rates: r}, nil
}

var twelve = decimal.MustNew(12, 0)

// cents rounds half-to-even and always carries two fractional digits.
func cents(d decimal.Decimal) decimal.Decimal { return d.Round(2).Pad(2) }

// Monthly splits the annual salary into twelve periods and withholds tax
// and deductions from each.
func (c *Calculator) Monthly(annualSalary decimal.Decimal) (Payslip, error) {
	if annualSalary.IsNeg() {
		return Payslip{}, fmt.Errorf("%w: salary must be >= 0", errs.ErrInvalid)
	}
	gross, err := annualSalary.Quo(twelve)
	if err != nil {
		return Payslip{}, err
	}
	gross = cents(gross)
	taxes, err := gross.Mul(c.rates.Tax)
	if err != nil {
		return Payslip{}, err
	}
	taxes = cents(taxes)
	deductions, err := gross.Mul(c.rates.Deduction)
	if err != nil {
		return Payslip{}, err
	}
	deductions = cents(deductions)
	net, err := gross.Sub(taxes)
	if err != nil {
		return Payslip{}, err
	}
	if net, err = net.Sub(deductions); err != nil {
		return Payslip{}, err
	}
	return Payslip{GrossPay: gross, Taxes: taxes, Deductions: deductions, NetPay: net}, nil
}
