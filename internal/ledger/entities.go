package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
)

// Direction says which side of an account an entry lands on.
type Direction string

const (
	// DirectionDebit decreases the cached balance.
	DirectionDebit Direction = "debit"
	// DirectionCredit increases the cached balance.
	DirectionCredit Direction = "credit"
)

func (d Direction) Valid() bool { return d == DirectionDebit || d == DirectionCredit }

// ParseDirection accepts either case ("Credit", "credit").
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: direction must be debit or credit", errs.ErrInvalid)
	}
	return d, nil
}

// AccountType enumerates the broad classification of an account in the ledger.
type AccountType string

const (
	// AccountTypeAsset holds resources owned by the business.
	AccountTypeAsset AccountType = "asset"
	// AccountTypeLiability tracks obligations.
	AccountTypeLiability AccountType = "liability"
	// AccountTypeEquity captures the owner's residual interest.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeRevenue collects inflows; credits count towards revenue.
	AccountTypeRevenue AccountType = "revenue"
	// AccountTypeExpense collects outflows; debits count towards expenses.
	AccountTypeExpense AccountType = "expense"
)

// AccountTypes lists every valid type in reporting order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

func (t AccountType) Valid() bool {
	for _, v := range AccountTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseAccountType accepts either case ("Asset", "asset").
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown account type %q", errs.ErrInvalid, s)
	}
	return t, nil
}

// Account is a named bucket whose Balance caches the net of its entries.
type Account struct {
	ID        uuid.UUID
	Name      string
	Type      AccountType
	Currency  string
	Balance   money.Amount
	CreatedAt time.Time
}

// Entry is one immutable movement of money against one account.
type Entry struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Amount     money.Amount
	Direction  Direction
	Memo       string
	OccurredAt time.Time
}

// Zero returns a zero amount in curr.
func Zero(curr string) (money.Amount, error) {
	return money.NewAmountFromMinorUnits(curr, 0)
}

// ParseAmount reads a non-negative decimal string in the currency's precision.
func ParseAmount(curr, s string) (money.Amount, error) {
	a, err := money.ParseAmount(curr, strings.TrimSpace(s))
	if err != nil {
		return money.Amount{}, fmt.Errorf("%w: amount %q: %v", errs.ErrInvalid, s, err)
	}
	if a.IsNeg() {
		return money.Amount{}, fmt.Errorf("%w: amount must be >= 0", errs.ErrInvalid)
	}
	if a.Scale() > a.Curr().Scale() {
		return money.Amount{}, fmt.Errorf("%w: amount has more than %d decimal places", errs.ErrInvalid, a.Curr().Scale())
	}
	units, ok := a.MinorUnits()
	if !ok {
		return money.Amount{}, fmt.Errorf("%w: amount out of range", errs.ErrInvalid)
	}
	return money.NewAmountFromMinorUnits(curr, units)
}

// ToMinor returns a in cents (or the currency's minor unit). Amounts whose
// minor units do not fit in an int64 are ErrInvalid.
func ToMinor(a money.Amount) (int64, error) {
	units, ok := a.MinorUnits()
	if !ok {
		return 0, fmt.Errorf("%w: amount %s exceeds the storable range", errs.ErrInvalid, a.Decimal())
	}
	return units, nil
}

// MinorUnits is ToMinor for display. Amounts built by ParseAmount, Add,
// Sub and Apply always fit; storage writes go through ToMinor.
func MinorUnits(a money.Amount) int64 {
	units, ok := a.MinorUnits()
	if !ok {
		panic(fmt.Sprintf("ledger: amount %s exceeds the minor-unit range", a.Decimal()))
	}
	return units
}

func inRange(a money.Amount, err error) (money.Amount, error) {
	if err != nil {
		return money.Amount{}, fmt.Errorf("%w: %v", errs.ErrInvalid, err)
	}
	if _, err := ToMinor(a); err != nil {
		return money.Amount{}, err
	}
	return a, nil
}

// Add is a + b, rejected when the result leaves the int64 minor-unit range.
func Add(a, b money.Amount) (money.Amount, error) { return inRange(a.Add(b)) }

// Sub is a - b with the same range check as Add.
func Sub(a, b money.Amount) (money.Amount, error) { return inRange(a.Sub(b)) }

// Apply moves balance by one entry: credits add, debits subtract.
func Apply(balance money.Amount, e Entry) (money.Amount, error) {
	switch e.Direction {
	case DirectionCredit:
		return Add(balance, e.Amount)
	case DirectionDebit:
		return Sub(balance, e.Amount)
	default:
		return money.Amount{}, fmt.Errorf("%w: direction %q", errs.ErrInvalid, e.Direction)
	}
}

// Recompute folds entries from zero: sum(credits) - sum(debits).
func Recompute(curr string, entries []Entry) (money.Amount, error) {
	bal, err := Zero(curr)
	if err != nil {
		return money.Amount{}, err
	}
	for _, e := range entries {
		if bal, err = Apply(bal, e); err != nil {
			return money.Amount{}, err
		}
	}
	return bal, nil
}

// BalanceSheet aggregates stored balances by type.
type BalanceSheet struct {
	Assets      money.Amount
	Liabilities money.Amount
	Equity      money.Amount
}

// IncomeStatement aggregates revenue credits and expense debits.
// Excluded counts reversing entries (debits on revenue, credits on expense)
// that were left out of the totals.
type IncomeStatement struct {
	Revenues  money.Amount
	Expenses  money.Amount
	NetIncome money.Amount
	Excluded  int
}
