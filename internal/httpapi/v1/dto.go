package v1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/service/filing"
	"github.com/tinoosan/finledger/internal/service/integration"
	"github.com/tinoosan/finledger/internal/service/quality"
)

// Monetary request fields accept either a JSON number or a decimal string;
// json.Number takes both.

// Accounts

type postAccountRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type renameAccountRequest struct {
	Name string `json:"name"`
}

type accountResponse struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Type         ledger.AccountType `json:"type"`
	Currency     string             `json:"currency"`
	Balance      string             `json:"balance"`
	BalanceMinor int64              `json:"balance_minor"`
	CreatedAt    time.Time          `json:"created_at"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Name:         a.Name,
		Type:         a.Type,
		Currency:     a.Currency,
		Balance:      amountString(a.Balance),
		BalanceMinor: ledger.MinorUnits(a.Balance),
		CreatedAt:    a.CreatedAt,
	}
}

// Transactions

type postTransactionRequest struct {
	AccountID uuid.UUID   `json:"account_id"`
	Amount    json.Number `json:"amount"`
	Currency  string      `json:"currency,omitempty"`
	Direction string      `json:"direction"`
	Memo      string      `json:"memo,omitempty"`
}

type entryResponse struct {
	ID          uuid.UUID        `json:"id"`
	AccountID   uuid.UUID        `json:"account_id"`
	Direction   ledger.Direction `json:"direction"`
	Amount      string           `json:"amount"`
	AmountMinor int64            `json:"amount_minor"`
	Currency    string           `json:"currency"`
	Memo        string           `json:"memo,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		AccountID:   e.AccountID,
		Direction:   e.Direction,
		Amount:      amountString(e.Amount),
		AmountMinor: ledger.MinorUnits(e.Amount),
		Currency:    e.Amount.Curr().Code(),
		Memo:        e.Memo,
		OccurredAt:  e.OccurredAt,
	}
}

type reconcileResponse struct {
	Reconciled bool             `json:"reconciled"`
	Account    *accountResponse `json:"account,omitempty"`
}

// Reports

type balanceSheetResponse struct {
	Currency         string `json:"currency"`
	Assets           string `json:"assets"`
	AssetsMinor      int64  `json:"assets_minor"`
	Liabilities      string `json:"liabilities"`
	LiabilitiesMinor int64  `json:"liabilities_minor"`
	Equity           string `json:"equity"`
	EquityMinor      int64  `json:"equity_minor"`
}

type incomeStatementResponse struct {
	Currency        string `json:"currency"`
	Revenues        string `json:"revenues"`
	RevenuesMinor   int64  `json:"revenues_minor"`
	Expenses        string `json:"expenses"`
	ExpensesMinor   int64  `json:"expenses_minor"`
	NetIncome       string `json:"net_income"`
	NetIncomeMinor  int64  `json:"net_income_minor"`
	ExcludedEntries int    `json:"excluded_entries"`
}

// Tax

type computeTaxRequest struct {
	Income     json.Number `json:"income"`
	Deductions json.Number `json:"deductions"`
}

type computeTaxInput struct {
	Income     decimal.Decimal
	Deductions decimal.Decimal
}

type computeTaxResponse struct {
	TaxableIncome string `json:"taxable_income"`
	TaxDue        string `json:"tax_due"`
}

type postFilingRequest struct {
	UserID     uuid.UUID   `json:"user_id"`
	Year       int         `json:"filing_year"`
	Income     json.Number `json:"income"`
	Deductions json.Number `json:"deductions"`
}

type filingResponse struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	Year          int           `json:"filing_year"`
	Currency      string        `json:"currency"`
	Income        string        `json:"income"`
	Deductions    string        `json:"deductions"`
	TaxableIncome string        `json:"taxable_income"`
	TaxDue        string        `json:"tax_due"`
	TaxDueMinor   int64         `json:"tax_due_minor"`
	Status        filing.Status `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	FiledAt       *time.Time    `json:"filed_at,omitempty"`
}

func toFilingResponse(f filing.Filing) filingResponse {
	return filingResponse{
		ID:            f.ID,
		UserID:        f.UserID,
		Year:          f.Year,
		Currency:      f.Income.Curr().Code(),
		Income:        amountString(f.Income),
		Deductions:    amountString(f.Deductions),
		TaxableIncome: amountString(f.TaxableIncome),
		TaxDue:        amountString(f.TaxDue),
		TaxDueMinor:   ledger.MinorUnits(f.TaxDue),
		Status:        f.Status,
		CreatedAt:     f.CreatedAt,
		FiledAt:       f.FiledAt,
	}
}

// Payroll

type computePayrollRequest struct {
	AnnualSalary json.Number `json:"annual_salary"`
}

type payslipResponse struct {
	GrossPay   string `json:"gross_pay"`
	Taxes      string `json:"taxes"`
	Deductions string `json:"deductions"`
	NetPay     string `json:"net_pay"`
}

// Integrations

type postIntegrationRequest struct {
	Name        string `json:"name"`
	EndpointURL string `json:"endpoint_url"`
}

type integrationResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	EndpointURL  string     `json:"endpoint_url"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

func toIntegrationResponse(in integration.Integration) integrationResponse {
	return integrationResponse{
		ID:           in.ID,
		Name:         in.Name,
		EndpointURL:  in.EndpointURL,
		CreatedAt:    in.CreatedAt,
		LastSyncedAt: in.LastSyncedAt,
	}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// amountString renders a without the currency code, e.g. "1002.50".
func amountString(a money.Amount) string { return a.Decimal().String() }

// Audit trail

type postAuditLogRequest struct {
	UserID  *uuid.UUID `json:"user_id,omitempty"`
	Action  string     `json:"action"`
	Subject string     `json:"subject,omitempty"`
	Details string     `json:"details,omitempty"`
}

type auditPage struct {
	Skip, Limit int
}

type auditLogResponse struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Action    string     `json:"action"`
	Subject   string     `json:"subject,omitempty"`
	Details   string     `json:"details,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func toAuditLogResponse(l audit.Log) auditLogResponse {
	return auditLogResponse{
		ID:        l.ID,
		UserID:    l.UserID,
		Action:    l.Action,
		Subject:   l.Subject,
		Details:   l.Details,
		Timestamp: l.Timestamp,
	}
}

// Data quality

type validateFieldRequest struct {
	FieldName string `json:"field_name"`
	Value     string `json:"value"`
}

type validationResultResponse struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

type qualityIssueResponse struct {
	AccountID   uuid.UUID         `json:"account_id"`
	AccountName string            `json:"account_name"`
	IssueType   quality.IssueType `json:"issue_type"`
	Description string            `json:"description"`
}

type qualityReportResponse struct {
	GeneratedAt     time.Time              `json:"generated_at"`
	CheckedAccounts int                    `json:"checked_accounts"`
	CheckedEntries  int                    `json:"checked_entries"`
	TotalIssues     int                    `json:"total_issues"`
	Issues          []qualityIssueResponse `json:"issues"`
}

func toQualityReportResponse(r quality.Report) qualityReportResponse {
	out := qualityReportResponse{
		GeneratedAt:     r.GeneratedAt,
		CheckedAccounts: r.CheckedAccounts,
		CheckedEntries:  r.CheckedEntries,
		TotalIssues:     len(r.Issues),
		Issues:          make([]qualityIssueResponse, 0, len(r.Issues)),
	}
	for _, i := range r.Issues {
		out.Issues = append(out.Issues, qualityIssueResponse{
			AccountID:   i.AccountID,
			AccountName: i.AccountName,
			IssueType:   i.Type,
			Description: i.Description,
		})
	}
	return out
}
