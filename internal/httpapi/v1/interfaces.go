package v1

import (
	"context"

	"github.com/tinoosan/finledger/internal/payroll"
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/service/filing"
	"github.com/tinoosan/finledger/internal/service/integration"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/service/quality"
	"github.com/tinoosan/finledger/internal/service/statement"
	"github.com/tinoosan/finledger/internal/tax"
)

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Services bundles the dependencies handed to New. Currency is the ledger
// currency used to parse request amounts that do not name one.
type Services struct {
	Accounts     account.Service
	Journal      journal.Service
	Statements   statement.Service
	Filings      filing.Service
	Integrations integration.Service
	Audit        audit.Service
	Quality      quality.Service
	Schedule     tax.Schedule
	Payroll      *payroll.Calculator
	Currency     string
}
