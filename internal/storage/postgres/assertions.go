package postgres

import (
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/service/filing"
	"github.com/tinoosan/finledger/internal/service/integration"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/service/quality"
	"github.com/tinoosan/finledger/internal/service/statement"
)

var (
	_ journal.Repo       = (*Store)(nil)
	_ journal.Writer     = (*Store)(nil)
	_ journal.Tx         = (*Tx)(nil)
	_ account.Repo       = (*Store)(nil)
	_ account.Writer     = (*Store)(nil)
	_ statement.Repo     = (*Store)(nil)
	_ filing.Repo        = (*Store)(nil)
	_ filing.Writer      = (*Store)(nil)
	_ integration.Repo   = (*Store)(nil)
	_ integration.Writer = (*Store)(nil)
	_ audit.Repo         = (*Store)(nil)
	_ audit.Writer       = (*Store)(nil)
	_ quality.Repo       = (*Store)(nil)
)
