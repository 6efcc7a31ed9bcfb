package v1

import (
	"net/http"

	"github.com/tinoosan/finledger/internal/ledger"
)

func (s *Server) balanceSheet(w http.ResponseWriter, r *http.Request) {
	bs, err := s.statements.BalanceSheet(r.Context())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, balanceSheetResponse{
		Currency:         s.currency,
		Assets:           amountString(bs.Assets),
		AssetsMinor:      ledger.MinorUnits(bs.Assets),
		Liabilities:      amountString(bs.Liabilities),
		LiabilitiesMinor: ledger.MinorUnits(bs.Liabilities),
		Equity:           amountString(bs.Equity),
		EquityMinor:      ledger.MinorUnits(bs.Equity),
	})
}

func (s *Server) incomeStatement(w http.ResponseWriter, r *http.Request) {
	is, err := s.statements.IncomeStatement(r.Context())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, incomeStatementResponse{
		Currency:        s.currency,
		Revenues:        amountString(is.Revenues),
		RevenuesMinor:   ledger.MinorUnits(is.Revenues),
		Expenses:        amountString(is.Expenses),
		ExpensesMinor:   ledger.MinorUnits(is.Expenses),
		NetIncome:       amountString(is.NetIncome),
		NetIncomeMinor:  ledger.MinorUnits(is.NetIncome),
		ExcludedEntries: is.Excluded,
	})
}
