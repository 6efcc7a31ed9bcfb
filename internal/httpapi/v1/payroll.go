package v1

import (
	"net/http"

	"github.com/govalues/decimal"
)

func (s *Server) computePayroll(w http.ResponseWriter, r *http.Request) {
	salary, ok := r.Context().Value(ctxKeyComputePayroll).(decimal.Decimal)
	if !ok {
		badRequest(w, "invalid request")
		return
	}
	slip, err := s.payroll.Monthly(salary)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, payslipResponse{
		GrossPay:   slip.GrossPay.String(),
		Taxes:      slip.Taxes.String(),
		Deductions: slip.Deductions.String(),
		NetPay:     slip.NetPay.String(),
	})
}
