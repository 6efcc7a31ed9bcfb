package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/govalues/decimal"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/service/filing"
	"github.com/tinoosan/finledger/internal/service/journal"
)

type ctxKey string

const (
	ctxKeyPostAccount     ctxKey = "validatedPostAccount"
	ctxKeyListAccounts    ctxKey = "validatedListAccounts"
	ctxKeyPostTransaction ctxKey = "validatedPostTransaction"
	ctxKeyComputeTax      ctxKey = "validatedComputeTax"
	ctxKeyPostFiling      ctxKey = "validatedPostFiling"
	ctxKeyComputePayroll  ctxKey = "validatedComputePayroll"
	ctxKeyPostIntegration ctxKey = "validatedPostIntegration"
	ctxKeyPostAuditLog    ctxKey = "validatedPostAuditLog"
	ctxKeyListAuditLogs   ctxKey = "validatedListAuditLogs"
	ctxKeyValidateField   ctxKey = "validatedValidateField"
)

// validated wraps the decode-validate-stash sequence shared by every body
// validator. parse returns the typed input or an error; errs.ErrInvalid
// answers 422, anything else 400.
func validated[Req any](key ctxKey, parse func(r *http.Request, req Req) (any, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req Req
			if err := decodeStrict(w, r, &req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			in, err := parse(r, req)
			if err != nil {
				writeErr(w, http.StatusUnprocessableEntity, err.Error(), "validation_error")
				return
			}
			ctx := context.WithValue(r.Context(), key, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseDecimal(field string, n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Decimal{}, errs.Invalidf("%s is required", field)
	}
	d, err := decimal.Parse(n.String())
	if err != nil {
		return decimal.Decimal{}, errs.Invalidf("%s must be a decimal number", field)
	}
	return d, nil
}

func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return validated(ctxKeyPostAccount, func(_ *http.Request, req postAccountRequest) (any, error) {
		typ, err := ledger.ParseAccountType(req.Type)
		if err != nil {
			return nil, err
		}
		in := account.CreateInput{Name: req.Name, Type: typ}
		if err := s.accounts.ValidateCreate(in); err != nil {
			return nil, err
		}
		return in, nil
	})
}

// validateListAccounts reads the optional ?type= filter.
func (s *Server) validateListAccounts() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var typ ledger.AccountType
			if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
				t, err := ledger.ParseAccountType(raw)
				if err != nil {
					badRequest(w, "invalid type")
					return
				}
				typ = t
			}
			ctx := context.WithValue(r.Context(), ctxKeyListAccounts, typ)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validatePostTransaction() func(http.Handler) http.Handler {
	return validated(ctxKeyPostTransaction, func(_ *http.Request, req postTransactionRequest) (any, error) {
		curr := s.currency
		if c := strings.TrimSpace(req.Currency); c != "" {
			curr = strings.ToUpper(c)
		}
		if req.Amount == "" {
			return nil, errs.Invalidf("amount is required")
		}
		amt, err := ledger.ParseAmount(curr, req.Amount.String())
		if err != nil {
			return nil, err
		}
		dir, err := ledger.ParseDirection(req.Direction)
		if err != nil {
			return nil, err
		}
		in := journal.PostInput{AccountID: req.AccountID, Amount: amt, Direction: dir, Memo: strings.TrimSpace(req.Memo)}
		if err := s.journal.ValidatePost(in); err != nil {
			return nil, err
		}
		return in, nil
	})
}

func (s *Server) validateComputeTax() func(http.Handler) http.Handler {
	return validated(ctxKeyComputeTax, func(_ *http.Request, req computeTaxRequest) (any, error) {
		income, err := parseDecimal("income", req.Income)
		if err != nil {
			return nil, err
		}
		deductions := decimal.Zero
		if req.Deductions != "" {
			if deductions, err = parseDecimal("deductions", req.Deductions); err != nil {
				return nil, err
			}
		}
		if income.IsNeg() || deductions.IsNeg() {
			return nil, errs.Invalidf("income and deductions must be >= 0")
		}
		return computeTaxInput{Income: income, Deductions: deductions}, nil
	})
}

func (s *Server) validatePostFiling() func(http.Handler) http.Handler {
	return validated(ctxKeyPostFiling, func(_ *http.Request, req postFilingRequest) (any, error) {
		if req.Income == "" {
			return nil, errs.Invalidf("income is required")
		}
		income, err := ledger.ParseAmount(s.currency, req.Income.String())
		if err != nil {
			return nil, err
		}
		deductions, err := ledger.Zero(s.currency)
		if err != nil {
			return nil, err
		}
		if req.Deductions != "" {
			if deductions, err = ledger.ParseAmount(s.currency, req.Deductions.String()); err != nil {
				return nil, err
			}
		}
		in := filing.Input{UserID: req.UserID, Year: req.Year, Income: income, Deductions: deductions}
		if err := s.filings.Validate(in); err != nil {
			return nil, err
		}
		return in, nil
	})
}

func (s *Server) validateComputePayroll() func(http.Handler) http.Handler {
	return validated(ctxKeyComputePayroll, func(_ *http.Request, req computePayrollRequest) (any, error) {
		salary, err := parseDecimal("annual_salary", req.AnnualSalary)
		if err != nil {
			return nil, err
		}
		if salary.IsNeg() {
			return nil, errs.Invalidf("annual_salary must be >= 0")
		}
		return salary, nil
	})
}

func (s *Server) validatePostIntegration() func(http.Handler) http.Handler {
	return validated(ctxKeyPostIntegration, func(_ *http.Request, req postIntegrationRequest) (any, error) {
		if err := s.integrations.Validate(req.Name, req.EndpointURL); err != nil {
			return nil, err
		}
		return req, nil
	})
}

func (s *Server) validatePostAuditLog() func(http.Handler) http.Handler {
	return validated(ctxKeyPostAuditLog, func(_ *http.Request, req postAuditLogRequest) (any, error) {
		in := audit.Input{UserID: req.UserID, Action: req.Action, Subject: strings.TrimSpace(req.Subject), Details: req.Details}
		if err := s.audit.Validate(in); err != nil {
			return nil, err
		}
		return in, nil
	})
}

// validateListAuditLogs reads ?skip= and ?limit=. Non-integers are 400;
// range checks stay with the service.
func (s *Server) validateListAuditLogs() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var page auditPage
			for name, dst := range map[string]*int{"skip": &page.Skip, "limit": &page.Limit} {
				raw := strings.TrimSpace(r.URL.Query().Get(name))
				if raw == "" {
					continue
				}
				n, err := strconv.Atoi(raw)
				if err != nil {
					badRequest(w, "invalid "+name)
					return
				}
				*dst = n
			}
			ctx := context.WithValue(r.Context(), ctxKeyListAuditLogs, page)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validateValidateField() func(http.Handler) http.Handler {
	return validated(ctxKeyValidateField, func(_ *http.Request, req validateFieldRequest) (any, error) {
		if strings.TrimSpace(req.FieldName) == "" {
			return nil, errs.Invalidf("field_name is required")
		}
		return req, nil
	})
}
