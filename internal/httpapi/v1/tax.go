package v1

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/service/filing"
)

// computeTax handles POST /v1/tax/compute. Nothing is stored.
func (s *Server) computeTax(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyComputeTax).(computeTaxInput)
	if !ok {
		badRequest(w, "invalid request")
		return
	}
	res, err := s.schedule.Compute(in.Income, in.Deductions)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	taxComputations.Inc()
	toJSON(w, http.StatusOK, computeTaxResponse{
		TaxableIncome: res.TaxableIncome.String(),
		TaxDue:        res.TaxDue.String(),
	})
}

// postFiling handles POST /v1/tax/filings.
func (s *Server) postFiling(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostFiling).(filing.Input)
	if !ok {
		badRequest(w, "invalid request")
		return
	}
	f, err := s.filings.File(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	taxComputations.Inc()
	toJSON(w, http.StatusCreated, toFilingResponse(f))
}

// listFilings handles GET /v1/tax/filings?user_id=.
func (s *Server) listFilings(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		badRequest(w, "user_id is required")
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid user_id")
		return
	}
	fs, err := s.filings.ListByUser(r.Context(), userID)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	items := make([]filingResponse, 0, len(fs))
	for _, f := range fs {
		items = append(items, toFilingResponse(f))
	}
	toJSON(w, http.StatusOK, listResponse[filingResponse]{Items: items})
}

func (s *Server) getFiling(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := s.filings.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toFilingResponse(f))
}

// submitFiling handles POST /v1/tax/filings/{id}/submit. Only pending
// filings can be submitted; a second submit is 409.
func (s *Server) submitFiling(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := s.filings.Submit(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toFilingResponse(f))
}
