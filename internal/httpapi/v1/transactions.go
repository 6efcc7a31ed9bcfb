package v1

import (
	"net/http"

	"github.com/tinoosan/finledger/internal/service/journal"
)

// postTransaction handles POST /v1/transactions and returns the account
// with its new balance.
func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostTransaction).(journal.PostInput)
	if !ok {
		badRequest(w, "invalid request")
		return
	}
	acc, err := s.journal.PostTransaction(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	transactionsPosted.WithLabelValues(string(in.Direction)).Inc()
	toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// listEntries handles GET /v1/accounts/{id}/entries.
func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entries, err := s.journal.ListEntries(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	items := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toEntryResponse(e))
	}
	toJSON(w, http.StatusOK, listResponse[entryResponse]{Items: items})
}

// reconcileAccount handles POST /v1/accounts/{id}/reconcile. An unknown
// account answers 404 with reconciled=false.
func (s *Server) reconcileAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	done, err := s.journal.Reconcile(r.Context(), id)
	if err != nil {
		reconciliations.WithLabelValues("error").Inc()
		s.writeServiceErr(w, r, err)
		return
	}
	if !done {
		reconciliations.WithLabelValues("missing").Inc()
		toJSON(w, http.StatusNotFound, reconcileResponse{Reconciled: false})
		return
	}
	reconciliations.WithLabelValues("reconciled").Inc()
	acc, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	resp := toAccountResponse(acc)
	toJSON(w, http.StatusOK, reconcileResponse{Reconciled: true, Account: &resp})
}

// getEntry handles GET /v1/entries/{id}.
func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := s.journal.GetEntry(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toEntryResponse(e))
}
