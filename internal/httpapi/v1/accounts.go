package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/account"
)

// pathID parses the {id} URL parameter, answering 400 when malformed.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// postAccount handles POST /v1/accounts.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostAccount).(account.CreateInput)
	if !ok {
		badRequest(w, "invalid request")
		return
	}
	acc, err := s.accounts.Create(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// listAccounts handles GET /v1/accounts?type=.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	typ, _ := r.Context().Value(ctxKeyListAccounts).(ledger.AccountType)
	accs, err := s.accounts.List(r.Context(), typ)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	items := make([]accountResponse, 0, len(accs))
	for _, a := range accs {
		items = append(items, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, listResponse[accountResponse]{Items: items})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	acc, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// renameAccount handles PATCH /v1/accounts/{id}. Only the name is mutable.
func (s *Server) renameAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req renameAccountRequest
	if err := decodeStrict(w, r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	acc, err := s.accounts.Rename(r.Context(), id, req.Name)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// deleteAccount handles DELETE /v1/accounts/{id}; accounts with entries are kept.
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
