package v1

import (
	"net/http"

	"github.com/tinoosan/finledger/internal/service/audit"
)

// postAuditLog handles POST /v1/audit-logs for records written by clients.
func (s *Server) postAuditLog(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostAuditLog).(audit.Input)
	if !ok {
		badRequest(w, "invalid request")
		return
	}
	l, err := s.audit.Record(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toAuditLogResponse(l))
}

// listAuditLogs handles GET /v1/audit-logs?skip=&limit=, newest first.
func (s *Server) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := r.Context().Value(ctxKeyListAuditLogs).(auditPage)
	logs, err := s.audit.List(r.Context(), page.Skip, page.Limit)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	items := make([]auditLogResponse, 0, len(logs))
	for _, l := range logs {
		items = append(items, toAuditLogResponse(l))
	}
	toJSON(w, http.StatusOK, listResponse[auditLogResponse]{Items: items})
}

func (s *Server) getAuditLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	l, err := s.audit.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAuditLogResponse(l))
}
