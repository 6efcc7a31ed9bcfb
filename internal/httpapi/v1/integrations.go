package v1

import (
	"net/http"
)

func (s *Server) postIntegration(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyPostIntegration).(postIntegrationRequest)
	if !ok {
		badRequest(w, "invalid request")
		return
	}
	in, err := s.integrations.Create(r.Context(), req.Name, req.EndpointURL)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toIntegrationResponse(in))
}

func (s *Server) getIntegration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, err := s.integrations.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toIntegrationResponse(in))
}

// syncIntegration handles POST /v1/integrations/{id}/sync. A failing or
// unreachable endpoint answers 502.
func (s *Server) syncIntegration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, err := s.integrations.Sync(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toIntegrationResponse(in))
}
