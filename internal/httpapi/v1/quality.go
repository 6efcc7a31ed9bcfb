package v1

import "net/http"

// qualityReport handles GET /v1/data-quality/report. Problems found are
// data, not errors: the status is 200 either way.
func (s *Server) qualityReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.quality.Report(r.Context())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	qualityIssues.Set(float64(len(rep.Issues)))
	toJSON(w, http.StatusOK, toQualityReportResponse(rep))
}

// validateField handles POST /v1/data-quality/validate.
func (s *Server) validateField(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyValidateField).(validateFieldRequest)
	if !ok {
		badRequest(w, "invalid request")
		return
	}
	res, err := s.quality.ValidateField(req.FieldName, req.Value)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	errors := res.Errors
	if errors == nil {
		errors = []string{}
	}
	toJSON(w, http.StatusOK, validationResultResponse{IsValid: res.Valid, Errors: errors})
}
