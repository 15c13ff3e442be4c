// internal/api/handlers.go
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/validation"
	"admissions-engine/internal/interview/assignment"
	"admissions-engine/internal/interview/results"
	"admissions-engine/internal/interview/tracking"
	"admissions-engine/internal/interview/verification"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeValidated reads the body once, checks it against the schema,
// then unmarshals into the typed request.
func decodeValidated(r *http.Request, schema validation.JSONSchema, out interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewValidationError("unreadable request body")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return apperrors.NewValidationError("request body must be a JSON object")
	}

	if result := validation.ValidateInput(raw, schema); !result.Valid {
		return apperrors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewValidationError("request body does not match the expected shape")
	}
	return nil
}

func queryYear(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, apperrors.NewValidationError("year query parameter is required")
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 {
		return 0, apperrors.NewValidationError("year must be a four digit year")
	}
	return year, nil
}

// ==========================
// Assignment
// ==========================

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignment.AssignRequest
	if err := decodeValidated(r, assignment.GetAssignSchema(), &req); err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	if len(req.ApplicantIDs) == 0 {
		s.errs.WriteError(w, r, apperrors.NewValidationError("applicantIds must not be empty"))
		return
	}

	outcomes, err := s.assignments.Assign(r.Context(), &req)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	s.tracking.InvalidateProgress(r.Context(), req.Year)
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": outcomes})
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	var wire struct {
		ApplicantIDs  []string `json:"applicantIds"`
		InterviewerID string   `json:"interviewerId"`
		Year          int      `json:"year"`
	}
	if err := decodeValidated(r, assignment.GetReassignSchema(), &wire); err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	if len(wire.ApplicantIDs) == 0 {
		s.errs.WriteError(w, r, apperrors.NewValidationError("applicantIds must not be empty"))
		return
	}

	// The stringly sentinel stops here; the engine only sees the
	// closed target variant.
	target := assignment.TargetInterviewer(wire.InterviewerID)
	if wire.InterviewerID == assignment.UnassignSentinel {
		target = assignment.TargetUnassign()
	}

	outcomes, err := s.assignments.Reassign(r.Context(), &assignment.ReassignRequest{
		ApplicantIDs: wire.ApplicantIDs,
		Target:       target,
		Year:         wire.Year,
	})
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	s.tracking.InvalidateProgress(r.Context(), wire.Year)
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": outcomes})
}

// ==========================
// Results and Verification
// ==========================

func (s *Server) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	applicantID := chi.URLParam(r, "applicantID")

	var req results.SubmitRequest
	if err := decodeValidated(r, results.GetInputSchema(), &req); err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	resp, err := s.results.Submit(r.Context(), applicantID, &req)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	s.tracking.InvalidateProgress(r.Context(), req.Year)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVerification(w http.ResponseWriter, r *http.Request) {
	applicantID := chi.URLParam(r, "applicantID")

	var req verification.SubmitRequest
	if err := decodeValidated(r, verification.GetInputSchema(), &req); err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	resp, err := s.verification.Submit(r.Context(), applicantID, &req)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	s.tracking.InvalidateProgress(r.Context(), req.Year)
	writeJSON(w, http.StatusOK, resp)
}

// ==========================
// Progress and Listings
// ==========================

func (s *Server) handleOverallProgress(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	out, err := s.tracking.OverallProgress(r.Context(), year)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJurisdictionProgress(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	out, err := s.tracking.JurisdictionProgress(r.Context(), year)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jurisdictions": out})
}

func (s *Server) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	q := r.URL.Query()
	req := &tracking.ListRequest{
		Year:          year,
		InterviewerID: q.Get("interviewerId"),
	}
	if page := q.Get("page"); page != "" {
		req.Page, _ = strconv.Atoi(page)
	}
	if size := q.Get("pageSize"); size != "" {
		req.PageSize, _ = strconv.Atoi(size)
	}
	if statuses := q.Get("status"); statuses != "" {
		req.Statuses = strings.Split(statuses, ",")
	}
	if rs := q.Get("result"); rs != "" {
		req.Results = strings.Split(rs, ",")
	}

	out, err := s.tracking.ListApplicants(r.Context(), req)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	applicantID := chi.URLParam(r, "applicantID")

	known, err := s.roster.Exists(r.Context(), applicantID, year)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	if !known {
		s.errs.WriteError(w, r, apperrors.NewNotFoundError("Applicant", applicantID))
		return
	}

	out, err := s.tracking.History(r.Context(), applicantID, year)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ==========================
// Jurisdictions and Roster
// ==========================

func (s *Server) handleJurisdictionChildren(w http.ResponseWriter, r *http.Request) {
	parentCode := chi.URLParam(r, "parentCode")

	units, err := s.directory.ResolveChildren(r.Context(), parentCode)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"children": units})
}

func (s *Server) handleUnassigned(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	parentCode := chi.URLParam(r, "parentCode")

	out, err := s.tracking.UnassignedApplicants(r.Context(), parentCode, year)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applicants": out})
}

func (s *Server) handleReassignable(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	parentCode := chi.URLParam(r, "parentCode")

	out, err := s.tracking.ReassignableApplicants(r.Context(), parentCode, year)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applicants": out})
}

func (s *Server) handleInterviewers(w http.ResponseWriter, r *http.Request) {
	out, err := s.roster.Interviewers(r.Context())
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"interviewers": out})
}

// ==========================
// Reports
// ==========================

func (s *Server) handleReportDownload(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}

	q := r.URL.Query()
	ids := strings.Split(q.Get("ids"), ",")
	if len(ids) == 1 && ids[0] == "" {
		s.errs.WriteError(w, r, apperrors.NewValidationError("ids query parameter is required"))
		return
	}

	body, contentType, err := s.reports.FetchAssignmentReport(r.Context(), ids, q.Get("interviewerId"), year)
	if err != nil {
		s.errs.WriteError(w, r, err)
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
