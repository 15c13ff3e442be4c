// internal/interview/tracking/models.go
package tracking

import "admissions-engine/internal/interview"

// JurisdictionProgress carries the per-jurisdiction dashboard counts.
type JurisdictionProgress struct {
	JurisdictionCode              string `json:"jurisdictionCode"`
	PendingEvaluation             int    `json:"pendingEvaluation"`
	TotalInterviewRequired        int    `json:"totalInterviewRequired"`
	CompletedInterview            int    `json:"completedInterview"`
	TotalHomeVerificationRequired int    `json:"totalHomeVerificationRequired"`
	CompletedHomeVerification     int    `json:"completedHomeVerification"`
	Progress                      int    `json:"progress"`
}

// OverallProgress is the cohort-wide completion ratio.
type OverallProgress struct {
	Year           int `json:"year"`
	TotalRequired  int `json:"totalRequired"`
	TotalCompleted int `json:"totalCompleted"`
	Progress       int `json:"progress"`
}

// LatestRoundView is the slice of the latest round a listing exposes.
type LatestRoundView struct {
	RoundNumber   int    `json:"roundNumber"`
	InterviewerID string `json:"interviewerId"`
	Status        string `json:"status"`
	Result        string `json:"result"`
}

// ApplicantSummary is one row of a paginated applicant listing.
type ApplicantSummary struct {
	ApplicantID      string           `json:"applicantId"`
	Name             string           `json:"name"`
	JurisdictionCode string           `json:"jurisdictionCode"`
	LatestRound      *LatestRoundView `json:"latestRound,omitempty"`
	State            interview.State  `json:"state"`
}

// ListRequest filters and paginates applicant summaries. Statuses and
// Results restrict on the latest round; when several filters are set
// their conditions combine with OR, matching the dashboards.
type ListRequest struct {
	Year          int
	Page          int
	PageSize      int
	InterviewerID string
	Statuses      []string
	Results       []string
}

// ListResponse is one page of applicant summaries.
type ListResponse struct {
	Items      []ApplicantSummary `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	Total      int                `json:"total"`
	TotalPages int                `json:"totalPages"`
}

// History is the applicant's full trail: rounds ascending, the home
// verification entry last.
type History struct {
	ApplicantID  string                            `json:"applicantId"`
	Rounds       []interview.Round                 `json:"rounds"`
	Verification *interview.HomeVerificationRecord `json:"homeVerification,omitempty"`
}
