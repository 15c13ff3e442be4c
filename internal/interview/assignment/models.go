// internal/interview/assignment/models.go
package assignment

// Target says where a reassignment should point: a new interviewer or
// nobody at all. The zero value is invalid; use the constructors.
type Target struct {
	interviewerID string
	unassign      bool
}

// TargetInterviewer targets a specific interviewer.
func TargetInterviewer(id string) Target {
	return Target{interviewerID: id}
}

// TargetUnassign cancels the active round without a replacement.
func TargetUnassign() Target {
	return Target{unassign: true}
}

// IsUnassign reports whether the target cancels instead of reassigns.
func (t Target) IsUnassign() bool {
	return t.unassign
}

// InterviewerID returns the targeted interviewer, empty for unassign.
func (t Target) InterviewerID() string {
	return t.interviewerID
}

// AssignRequest assigns one interviewer to a batch of applicants.
type AssignRequest struct {
	ApplicantIDs  []string `json:"applicantIds"`
	InterviewerID string   `json:"interviewerId"`
	Year          int      `json:"year"`
}

// ReassignRequest redirects the active round of a batch of applicants.
type ReassignRequest struct {
	ApplicantIDs []string `json:"applicantIds"`
	Target       Target   `json:"-"`
	Year         int      `json:"year"`
}

// OutcomeStatus classifies what happened to one applicant in a batch.
type OutcomeStatus string

const (
	OutcomeAssigned   OutcomeStatus = "Assigned"
	OutcomeReassigned OutcomeStatus = "Reassigned"
	OutcomeSkipped    OutcomeStatus = "Skipped"
	OutcomeCancelled  OutcomeStatus = "Cancelled"
	OutcomeFailed     OutcomeStatus = "Failed"
)

// Outcome is the per-applicant result of a batch operation. Round is
// only set when a round was created or re-opened.
type Outcome struct {
	ApplicantID string        `json:"applicantId"`
	Status      OutcomeStatus `json:"status"`
	Round       int           `json:"interviewRound,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}
