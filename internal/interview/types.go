// Package interview holds the shared domain types for the admissions
// interview pipeline: rounds, results, home verification and the
// applicant state projection built on top of them.
package interview

import "time"

// MaxRounds is the hard cap on interview rounds per applicant.
const MaxRounds = 3

// RoundStatus is the lifecycle status of a single interview round.
type RoundStatus string

const (
	StatusScheduled   RoundStatus = "Scheduled"
	StatusRescheduled RoundStatus = "Rescheduled"
	StatusCompleted   RoundStatus = "Completed"
	StatusCancelled   RoundStatus = "Cancelled"
)

// RoundResult is the recorded outcome of a round.
type RoundResult string

const (
	ResultPending                  RoundResult = "Pending"
	ResultAccepted                 RoundResult = "Accepted"
	ResultRejected                 RoundResult = "Rejected"
	ResultAnotherRoundRequired     RoundResult = "AnotherRoundRequired"
	ResultHomeVerificationRequired RoundResult = "HomeVerificationRequired"
)

// InterviewMode is how the round was conducted.
type InterviewMode string

const (
	ModeOnline  InterviewMode = "Online"
	ModeOffline InterviewMode = "Offline"
)

// VerificationType is how a home verification was carried out.
type VerificationType string

const (
	VerificationPhysical VerificationType = "Physical"
	VerificationVirtual  VerificationType = "Virtual"
)

// VerificationStatus is the final decision of a home verification.
type VerificationStatus string

const (
	VerificationAccepted VerificationStatus = "Accepted"
	VerificationRejected VerificationStatus = "Rejected"
)

// Scores holds the four per-round evaluation scores, each 1..10.
type Scores struct {
	Goals         int `json:"goals"`
	Commitment    int `json:"commitment"`
	Integrity     int `json:"integrity"`
	Communication int `json:"communication"`
}

// Round is one interview round of an applicant for a cohort year.
type Round struct {
	ID            string        `json:"id"`
	ApplicantID   string        `json:"applicantId"`
	Year          int           `json:"year"`
	InterviewerID string        `json:"interviewerId"`
	RoundNumber   int           `json:"roundNumber"`
	Status        RoundStatus   `json:"status"`
	Result        RoundResult   `json:"result"`
	InterviewDate *time.Time    `json:"interviewDate,omitempty"`
	InterviewTime string        `json:"interviewTime,omitempty"`
	Mode          InterviewMode `json:"mode,omitempty"`
	Scores        *Scores       `json:"scores,omitempty"`
	Remarks       string        `json:"remarks,omitempty"`
	AttachmentRef string        `json:"attachmentRef,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// IsTerminal reports whether the round carries a pipeline-ending result.
func (r Round) IsTerminal() bool {
	return r.Result == ResultAccepted || r.Result == ResultRejected
}

// HomeVerificationRecord is the single append-only home verification
// entry an applicant may have.
type HomeVerificationRecord struct {
	ID               string             `json:"id"`
	ApplicantID      string             `json:"applicantId"`
	Year             int                `json:"year"`
	VerificationDate time.Time          `json:"verificationDate"`
	Status           VerificationStatus `json:"status"`
	VerifierName     string             `json:"verifierName"`
	Type             VerificationType   `json:"type"`
	Remarks          string             `json:"remarks,omitempty"`
	AttachmentRef    string             `json:"attachmentRef,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// ValidRoundStatus reports whether s is a known round status.
func ValidRoundStatus(s string) bool {
	switch RoundStatus(s) {
	case StatusScheduled, StatusRescheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidRoundResult reports whether s is a known round result.
func ValidRoundResult(s string) bool {
	switch RoundResult(s) {
	case ResultPending, ResultAccepted, ResultRejected,
		ResultAnotherRoundRequired, ResultHomeVerificationRequired:
		return true
	}
	return false
}
