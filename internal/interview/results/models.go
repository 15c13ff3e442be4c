// internal/interview/results/models.go
package results

import "admissions-engine/internal/interview"

// SubmitRequest carries the full evaluation of the applicant's active
// round. AttachmentRef is the opaque storage path of the uploaded
// evaluation sheet (cohort-<year>/<name>).
type SubmitRequest struct {
	Year          int                  `json:"year"`
	InterviewDate string               `json:"interviewDate"`
	InterviewTime string               `json:"interviewTime"`
	Mode          string               `json:"mode"`
	Status        string               `json:"status"`
	Scores        interview.Scores     `json:"scores"`
	Remarks       string               `json:"remarks"`
	AttachmentRef string               `json:"attachmentRef"`
	Result        string               `json:"result"`
}

// SubmitResponse confirms which round the submission landed on.
type SubmitResponse struct {
	ApplicantID string `json:"applicantId"`
	Round       int    `json:"interviewRound"`
	Result      string `json:"result"`
}
