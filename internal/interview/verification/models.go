// internal/interview/verification/models.go
package verification

// SubmitRequest records the single home verification visit for an
// applicant whose latest round ended in HomeVerificationRequired.
type SubmitRequest struct {
	Year             int    `json:"year"`
	VerificationDate string `json:"verificationDate"`
	Status           string `json:"status"`
	VerifierName     string `json:"verifierName"`
	Type             string `json:"type"`
	Remarks          string `json:"remarks"`
	AttachmentRef    string `json:"attachmentRef,omitempty"`
}

// SubmitResponse confirms the recorded decision.
type SubmitResponse struct {
	ApplicantID string `json:"applicantId"`
	Status      string `json:"status"`
}
