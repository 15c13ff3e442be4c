// internal/interview/verification/validation.go
package verification

import (
	"fmt"
	"strings"
	"time"

	"admissions-engine/internal/common/validation"
	"admissions-engine/internal/interview"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

// GetInputSchema returns the JSON schema for the verification payload.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"year":             {Type: "integer", Minimum: floatPtr(2000)},
			"verificationDate": {Type: "string", MinLength: intPtr(1)},
			"status": {
				Type: "string",
				Enum: []string{string(interview.VerificationAccepted), string(interview.VerificationRejected)},
			},
			"verifierName": {Type: "string", MinLength: intPtr(1)},
			"type": {
				Type: "string",
				Enum: []string{string(interview.VerificationPhysical), string(interview.VerificationVirtual)},
			},
			"remarks":       {Type: "string"},
			"attachmentRef": {Type: "string"},
		},
		Required:             []string{"year", "verificationDate", "status", "verifierName", "type"},
		AdditionalProperties: false,
	}
}

func validateRequest(req *SubmitRequest) error {
	if strings.TrimSpace(req.VerifierName) == "" {
		return fmt.Errorf("verifier name is mandatory")
	}
	if _, err := time.Parse("2006-01-02", req.VerificationDate); err != nil {
		return fmt.Errorf("verificationDate must be YYYY-MM-DD")
	}

	switch interview.VerificationStatus(req.Status) {
	case interview.VerificationAccepted, interview.VerificationRejected:
	default:
		return fmt.Errorf("status must be Accepted or Rejected")
	}

	switch interview.VerificationType(req.Type) {
	case interview.VerificationPhysical, interview.VerificationVirtual:
	default:
		return fmt.Errorf("type must be Physical or Virtual")
	}
	return nil
}
