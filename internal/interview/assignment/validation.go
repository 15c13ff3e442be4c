// internal/interview/assignment/validation.go
package assignment

import "admissions-engine/internal/common/validation"

// UnassignSentinel is the wire value the API accepts in place of an
// interviewer id to cancel the active round.
const UnassignSentinel = "UNASSIGN"

func intPtr(i int) *int          { return &i }
func floatPtr(f float64) *float64 { return &f }

// GetAssignSchema returns the JSON schema for the assign payload.
func GetAssignSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"applicantIds": {
				Type:        "array",
				Description: "Applicants to schedule",
				Items:       &validation.Property{Type: "string", MinLength: intPtr(1)},
			},
			"interviewerId": {
				Type:        "string",
				Description: "Interviewer receiving the batch",
				MinLength:   intPtr(1),
			},
			"year": {
				Type:        "integer",
				Description: "Cohort year",
				Minimum:     floatPtr(2000),
			},
		},
		Required:             []string{"applicantIds", "interviewerId", "year"},
		AdditionalProperties: false,
	}
}

// GetReassignSchema returns the JSON schema for the reassign payload.
// interviewerId additionally accepts the UNASSIGN sentinel.
func GetReassignSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"applicantIds": {
				Type:        "array",
				Description: "Applicants whose active round is redirected",
				Items:       &validation.Property{Type: "string", MinLength: intPtr(1)},
			},
			"interviewerId": {
				Type:        "string",
				Description: "New interviewer, or UNASSIGN to cancel",
				MinLength:   intPtr(1),
			},
			"year": {
				Type:        "integer",
				Description: "Cohort year",
				Minimum:     floatPtr(2000),
			},
		},
		Required:             []string{"applicantIds", "interviewerId", "year"},
		AdditionalProperties: false,
	}
}
