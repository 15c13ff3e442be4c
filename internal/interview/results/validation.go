// internal/interview/results/validation.go
package results

import (
	"fmt"
	"strings"
	"time"

	"admissions-engine/internal/common/validation"
	"admissions-engine/internal/interview"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

// GetInputSchema returns the JSON schema for the submit payload.
func GetInputSchema() validation.JSONSchema {
	scoreProp := validation.Property{
		Type:    "integer",
		Minimum: floatPtr(1),
		Maximum: floatPtr(10),
	}

	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"year":          {Type: "integer", Minimum: floatPtr(2000)},
			"interviewDate": {Type: "string", MinLength: intPtr(1)},
			"interviewTime": {Type: "string", MinLength: intPtr(1)},
			"mode": {
				Type: "string",
				Enum: []string{string(interview.ModeOnline), string(interview.ModeOffline)},
			},
			"status": {
				Type: "string",
				Enum: []string{string(interview.StatusCompleted), string(interview.StatusRescheduled)},
			},
			"scores": {
				Type: "object",
				Properties: map[string]validation.Property{
					"goals":         scoreProp,
					"commitment":    scoreProp,
					"integrity":     scoreProp,
					"communication": scoreProp,
				},
				Required: []string{"goals", "commitment", "integrity", "communication"},
			},
			"remarks":       {Type: "string", MinLength: intPtr(1)},
			"attachmentRef": {Type: "string", MinLength: intPtr(1)},
			"result": {
				Type: "string",
				Enum: []string{
					string(interview.ResultAccepted),
					string(interview.ResultRejected),
					string(interview.ResultAnotherRoundRequired),
					string(interview.ResultHomeVerificationRequired),
				},
			},
		},
		Required: []string{
			"year", "interviewDate", "interviewTime", "mode", "status",
			"scores", "remarks", "attachmentRef", "result",
		},
		AdditionalProperties: false,
	}
}

// validateRequest applies the field rules that do not depend on the
// stored round. Round-dependent result rules live in the service.
func validateRequest(req *SubmitRequest) error {
	if strings.TrimSpace(req.Remarks) == "" {
		return fmt.Errorf("remarks are mandatory")
	}
	if strings.TrimSpace(req.AttachmentRef) == "" {
		return fmt.Errorf("evaluation attachment is mandatory")
	}
	if _, err := time.Parse("2006-01-02", req.InterviewDate); err != nil {
		return fmt.Errorf("interviewDate must be YYYY-MM-DD")
	}

	switch interview.RoundStatus(req.Status) {
	case interview.StatusCompleted, interview.StatusRescheduled:
	default:
		return fmt.Errorf("status must be Completed or Rescheduled")
	}

	switch interview.InterviewMode(req.Mode) {
	case interview.ModeOnline, interview.ModeOffline:
	default:
		return fmt.Errorf("mode must be Online or Offline")
	}

	for name, score := range map[string]int{
		"goals":         req.Scores.Goals,
		"commitment":    req.Scores.Commitment,
		"integrity":     req.Scores.Integrity,
		"communication": req.Scores.Communication,
	} {
		if score < 1 || score > 10 {
			return fmt.Errorf("score %s must be between 1 and 10", name)
		}
	}

	if !interview.ValidRoundResult(req.Result) || req.Result == string(interview.ResultPending) {
		return fmt.Errorf("result %q is not a valid submission result", req.Result)
	}
	return nil
}

// validateResultForRound enforces the status/result compatibility
// matrix against the round being closed.
func validateResultForRound(status interview.RoundStatus, result interview.RoundResult, roundNumber int) error {
	switch status {
	case interview.StatusCompleted:
		if result != interview.ResultAccepted && result != interview.ResultRejected {
			return fmt.Errorf("a Completed interview must be Accepted or Rejected")
		}
	case interview.StatusRescheduled:
		switch result {
		case interview.ResultAnotherRoundRequired:
			if roundNumber >= interview.MaxRounds {
				return fmt.Errorf("round %d cannot require another round", roundNumber)
			}
		case interview.ResultHomeVerificationRequired:
		default:
			return fmt.Errorf("a Rescheduled interview must require another round or home verification")
		}
	}
	return nil
}
