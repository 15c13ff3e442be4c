// internal/interview/state_test.go
package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func round(number int, status RoundStatus, result RoundResult) Round {
	return Round{
		ApplicantID: "applicant-001",
		RoundNumber: number,
		Status:      status,
		Result:      result,
	}
}

// ==========================
// LatestRound Tests
// ==========================

func TestLatestRound_Empty(t *testing.T) {
	assert.Nil(t, LatestRound(nil))
	assert.Nil(t, LatestRound([]Round{}))
}

func TestLatestRound_PicksHighestNumber(t *testing.T) {
	rounds := []Round{
		round(2, StatusRescheduled, ResultAnotherRoundRequired),
		round(1, StatusRescheduled, ResultAnotherRoundRequired),
		round(3, StatusScheduled, ResultPending),
	}

	latest := LatestRound(rounds)
	assert.NotNil(t, latest)
	assert.Equal(t, 3, latest.RoundNumber)
}

// ==========================
// LatestState Tests
// ==========================

func TestLatestState_NoRounds(t *testing.T) {
	assert.Equal(t, StateUnassigned, LatestState(nil, false))
}

func TestLatestState_ScheduledPending(t *testing.T) {
	rounds := []Round{round(1, StatusScheduled, ResultPending)}
	assert.Equal(t, StateAssigned, LatestState(rounds, false))
}

func TestLatestState_CancelledLatest(t *testing.T) {
	rounds := []Round{round(1, StatusCancelled, ResultPending)}
	assert.Equal(t, StateUnassigned, LatestState(rounds, false))
}

func TestLatestState_Accepted(t *testing.T) {
	rounds := []Round{round(1, StatusCompleted, ResultAccepted)}
	assert.Equal(t, StateTerminal, LatestState(rounds, false))
}

func TestLatestState_Rejected(t *testing.T) {
	rounds := []Round{round(2, StatusCompleted, ResultRejected)}
	assert.Equal(t, StateTerminal, LatestState(rounds, false))
}

func TestLatestState_AnotherRoundRequired(t *testing.T) {
	rounds := []Round{round(1, StatusRescheduled, ResultAnotherRoundRequired)}
	assert.Equal(t, StateAwaitingNextRound, LatestState(rounds, false))
}

func TestLatestState_AnotherRoundRequired_AtCap(t *testing.T) {
	rounds := []Round{
		round(1, StatusRescheduled, ResultAnotherRoundRequired),
		round(2, StatusRescheduled, ResultAnotherRoundRequired),
		round(3, StatusRescheduled, ResultAnotherRoundRequired),
	}
	assert.Equal(t, StateTerminal, LatestState(rounds, false))
}

func TestLatestState_HomeVerificationRequired(t *testing.T) {
	rounds := []Round{round(2, StatusRescheduled, ResultHomeVerificationRequired)}
	assert.Equal(t, StatePendingVerification, LatestState(rounds, false))
}

func TestLatestState_VerificationRecorded(t *testing.T) {
	rounds := []Round{round(2, StatusRescheduled, ResultHomeVerificationRequired)}
	assert.Equal(t, StateTerminal, LatestState(rounds, true))
}

func TestLatestState_OnlyLatestRoundCounts(t *testing.T) {
	// Earlier cancelled round must not shadow the live round 2.
	rounds := []Round{
		round(1, StatusCancelled, ResultPending),
		round(2, StatusScheduled, ResultPending),
	}
	assert.Equal(t, StateAssigned, LatestState(rounds, false))
}

// ==========================
// Eligibility Helpers
// ==========================

func TestCanAssign(t *testing.T) {
	assert.True(t, CanAssign(StateUnassigned))
	assert.True(t, CanAssign(StateAwaitingNextRound))
	assert.False(t, CanAssign(StateAssigned))
	assert.False(t, CanAssign(StatePendingVerification))
	assert.False(t, CanAssign(StateTerminal))
}

func TestCanReassign(t *testing.T) {
	assert.True(t, CanReassign(StateAssigned))
	assert.False(t, CanReassign(StateUnassigned))
	assert.False(t, CanReassign(StateAwaitingNextRound))
	assert.False(t, CanReassign(StatePendingVerification))
	assert.False(t, CanReassign(StateTerminal))
}
