package interview

// State is the derived position of an applicant in the interview
// pipeline. It is a pure projection of the applicant's rounds and
// home verification record; nothing stores it.
type State string

const (
	// StateUnassigned: no rounds yet, or the latest round was cancelled.
	StateUnassigned State = "Unassigned"
	// StateAssigned: the latest round is scheduled and awaiting a result.
	StateAssigned State = "Assigned"
	// StateAwaitingNextRound: the latest round closed with
	// AnotherRoundRequired and a further round is still permitted.
	StateAwaitingNextRound State = "AwaitingNextRound"
	// StatePendingVerification: the latest round requires home
	// verification and no record exists yet.
	StatePendingVerification State = "PendingVerification"
	// StateTerminal: an Accepted/Rejected result or a completed home
	// verification ended the pipeline.
	StateTerminal State = "Terminal"
)

// LatestRound returns the round with the highest round number, or nil
// when the applicant has none. Ties (which the storage layer prevents)
// resolve to the later element.
func LatestRound(rounds []Round) *Round {
	var latest *Round
	for i := range rounds {
		if latest == nil || rounds[i].RoundNumber >= latest.RoundNumber {
			latest = &rounds[i]
		}
	}
	return latest
}

// LatestState projects the applicant's current pipeline state from the
// full set of rounds and whether a home verification record exists.
func LatestState(rounds []Round, hasVerification bool) State {
	latest := LatestRound(rounds)
	if latest == nil {
		return StateUnassigned
	}

	if hasVerification {
		return StateTerminal
	}

	switch latest.Status {
	case StatusCancelled:
		return StateUnassigned
	case StatusScheduled:
		if latest.Result == ResultPending {
			return StateAssigned
		}
	}

	if latest.IsTerminal() {
		return StateTerminal
	}

	switch latest.Result {
	case ResultHomeVerificationRequired:
		return StatePendingVerification
	case ResultAnotherRoundRequired:
		if latest.RoundNumber < MaxRounds {
			return StateAwaitingNextRound
		}
		// Round cap reached with no verdict; nothing further can be
		// scheduled, treat as terminal.
		return StateTerminal
	}

	// Completed with Pending result should not occur; the safest
	// reading is that the round is still in flight.
	return StateAssigned
}

// CanAssign reports whether a fresh assignment is permitted in state s.
func CanAssign(s State) bool {
	return s == StateUnassigned || s == StateAwaitingNextRound
}

// CanReassign reports whether a reassignment is permitted in state s.
func CanReassign(s State) bool {
	return s == StateAssigned
}
