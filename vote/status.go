// Package vote orchestrates the full vote casting sequence against a
// sequencer and tracks submitted votes through their lifecycle.
package vote

import "github.com/vocdoni/davinci-sdk/types"

// Status is a vote lifecycle state as reported by the sequencer. The client
// never computes transitions, it only observes and displays them.
type Status string

// Vote lifecycle statuses, in pipeline order. Settled, error and timeout
// are terminal.
const (
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusAggregated Status = "aggregated"
	StatusProcessed  Status = "processed"
	StatusSettled    Status = "settled"
	StatusError      Status = "error"
	StatusTimeout    Status = "timeout"
)

// statusRanks orders the non-failure pipeline states so a stale poll result
// can never regress the displayed status.
var statusRanks = map[Status]int{
	StatusPending:    0,
	StatusVerified:   1,
	StatusAggregated: 2,
	StatusProcessed:  3,
	StatusSettled:    4,
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusAggregated, StatusProcessed,
		StatusSettled, StatusError, StatusTimeout:
		return true
	}
	return false
}

// Terminal reports whether tracking should stop at s.
func (s Status) Terminal() bool {
	return s == StatusSettled || s == StatusError || s == StatusTimeout
}

// Advance returns the status to display after observing next while current
// was shown. Failure states always win; otherwise the display never moves
// backward in the pipeline.
func Advance(current, next Status) Status {
	if next == StatusError || next == StatusTimeout {
		return next
	}
	if currentRank, ok := statusRanks[current]; ok {
		if nextRank, ok := statusRanks[next]; ok && nextRank < currentRank {
			return current
		}
	}
	return next
}

// SubmittedVote is the caller-facing record of a cast vote. Its status is
// updated by the tracker until it reaches a terminal state.
type SubmittedVote struct {
	VoteID types.HexBytes `json:"voteId"`
	Status Status         `json:"status"`
}
