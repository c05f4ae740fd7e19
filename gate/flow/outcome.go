package flow

import (
	"github.com/m3rciful/subgate/gate/provider"
	"github.com/m3rciful/subgate/gate/session"
)

// Outcome is what a flow event resolved to.
type Outcome int

// Flow outcomes.
const (
	OutcomeStarted Outcome = iota + 1
	OutcomeUnavailable
	OutcomeNoSession
	OutcomeStale
	OutcomePartial
	OutcomeAdvanceUnavailable
	OutcomeAdvanced
	OutcomeCompleted
)

var outcomeNames = map[Outcome]string{
	OutcomeStarted:            "started",
	OutcomeUnavailable:        "unavailable",
	OutcomeNoSession:          "no_session",
	OutcomeStale:              "stale",
	OutcomePartial:            "partial",
	OutcomeAdvanceUnavailable: "advance_unavailable",
	OutcomeAdvanced:           "advanced",
	OutcomeCompleted:          "completed",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Result carries everything the messaging layer needs to answer an event.
// Only the fields relevant to Outcome are set.
type Result struct {
	Outcome Outcome
	// Stage is the session stage after the event.
	Stage session.Stage
	// Tasks is the batch to show for Started and Advanced.
	Tasks []provider.Task
	// Completed and Total are set for Partial.
	Completed int
	Total     int
	// RewardURL is set for Completed.
	RewardURL string
}
