// Package outcome defines a node's structured execution result, the unit
// the retry wrapper, edge selector, and parallel executor all operate on.
package outcome

import "github.com/stencila/attractor/internal/pctx"

// Status is the result classification of a single handler execution.
type Status string

const (
	Success        Status = "Success"
	PartialSuccess Status = "PartialSuccess"
	Fail           Status = "Fail"
	Retry          Status = "Retry"
)

// Outcome is a handler's structured result: status, human notes, an optional
// failure reason, an optional next-edge label preference, and an ordered
// batch of context updates to merge into the shared Context after the node
// completes.
type Outcome struct {
	Status         Status
	Notes          string
	FailureReason  string
	NextLabel      string
	ContextUpdates *pctx.IndexMap
}

// Succeed builds a Success outcome with the given notes.
func Succeed(notes string) Outcome {
	return Outcome{Status: Success, Notes: notes}
}

// PartialSucceed builds a PartialSuccess outcome.
func PartialSucceed(notes string) Outcome {
	return Outcome{Status: PartialSuccess, Notes: notes}
}

// FailWith builds a Fail outcome with a failure reason.
func FailWith(reason string) Outcome {
	return Outcome{Status: Fail, FailureReason: reason}
}

// RetryWith builds a Retry outcome with a reason recorded as notes.
func RetryWith(notes string) Outcome {
	return Outcome{Status: Retry, Notes: notes}
}

// WithContextUpdate returns a copy of o with a single context update added,
// for handlers that build their outcome incrementally.
func (o Outcome) WithContextUpdate(key string, value any) Outcome {
	if o.ContextUpdates == nil {
		o.ContextUpdates = pctx.NewIndexMap()
	}
	o.ContextUpdates.Set(key, value)
	return o
}

// IsTerminalFailure reports whether this outcome ends the pipeline run
// outright (Fail with no further routing possible is decided by the engine;
// this just identifies the status class).
func (o Outcome) IsTerminalFailure() bool {
	return o.Status == Fail
}
