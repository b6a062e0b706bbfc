package engine

import "time"

// EventType classifies an Event.
type EventType string

const (
	EventStepStarted EventType = "started"
	EventStepDone    EventType = "done"
	EventStepFailed  EventType = "failed"
	EventStepSkipped EventType = "skipped"
)

// Event reports progress of a single step.
type Event struct {
	Type EventType
	// Op is the operation being executed. A replacement reports OpDelete
	// and then OpCreate.
	Op      Op
	Step    *Step
	Err     error
	Elapsed time.Duration
}

// Observer receives events while an update runs. Events may be delivered from
// several goroutines concurrently.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(ev).
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }
