package executor

import "time"

// Progress status constants reported via Event.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusNoop      = "noop"
)

// Direction tells whether an event belongs to an apply or a rollback.
type Direction string

// Migration directions.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Event is emitted by the executor for each migration processed, and once
// with StatusNoop when there is nothing to do.
type Event struct {
	Direction  Direction
	Identifier string
	Status     string
	Duration   time.Duration
	Checksum   string
	Err        error
	Message    string
}

// Reporter receives progress events.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

type discardReporter struct{}

func (discardReporter) Report(Event) {}
