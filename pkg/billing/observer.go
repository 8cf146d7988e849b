package billing

import "time"

// Trigger outcomes reported to an Observer.
const (
	OutcomeValid     = "valid"
	OutcomeInvalid   = "invalid"
	OutcomeTest      = "test"
	OutcomeException = "exception"
)

// Event results reported to an Observer.
const (
	ResultProcessed = "processed"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
	ResultUnhandled = "unhandled"
)

// Observer receives webhook signals, e.g. for metrics.
type Observer interface {
	TriggerProcessed(outcome string, d time.Duration)
	EventProcessed(eventType, result string)
}

type noopObserver struct{}

func (noopObserver) TriggerProcessed(string, time.Duration) {}
func (noopObserver) EventProcessed(string, string)          {}
