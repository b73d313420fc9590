package tui

import "github.com/1F47E/go-stegoreel/internal/core"

type eventType int

const (
	eventTypeFrames eventType = iota
	eventTypeResult
	eventTypeCompare
	eventTypeFailed
)

// Event moves the widget through an operation: frame progress, then a result
// or a failure. It is delivered to the widget as a bubbletea message.
type Event struct {
	eventType eventType
	percent   float64
	result    core.Result
	cmp       core.Comparison
	err       error
}

// NewEventFrames reports how far through the carrier the operation is,
// percent is 0..1.
func NewEventFrames(percent float64) Event {
	return Event{
		eventType: eventTypeFrames,
		percent:   percent,
	}
}

func NewEventResult(res core.Result) Event {
	return Event{
		eventType: eventTypeResult,
		percent:   1,
		result:    res,
	}
}

func NewEventCompare(cmp core.Comparison) Event {
	return Event{
		eventType: eventTypeCompare,
		percent:   1,
		cmp:       cmp,
	}
}

func NewEventFailed(err error) Event {
	return Event{
		eventType: eventTypeFailed,
		err:       err,
	}
}
