package strategy

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrAllStrategiesFailed is matched by every ExhaustedError.
	ErrAllStrategiesFailed = errors.New("all execution strategies failed")

	// ErrStrategyTimeout marks an attempt that lost the race against its
	// time limit.
	ErrStrategyTimeout = errors.New("strategy timeout")

	// ErrUnavailable is returned when an explicitly requested strategy is
	// not supported by the adapter.
	ErrUnavailable = errors.New("strategy not available on adapter")

	// ErrUnknownStrategy is returned for an explicit strategy name that is
	// not one of the known strategies.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// ExhaustedError reports that no strategy produced a result. It carries the
// full attempt trail.
type ExhaustedError struct {
	TaskID   string
	Adapter  string
	Attempts []Attempt
	Duration time.Duration

	// Cause is set when the caller's context ended the chain early.
	Cause error
}

func (e *ExhaustedError) Error() string {
	var failures []string
	for _, a := range e.Attempts {
		if a.Status == StatusFailed {
			failures = append(failures, fmt.Sprintf("%s: %s", a.Strategy, a.Error))
		}
	}
	msg := fmt.Sprintf("%v for task %s on %s after %d attempts", ErrAllStrategiesFailed, e.TaskID, e.Adapter, len(e.Attempts))
	if len(failures) > 0 {
		msg += " (" + strings.Join(failures, "; ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExhaustedError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrAllStrategiesFailed, e.Cause}
	}
	return []error{ErrAllStrategiesFailed}
}
