package pipeline

import (
	"errors"
	"fmt"
)

// Stage is a step in the life of a batch or of one of its items.
type Stage int

const (
	StageRequested Stage = iota
	StageFetching
	StageTransforming
	StagePersisting
	StageDone
	StageSkipped
)

func (s Stage) String() string {
	switch s {
	case StageRequested:
		return "requested"
	case StageFetching:
		return "fetching"
	case StageTransforming:
		return "transforming"
	case StagePersisting:
		return "persisting"
	case StageDone:
		return "done"
	case StageSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

var (
	// ErrInvalidRequest is returned by Run for requests that cannot start.
	ErrInvalidRequest = errors.New("invalid pipeline request")

	// ErrPanic wraps a panic recovered inside a transform.
	ErrPanic = errors.New("transform panicked")
)

// StageError records the failure of a single item in one stage.
type StageError struct {
	Stage Stage
	Index int
	ID    string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s item %d (%s): %v", e.Stage, e.Index, e.ID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
