package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Outcome describes one image that made it to disk.
type Outcome struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
}

// Report summarizes a run. Items are ordered by sequence index.
type Report struct {
	RunID string `json:"run_id"`
	Op    string `json:"op"`

	Requested       int `json:"requested"`
	Fetched         int `json:"fetched"`
	Skipped         int `json:"skipped"`
	Transformed     int `json:"transformed"`
	TransformFailed int `json:"transform_failed"`
	Persisted       int `json:"persisted"`
	PersistFailed   int `json:"persist_failed"`
	OriginalsSaved  int `json:"originals_saved"`

	// Empty is set when no image was fetched and the run ended early.
	Empty bool `json:"empty"`

	Items    []Outcome     `json:"items"`
	Failures []*StageError `json:"-"`
	Elapsed  time.Duration `json:"elapsed"`
}

func (r *Report) fail(stage Stage, index int, id string, err error) *StageError {
	se := &StageError{Stage: stage, Index: index, ID: id, Err: err}
	r.Failures = append(r.Failures, se)
	return se
}

// Log writes the run summary at info level, or warn level when any item failed.
func (r *Report) Log(logger *logrus.Logger) {
	entry := logger.WithFields(logrus.Fields{
		"run_id":           r.RunID,
		"op":               r.Op,
		"requested":        r.Requested,
		"fetched":          r.Fetched,
		"skipped":          r.Skipped,
		"transformed":      r.Transformed,
		"transform_failed": r.TransformFailed,
		"persisted":        r.Persisted,
		"persist_failed":   r.PersistFailed,
		"originals_saved":  r.OriginalsSaved,
		"elapsed":          r.Elapsed.Round(time.Millisecond).String(),
	})

	switch {
	case r.Empty:
		entry.Warn("Run finished without images")
	case len(r.Failures) > 0:
		entry.Warn("Run finished with failures")
	default:
		entry.Info("Run finished")
	}
}
