package pipeline

import (
	"errors"
	"fmt"

	"Foresight/internal/domain/models"
)

var (
	ErrInvalidRequest      = models.ErrInvalidRequest
	ErrAllCollectorsFailed = errors.New("all evidence collectors failed")
	ErrNoEvidence          = errors.New("no evidence collected")
	ErrInvalidCard         = errors.New("forecast card failed validation")
)

// PipelineError is the single failure type returned by Run. Completed is the
// furthest stage that finished; it is empty when the request was rejected
// before any stage ran.
type PipelineError struct {
	Completed Stage
	During    Stage
	Err       error
}

func (e *PipelineError) Error() string {
	if e.Completed == "" {
		return fmt.Sprintf("pipeline failed during %s: %v", e.During, e.Err)
	}
	return fmt.Sprintf("pipeline failed during %s (completed %s): %v", e.During, e.Completed, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
