package domain

import (
	"errors"
	"fmt"
)

// ErrTransportConflict signals that another process already holds the
// messaging channel. The process must terminate rather than run as a
// second instance racing on per-user state.
var ErrTransportConflict = errors.New("transport conflict: another instance is polling")

// ErrQuotaExceeded marks a designed quota branch, not a failure.
var ErrQuotaExceeded = errors.New("consultation quota exceeded")

// ErrInvalidStageEvent marks an event that is not valid for the current stage.
var ErrInvalidStageEvent = errors.New("event not valid for current stage")

// GenerationError reports that the generation collaborator returned empty,
// malformed, or schema-violating output, or errored outright. It is always
// recovered locally by resetting the session.
type GenerationError struct {
	Op  string // which generation call failed
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation failed: %s", e.Op)
	}
	return fmt.Sprintf("generation failed: %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewGenerationError wraps err as a generation failure for the named call.
func NewGenerationError(op string, err error) *GenerationError {
	return &GenerationError{Op: op, Err: err}
}

// IsGenerationError reports whether err is a generation failure.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
