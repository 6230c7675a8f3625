package lifecycle

import (
	"errors"
	"fmt"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// ErrorKind is the machine-readable reason code for a failed transition.
type ErrorKind string

const (
	KindInvalidTransition     ErrorKind = "INVALID_TRANSITION"
	KindUnauthorized          ErrorKind = "UNAUTHORIZED"
	KindPreconditionFailed    ErrorKind = "PRECONDITION_FAILED"
	KindAlreadyReviewed       ErrorKind = "ALREADY_REVIEWED"
	KindConflictingTransition ErrorKind = "CONFLICTING_TRANSITION"
	KindTerminalState         ErrorKind = "TERMINAL_STATE"
)

// TransitionError reports why a transition was refused. The engine never
// partially applies a transition; validation fully precedes mutation.
type TransitionError struct {
	Kind      ErrorKind
	Attempted TransitionType
	Status    domain.RequestStatus
	Reason    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s from %s: %s", e.Kind, e.Attempted, e.Status, e.Reason)
}

// Retryable reports whether the caller may retry after reloading state.
// Only optimistic-concurrency losses qualify.
func (e *TransitionError) Retryable() bool {
	return e.Kind == KindConflictingTransition
}

// NewTransitionError builds a typed transition failure.
func NewTransitionError(kind ErrorKind, attempted TransitionType, status domain.RequestStatus, reason string) *TransitionError {
	return &TransitionError{Kind: kind, Attempted: attempted, Status: status, Reason: reason}
}

// IsKind reports whether err is a TransitionError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *TransitionError
	return errors.As(err, &te) && te.Kind == kind
}
