package lifecycle

import (
	"errors"
	"fmt"

	"songline/internal/eligibility"
	"songline/internal/metadata"
	"songline/internal/services"
)

// ErrStopped is returned when a command arrives after Run has exited.
var ErrStopped = errors.New("coordinator stopped")

// PersistenceError reports a store write that failed after the in-memory
// change was applied and published.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, services.ErrPersistence) succeed.
func (e *PersistenceError) Is(target error) bool {
	return target == services.ErrPersistence
}

// Decline reason codes for failures that happen before eligibility runs.
const (
	ReasonInvalidReference = "invalid_reference"
	ReasonInvalidRequester = "invalid_requester"
)

// DeclineInfo extracts the reason code and user-facing message from a
// submission error. ok is false for errors that are not declines.
func DeclineInfo(err error) (reason, message string, ok bool) {
	var policy *eligibility.Decline
	if errors.As(err, &policy) {
		return string(policy.Reason), policy.Message, true
	}
	var verr *metadata.ValidationError
	if errors.As(err, &verr) {
		return ReasonInvalidReference, "That doesn't look like a YouTube link.", true
	}
	var rerr *metadata.ResolutionError
	if errors.As(err, &rerr) {
		return rerr.Reason, rerr.Message(), true
	}
	if errors.Is(err, errInvalidRequester) {
		return ReasonInvalidRequester, "A requester name is required.", true
	}
	return "", "", false
}

var errInvalidRequester = services.Wrap(services.ErrValidation, "lifecycle", "submit", "requester login is required", nil)
