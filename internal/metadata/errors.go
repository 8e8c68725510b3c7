package metadata

import (
	"fmt"

	"songline/internal/services"
)

// ValidationError reports a reference that is not a recognizable video link.
// It is produced before any network call.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid video reference %q: %s", e.Input, e.Reason)
}

// Unwrap lets errors.Is(err, services.ErrValidation) succeed.
func (e *ValidationError) Unwrap() error { return services.ErrValidation }

// Resolution failure reasons.
const (
	ReasonUnavailable = "unavailable"
	ReasonLive        = "live"
	ReasonUpstream    = "upstream"
)

// ResolutionError reports a syntactically valid reference the upstream
// service could not turn into usable metadata.
type ResolutionError struct {
	VideoID string
	Reason  string
	Err     error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resolve video %s: %s", e.VideoID, e.Reason)
	}
	return fmt.Sprintf("resolve video %s: %s: %v", e.VideoID, e.Reason, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Message is a short human-readable explanation suitable for chat replies.
func (e *ResolutionError) Message() string {
	switch e.Reason {
	case ReasonUnavailable:
		return "That video is unavailable, private, or deleted."
	case ReasonLive:
		return "Live streams and premieres can't be requested."
	default:
		return "Couldn't look up that video right now, try again shortly."
	}
}
