package eligibility

import (
	"fmt"

	"songline/internal/services"
)

// Reason is the machine-readable cause of a decline.
type Reason string

const (
	ReasonBlocked         Reason = "blocked"
	ReasonOutstanding     Reason = "outstanding"
	ReasonDuplicate       Reason = "duplicate"
	ReasonTooLong         Reason = "too_long"
	ReasonFilteredTitle   Reason = "filtered_title"
	ReasonFilteredArtist  Reason = "filtered_artist"
	ReasonFilteredKeyword Reason = "filtered_keyword"
)

// Decline is a policy rejection. It is an ordinary outcome, never a fault.
type Decline struct {
	Reason  Reason
	Message string
}

func (d *Decline) Error() string {
	return fmt.Sprintf("request declined (%s): %s", d.Reason, d.Message)
}

// Is reports ErrPolicy so callers can classify declines with errors.Is.
func (d *Decline) Is(target error) bool {
	return target == services.ErrPolicy
}

func decline(reason Reason, format string, args ...any) error {
	return &Decline{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
