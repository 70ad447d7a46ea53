package lifecycle

import (
	"errors"
	"fmt"

	"github.com/1broseidon/winstate/internal/event"
)

// Consistency violations. They mean the backend broke its ordering contract;
// the offending event is discarded and folding continues.
var (
	ErrUnknownIdentity        = errors.New("unknown window identity")
	ErrIllegalTransition      = errors.New("illegal transition")
	ErrDuplicateCreateRequest = errors.New("duplicate create request")
)

// Violation describes an event that the lifecycle model refused.
type Violation struct {
	Err    error // one of the Err* sentinels
	Window event.WindowID
	Event  event.Event
	State  State // state of the window when the event arrived
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s for window %v: %s while %s", v.Err, v.Window, v.Event.Kind(), v.State)
}

func (v *Violation) Unwrap() error {
	return v.Err
}

// IsViolation reports whether err is a lifecycle consistency violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}
