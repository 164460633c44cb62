package reportclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks an unreachable source or a non-2xx response.
	ErrNetwork = errors.New("network error")
	// ErrDecode marks a payload that does not match the report shape.
	ErrDecode = errors.New("decode error")
	// ErrNotSupported marks an operation the configured source cannot perform.
	ErrNotSupported = errors.New("not supported")
)

// StaticTriggerMessage is shown to users who request regeneration from a
// static deployment.
const StaticTriggerMessage = "Report generation is not available on the static site; reports are regenerated by the scheduled export job."

// NotSupportedError carries a user-facing message for ErrNotSupported.
type NotSupportedError struct {
	Op      string
	Message string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *NotSupportedError) Unwrap() error { return ErrNotSupported }

func networkErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

func decodeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
}

// UserMessage returns the message to display for err, or "" when err is not
// a NotSupportedError.
func UserMessage(err error) string {
	var nse *NotSupportedError
	if errors.As(err, &nse) {
		return nse.Message
	}
	return ""
}
