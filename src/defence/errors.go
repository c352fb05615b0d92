package defence

import "errors"

var (
	ErrUnauthorized      = errors.New("defence: requester is not allowed to open calls")
	ErrConfigMissing     = errors.New("defence: configuration not found")
	ErrTimeRequired      = errors.New("defence: time is required for normal calls")
	ErrInvalidTimeFormat = errors.New("defence: invalid time format, expected HH:mm")
	ErrInvalidAmount     = errors.New("defence: amount must not be negative")
	ErrCreationFailed    = errors.New("defence: failed to create channel")
)

// IsValidation reports whether err rejects the shape of the request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrTimeRequired) ||
		errors.Is(err, ErrInvalidTimeFormat) ||
		errors.Is(err, ErrInvalidAmount)
}

// ErrNotTracked is returned for messages on channels the manager does
// not own.
var ErrNotTracked = errors.New("defence: channel is not a tracked call")
