package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned for malformed or incomplete requests.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDirectoryUnavailable wraps any failed or timed out directory call.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrPushDeliveryFailed wraps a failed or timed out push for one recipient.
	ErrPushDeliveryFailed = errors.New("push delivery failed")
	// ErrRecipientUnreachable means the target is offline and has no push token.
	ErrRecipientUnreachable = errors.New("recipient unreachable")
	// ErrQueueFull is returned by QueueAlert when the task queue is saturated.
	ErrQueueFull = errors.New("alert queue full")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
