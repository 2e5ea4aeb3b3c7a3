package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrClassificationUnavailable means the classifier has no usable model.
	// It is fatal to the triggering request and must never become a SAFE result.
	ErrClassificationUnavailable = errors.New("risk classification unavailable")

	// ErrInvalidRecipient marks a recipient that fails the length check.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrNoValidRecipients is returned when filtering leaves nothing to dispatch to.
	ErrNoValidRecipients = errors.New("no valid recipients")

	ErrChannelAuth              = errors.New("channel authentication failed")
	ErrChannelRecipientRejected = errors.New("recipient rejected by provider")
	ErrChannelTransport         = errors.New("channel transport failure")
)

// ChannelError is returned by notification channels. Kind is one of the
// ErrChannel* sentinels and is matched by errors.Is.
type ChannelError struct {
	Channel string
	Kind    error
	Err     error
}

func (e *ChannelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Channel, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Channel, e.Kind, e.Err)
}

func (e *ChannelError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// FailureKind names the channel error category of err for outcomes and
// metrics labels: "auth", "recipient_rejected", "transport" or "unknown".
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrChannelAuth):
		return "auth"
	case errors.Is(err, ErrChannelRecipientRejected):
		return "recipient_rejected"
	case errors.Is(err, ErrChannelTransport):
		return "transport"
	default:
		return "unknown"
	}
}
