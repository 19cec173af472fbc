package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

const (
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
	ChannelPush     = "push"
	ChannelTelegram = "telegram"
)

// Reason classifies why a channel send failed.
type Reason string

const (
	ReasonInvalidTarget    Reason = "invalid_target"
	ReasonProviderRejected Reason = "provider_rejected"
	ReasonTransient        Reason = "transient"
	ReasonAuthFailure      Reason = "auth_failure"
)

// ChannelError is the only error type a Channel returns.
type ChannelError struct {
	Channel string
	Reason  Reason
	Err     error
}

func (e *ChannelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Channel, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Channel, e.Reason, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

func NewChannelError(channel string, reason Reason, err error) *ChannelError {
	return &ChannelError{Channel: channel, Reason: reason, Err: err}
}

// ReasonOf extracts the failure reason. Errors that are not ChannelErrors
// are treated as provider rejections.
func ReasonOf(err error) Reason {
	var ce *ChannelError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ReasonProviderRejected
}

// IsTransient reports whether err is worth one more attempt.
func IsTransient(err error) bool {
	return err != nil && ReasonOf(err) == ReasonTransient
}

// Message is the channel-independent payload. Subject is ignored by
// channels without one; Data is only carried by push.
type Message struct {
	Subject string
	Body    string
	Data    map[string]string
}

// Channel is anything that can deliver a Message to a target address.
// Implementations do not retry.
type Channel interface {
	Name() string
	Send(ctx context.Context, target string, msg Message) error
}

// isTransportError catches timeouts, cancellations and network failures.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
