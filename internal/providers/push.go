package providers

import (
	"context"
	"errors"

	"firebase.google.com/go/v4/messaging"
)

// PushSender is satisfied by *push.Client.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (string, error)
}

type Push struct {
	sender PushSender
}

func NewPush(sender PushSender) *Push {
	return &Push{sender: sender}
}

func (p *Push) Name() string { return ChannelPush }

// Send pushes msg to the device token in target. Subject becomes the title.
func (p *Push) Send(ctx context.Context, target string, msg Message) error {
	if target == "" {
		return NewChannelError(ChannelPush, ReasonInvalidTarget, errors.New("empty device token"))
	}
	if _, err := p.sender.Send(ctx, target, msg.Subject, msg.Body, msg.Data); err != nil {
		return NewChannelError(ChannelPush, classifyPush(err), err)
	}
	return nil
}

func classifyPush(err error) Reason {
	switch {
	case messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err):
		return ReasonInvalidTarget
	case messaging.IsThirdPartyAuthError(err) || messaging.IsSenderIDMismatch(err):
		return ReasonAuthFailure
	case messaging.IsUnavailable(err) || messaging.IsInternal(err) || messaging.IsQuotaExceeded(err):
		return ReasonTransient
	case isTransportError(err):
		return ReasonTransient
	default:
		return ReasonProviderRejected
	}
}
