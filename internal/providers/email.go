package providers

import (
	"context"
	"errors"
	"net/textproto"

	"alert-service/pkg/email"
)

// MailSender is satisfied by email.Sender.
type MailSender interface {
	Send(to, subject, body string) error
}

type Email struct {
	sender MailSender
}

func NewEmail(sender MailSender) *Email {
	return &Email{sender: sender}
}

func (e *Email) Name() string { return ChannelEmail }

func (e *Email) Send(ctx context.Context, target string, msg Message) error {
	if target == "" {
		return NewChannelError(ChannelEmail, ReasonInvalidTarget, errors.New("empty email address"))
	}
	if err := ctx.Err(); err != nil {
		return NewChannelError(ChannelEmail, ReasonTransient, err)
	}
	if err := e.sender.Send(target, msg.Subject, msg.Body); err != nil {
		return NewChannelError(ChannelEmail, classifyEmail(err), err)
	}
	return nil
}

// classifyEmail maps SMTP reply codes (RFC 5321) onto channel reasons.
func classifyEmail(err error) Reason {
	if errors.Is(err, email.ErrInvalidAddress) {
		return ReasonInvalidTarget
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch {
		case tpErr.Code == 530 || tpErr.Code == 534 || tpErr.Code == 535:
			return ReasonAuthFailure
		case tpErr.Code == 550 || tpErr.Code == 551 || tpErr.Code == 553:
			return ReasonInvalidTarget
		case tpErr.Code >= 400 && tpErr.Code < 500:
			return ReasonTransient
		default:
			return ReasonProviderRejected
		}
	}
	if isTransportError(err) {
		return ReasonTransient
	}
	return ReasonProviderRejected
}
