package providers

import (
	"context"
	"errors"
	"net/http"

	twclient "github.com/twilio/twilio-go/client"

	"alert-service/pkg/sms"
)

// twilioInvalidTo is Twilio's error code for an unroutable "To" number.
const twilioInvalidTo = 21211

// SMSSender is satisfied by *sms.Client.
type SMSSender interface {
	Send(toNumber, body string) error
}

type SMS struct {
	sender SMSSender
}

func NewSMS(sender SMSSender) *SMS {
	return &SMS{sender: sender}
}

func (s *SMS) Name() string { return ChannelSMS }

func (s *SMS) Send(ctx context.Context, target string, msg Message) error {
	if target == "" {
		return NewChannelError(ChannelSMS, ReasonInvalidTarget, errors.New("empty phone number"))
	}
	if err := ctx.Err(); err != nil {
		return NewChannelError(ChannelSMS, ReasonTransient, err)
	}
	if err := s.sender.Send(target, msg.Body); err != nil {
		return NewChannelError(ChannelSMS, classifySMS(err), err)
	}
	return nil
}

func classifySMS(err error) Reason {
	if errors.Is(err, sms.ErrInvalidNumber) {
		return ReasonInvalidTarget
	}
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		switch {
		case restErr.Code == twilioInvalidTo:
			return ReasonInvalidTarget
		case restErr.Status == http.StatusUnauthorized || restErr.Status == http.StatusForbidden:
			return ReasonAuthFailure
		case restErr.Status == http.StatusTooManyRequests || restErr.Status >= 500:
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
