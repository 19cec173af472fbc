package sms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrInvalidNumber is returned before any API call for numbers not in E.164 form.
var ErrInvalidNumber = errors.New("invalid phone number")

// Client sends text messages through Twilio.
type Client struct {
	rest       *twilio.RestClient
	fromNumber string
}

func New(accountSID, authToken, fromNumber string) *Client {
	return &Client{
		rest: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		fromNumber: fromNumber,
	}
}

// Send delivers body to toNumber. Twilio REST failures are returned wrapped
// so callers can inspect them with errors.As(*client.TwilioRestError).
func (c *Client) Send(toNumber, body string) error {
	if !strings.HasPrefix(toNumber, "+") {
		return fmt.Errorf("%w: %s", ErrInvalidNumber, toNumber)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(c.fromNumber)
	params.SetBody(body)

	if _, err := c.rest.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", toNumber, err)
	}
	return nil
}
