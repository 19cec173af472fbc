package email

import (
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"
)

// ErrInvalidAddress is returned before dialing for malformed recipients.
var ErrInvalidAddress = errors.New("invalid email address")

// Sender delivers plain-text mail through an authenticated SMTP relay.
type Sender struct {
	Server   string
	Port     int
	Username string
	Password string
	FromName string
}

func (s Sender) Send(to, subject, body string) error {
	if _, err := mail.ParseAddress(to); err != nil || !strings.Contains(to, "@") {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, to)
	}

	from := s.Username
	if s.FromName != "" {
		from = (&mail.Address{Name: s.FromName, Address: s.Username}).String()
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		from, to, subject, body))

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Server)
	addr := fmt.Sprintf("%s:%d", s.Server, s.Port)
	if err := smtp.SendMail(addr, auth, s.Username, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
