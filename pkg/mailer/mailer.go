package mailer

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Sender delivers one e-mail.
type Sender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams is one outbound message.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks the recipient, subject and body.
func (p SendEmailParams) Validate() error {
	switch {
	case !emailRegex.MatchString(p.SendTo):
		return errors.Join(ErrInvalidParams, errors.New("recipient must be a valid email address"))
	case strings.TrimSpace(p.Subject) == "":
		return errors.Join(ErrInvalidParams, errors.New("subject is required"))
	case strings.TrimSpace(p.BodyHTML) == "":
		return errors.Join(ErrInvalidParams, errors.New("body is required"))
	}
	return nil
}
