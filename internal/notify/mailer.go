package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ErrNoRecipient is returned when an email has no destination address.
var ErrNoRecipient = errors.New("notify: email has no recipient")

// Attachment is a file carried by an email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Email is an outbound message.
type Email struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer sends outbound email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// LogMailer records emails in the log instead of delivering them.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(from string, logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{from: from, logger: logger}
}

// Send logs the message envelope.
func (m *LogMailer) Send(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	names := make([]string, 0, len(msg.Attachments))
	size := 0
	for _, att := range msg.Attachments {
		names = append(names, att.Filename)
		size += len(att.Content)
	}
	m.logger.Info("email dispatched",
		zap.String("from", m.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Strings("attachments", names),
		zap.Int("attachment_bytes", size))
	return nil
}
