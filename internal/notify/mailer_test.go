package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tickettally/ticket-engine/internal/domain"
)

func TestLogMailerSend(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mailer := NewLogMailer("helpdesk@example.com", zap.New(core))

	err := mailer.Send(context.Background(), Email{
		To:      "dana@example.com",
		Subject: "Ticket Resolved",
		Attachments: []Attachment{
			{Filename: "Ticket_1_Summary.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.3")},
		},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("email dispatched").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "dana@example.com", fields["to"])
	assert.Equal(t, int64(8), fields["attachment_bytes"])
}

func TestLogMailerRejectsMissingRecipient(t *testing.T) {
	err := NewLogMailer("helpdesk@example.com", nil).Send(context.Background(), Email{To: "  "})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestRedisPublisherWithoutClient(t *testing.T) {
	p := NewRedisPublisher(nil, "")
	assert.Equal(t, "notifications:u-1", p.Channel("u-1"))
	assert.NoError(t, p.Publish(context.Background(), domain.Notification{
		ID: "n-1", RecipientID: "u-1", CreatedAt: time.Now(),
	}))
}
