package mail

import (
	"context"
	"testing"

	"github.com/abduss/contactbook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWithoutAPIKeyLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := New(config.MailConfig{}, zap.New(core))

	_, ok := sender.(*LogSender)
	require.True(t, ok, "expected LogSender when SENDGRID_API_KEY is empty")

	err := sender.Send(context.Background(), Message{
		To:        "user@example.com",
		Subject:   "Confirm your email",
		PlainText: "http://localhost/confirm",
	})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "user@example.com", logs.All()[0].ContextMap()["to"])
}

func TestNewWithAPIKeyUsesSendGrid(t *testing.T) {
	sender := New(config.MailConfig{SendGridAPIKey: "SG.key", FromAddress: "no-reply@example.com"}, nil)
	_, ok := sender.(*SendGridSender)
	assert.True(t, ok)
}

func TestSendRejectsIncompleteMessage(t *testing.T) {
	sender := NewLogSender(nil)

	assert.Error(t, sender.Send(context.Background(), Message{Subject: "hi"}))
	assert.Error(t, sender.Send(context.Background(), Message{To: "user@example.com"}))
}
