package notifier

import (
	"context"
	"errors"
)

// Channel identifies an outbound notification channel.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrSendTimeout     = errors.New("sender timeout")
	ErrSendRejected    = errors.New("sender rejected message")
)

type SendRequest struct {
	NotificationID int64
	Recipient      string
	Subject        string
	Message        string
	Metadata       map[string]any
}

type SendResult struct {
	MessageID    string
	Status       string // "sent", "failed"
	ErrorMessage string
}

// Sender delivers a notification over one channel.
type Sender interface {
	// Channel returns the channel this sender serves.
	Channel() Channel
	// Send delivers the notification.
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}
