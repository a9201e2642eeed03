// Package email implements the email notification delivery channel on top of
// a pluggable provider Sender.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rooster/internal/config"
	"rooster/internal/types"
)

// Message is the provider-agnostic email to send.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender submits one email to a provider. Implementations report transport
// failures through the error return; the channel maps them to delivery
// results.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var _ types.NotificationChannel = (*Channel)(nil)

// Channel implements types.NotificationChannel for email delivery. The
// recipient address comes from the payload's Destination (resolved by the
// dispatcher from the user record); an empty address is a deterministic
// configuration skip.
type Channel struct {
	sender Sender
	from   string
	logger types.Logger
}

// NewChannel creates an email Channel over the given sender.
func NewChannel(sender Sender, from string, logger types.Logger) *Channel {
	return &Channel{
		sender: sender,
		from:   from,
		logger: logger,
	}
}

// NewChannelFromConfig wires a Channel with the HTTP provider sender, or with
// no sender at all when the provider endpoint is not configured.
func NewChannelFromConfig(cfg config.ChannelConfig, logger types.Logger) *Channel {
	var sender Sender
	if s := NewHTTPSender(cfg); s != nil {
		sender = s
	}
	return NewChannel(sender, cfg.EmailFrom, logger)
}

// Kind returns the email channel identifier.
func (c *Channel) Kind() types.ChannelType {
	return types.ChannelEmail
}

// Deliver sends the payload message as an email to the recipient address.
func (c *Channel) Deliver(ctx context.Context, payload types.DeliveryPayload) (types.DeliveryResult, error) {
	if c.sender == nil {
		c.logger.Warn("email provider not configured, skipping",
			"user_id", payload.Recipient.UserID,
		)
		return types.DeliveryResult{
			Delivered:     false,
			FailureReason: "missing_email_provider",
			Code:          types.ErrCodeChannelNotConfigured,
		}, nil
	}
	if payload.Destination == "" {
		c.logger.Warn("recipient has no email address, skipping",
			"user_id", payload.Recipient.UserID,
		)
		return types.DeliveryResult{
			Delivered:     false,
			FailureReason: "missing_email_address",
			Code:          types.ErrCodeChannelNotConfigured,
		}, nil
	}

	msg := Message{
		From:    c.from,
		To:      payload.Destination,
		Subject: subjectFor(payload.Recipient.EventKind),
		Body:    payload.Message,
	}

	if err := c.sender.Send(ctx, msg); err != nil {
		c.logger.Warn("email send failed",
			"user_id", payload.Recipient.UserID,
			"error", err.Error(),
		)
		return types.DeliveryResult{
			Delivered:     false,
			FailureReason: fmt.Sprintf("provider_error: %v", err),
			Code:          types.ErrCodeUpstreamChannel,
		}, nil
	}

	c.logger.Info("email delivered",
		"user_id", payload.Recipient.UserID,
		"event_kind", string(payload.Recipient.EventKind),
	)
	return types.DeliveryResult{Delivered: true}, nil
}

// subjectFor maps an event kind to an email subject line.
func subjectFor(kind types.EventKind) string {
	switch kind {
	case types.EventBirthday:
		return "Happy Birthday!"
	case types.EventAnniversary:
		return "Happy Work Anniversary!"
	default:
		return "You have a new notification"
	}
}

// HTTPSender is a Sender that POSTs messages to an HTTP email provider API
// authenticated by bearer token.
type HTTPSender struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewHTTPSender creates an HTTPSender from the channel configuration, or nil
// when no provider endpoint is configured (the channel then reports
// configuration skips).
func NewHTTPSender(cfg config.ChannelConfig) *HTTPSender {
	if cfg.EmailEndpoint == "" {
		return nil
	}
	return &HTTPSender{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   cfg.EmailEndpoint,
		apiKey:     cfg.EmailAPIKey,
	}
}

// Send submits the message to the provider endpoint.
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("email sender: failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email sender: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email sender: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email sender: provider returned %d", resp.StatusCode)
	}
	return nil
}
