// Package webhook implements the webhook notification delivery channel: an
// HTTP POST of the delivery payload to a configured destination, wrapped in a
// circuit breaker so a dead endpoint sheds load quickly instead of burning a
// full timeout per entry.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"rooster/internal/config"
	"rooster/internal/types"
)

// maxResponseBodyRead limits how much of a response body we read for error
// messages.
const maxResponseBodyRead = 4096

var _ types.NotificationChannel = (*Channel)(nil)

// Channel implements types.NotificationChannel for webhook delivery.
//
// Destination resolution: the payload's Destination (per-user override) wins,
// falling back to the globally configured URL. With neither set, Deliver
// reports a deterministic configuration skip instead of attempting a call.
type Channel struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	cfg        config.ChannelConfig
	logger     types.Logger
}

// NewChannel creates a webhook Channel from the channel configuration.
func NewChannel(cfg config.ChannelConfig, logger types.Logger) *Channel {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewChannelWithClient(cfg, &http.Client{Timeout: timeout}, logger)
}

// NewChannelWithClient creates a Channel with a caller-supplied HTTP client.
// This constructor exists for testing against httptest servers.
func NewChannelWithClient(cfg config.ChannelConfig, httpClient *http.Client, logger types.Logger) *Channel {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "webhook-channel",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &Channel{
		httpClient: httpClient,
		breaker:    cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// Kind returns the webhook channel identifier.
func (c *Channel) Kind() types.ChannelType {
	return types.ChannelWebhook
}

// Deliver POSTs the payload as JSON to the resolved destination.
//
// Response handling:
//   - 2xx: delivered
//   - 429: failed, reason "rate_limited_429", ErrCodeUpstreamRateLimited
//   - other 4xx: failed, reason "client_error_<code>"
//   - 5xx: failed, reason "server_error_<code>"
//   - network error / open breaker: failed with the transport reason
//
// All HTTP and transport failures carry ErrCodeUpstreamChannel unless noted;
// a missing destination carries ErrCodeChannelNotConfigured.
//
// Expected failures come back in the DeliveryResult; the error return is
// reserved for payload marshaling.
func (c *Channel) Deliver(ctx context.Context, payload types.DeliveryPayload) (types.DeliveryResult, error) {
	destination := payload.Destination
	if destination == "" {
		destination = c.cfg.WebhookURL
	}
	if destination == "" {
		c.logger.Warn("webhook destination not configured, skipping",
			"user_id", payload.Recipient.UserID,
		)
		return types.DeliveryResult{
			Delivered:     false,
			FailureReason: "missing_webhook_url",
			Code:          types.ErrCodeChannelNotConfigured,
		}, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.DeliveryResult{}, fmt.Errorf("webhook deliver: failed to marshal payload: %w", err)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		// Drain and close inside the breaker callback so a kept-alive
		// connection is reusable; only the status survives.
		defer resp.Body.Close()
		_, _ = io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))
		if resp.StatusCode >= 500 {
			return resp, fmt.Errorf("server error %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("webhook circuit open, shedding delivery",
				"destination", destination,
			)
			return types.DeliveryResult{
				Delivered:     false,
				FailureReason: "circuit_open",
				Code:          types.ErrCodeUpstreamChannel,
			}, nil
		}
		if resp != nil && resp.StatusCode >= 500 {
			c.logger.Warn("webhook server error",
				"destination", destination,
				"status", resp.StatusCode,
			)
			return types.DeliveryResult{
				Delivered:     false,
				FailureReason: fmt.Sprintf("server_error_%d", resp.StatusCode),
				Code:          types.ErrCodeUpstreamChannel,
			}, nil
		}
		c.logger.Warn("webhook network error",
			"destination", destination,
			"error", err.Error(),
		)
		return types.DeliveryResult{
			Delivered:     false,
			FailureReason: fmt.Sprintf("network_error: %v", err),
			Code:          types.ErrCodeUpstreamChannel,
		}, nil
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Info("webhook delivered",
			"destination", destination,
			"status", resp.StatusCode,
			"user_id", payload.Recipient.UserID,
		)
		return types.DeliveryResult{Delivered: true}, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("webhook rate limited", "destination", destination)
		return types.DeliveryResult{
			Delivered:     false,
			FailureReason: "rate_limited_429",
			Code:          types.ErrCodeUpstreamRateLimited,
		}, nil

	default: // remaining 4xx
		c.logger.Warn("webhook client error",
			"destination", destination,
			"status", resp.StatusCode,
		)
		return types.DeliveryResult{
			Delivered:     false,
			FailureReason: fmt.Sprintf("client_error_%d", resp.StatusCode),
			Code:          types.ErrCodeUpstreamChannel,
		}, nil
	}
}
