// Package queue implements the SQS-backed dispatch queue: the publisher the
// scan scheduler and recovery sweeper feed, and the long-polling consumer the
// dispatch worker pool drains.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"rooster/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// DispatchPublisher wraps an SQS client to publish DispatchMessages for
// initial dispatch and queue-level retry.
//
// The key contract: for deliver-kind messages, Publish increments
// msg.RetryCount BEFORE serializing, so the downstream consumer always sees
// the attempt number it is executing. Retry-kind messages (from the recovery
// sweeper) keep the count they were given; their attempt accounting lives in
// the event log row.
type DispatchPublisher struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
}

var _ types.DispatchQueue = (*DispatchPublisher)(nil)

// NewDispatchPublisher creates a DispatchPublisher targeting the given SQS
// queue.
func NewDispatchPublisher(client SQSSender, queueURL string, logger types.Logger) *DispatchPublisher {
	return &DispatchPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Publish serializes msg and sends it to the dispatch queue, made visible
// after delay.
//
// SQS enforces a maximum DelaySeconds of 900 (15 minutes); longer delays are
// clamped. Entries needing longer waits are handled by the recovery sweeper's
// cool-down query rather than by queue delay.
func (p *DispatchPublisher) Publish(ctx context.Context, msg types.DispatchMessage, delay time.Duration) error {
	if msg.Kind == types.DispatchDeliver {
		msg.RetryCount++
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("dispatch publisher: failed to marshal message: %w", err)
	}

	delaySec := int32(delay.Seconds())
	if delaySec > 900 {
		delaySec = 900
	}
	if delaySec < 0 {
		delaySec = 0
	}

	input := &sqs.SendMessageInput{
		QueueUrl:     aws.String(p.queueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: delaySec,
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeInternalQueue,
			fmt.Sprintf("failed to send dispatch message to %s", p.queueURL), err)
	}

	p.logger.Info("dispatch message published",
		"entry_id", msg.EntryID,
		"kind", string(msg.Kind),
		"retry_count", msg.RetryCount,
		"delay_seconds", delaySec,
		"trace_id", msg.TraceID,
	)

	return nil
}
