package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"rooster/internal/types"
)

// SQSReceiver abstracts the SQS receive/delete operations for testability.
type SQSReceiver interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// MessageHandler processes one dispatch message. A nil return acknowledges
// the message (it is deleted from the queue). A non-nil return leaves it on
// the queue for redelivery after the visibility timeout.
type MessageHandler interface {
	Handle(ctx context.Context, msg types.DispatchMessage) error
}

// ConsumerOptions tunes the receive loop.
type ConsumerOptions struct {
	// Workers bounds concurrent handler executions.
	Workers int

	// WaitTime is the long-poll duration per receive call.
	WaitTime time.Duration

	// BatchSize is the maximum messages fetched per receive (SQS cap: 10).
	BatchSize int
}

// Consumer long-polls the dispatch queue and fans messages out to a bounded
// worker pool. One Consumer per process; scale by running more processes.
type Consumer struct {
	client   SQSReceiver
	queueURL string
	handler  MessageHandler
	opts     ConsumerOptions
	logger   types.Logger
}

// NewConsumer creates a Consumer. Zero option fields get serviceable
// defaults.
func NewConsumer(client SQSReceiver, queueURL string, handler MessageHandler, opts ConsumerOptions, logger types.Logger) *Consumer {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.WaitTime <= 0 {
		opts.WaitTime = 20 * time.Second
	}
	if opts.BatchSize <= 0 || opts.BatchSize > 10 {
		opts.BatchSize = 10
	}
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		handler:  handler,
		opts:     opts,
		logger:   logger,
	}
}

// Run drains the queue until ctx is cancelled. Receive errors are logged and
// retried after a short pause rather than terminating the loop; only context
// cancellation ends it.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("dispatch consumer started",
		"queue_url", c.queueURL,
		"workers", c.opts.Workers,
	)

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("dispatch consumer stopping")
			return err
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: int32(c.opts.BatchSize),
			WaitTimeSeconds:     int32(c.opts.WaitTime.Seconds()),
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.logger.Error("receive failed, backing off", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}

		if len(out.Messages) == 0 {
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.opts.Workers)
		for _, raw := range out.Messages {
			g.Go(func() error {
				c.process(gctx, raw)
				return nil
			})
		}
		// Handlers report failures by leaving messages on the queue, so the
		// group never carries an error.
		_ = g.Wait()
	}
}

// process decodes and handles one raw SQS message, deleting it when the
// handler acknowledges.
func (c *Consumer) process(ctx context.Context, raw sqstypes.Message) {
	var msg types.DispatchMessage
	if err := json.Unmarshal([]byte(aws.ToString(raw.Body)), &msg); err != nil {
		// A malformed body will never parse on redelivery either; delete it
		// so it cannot poison the queue.
		c.logger.Error("dropping malformed dispatch message", "error", err)
		c.delete(ctx, raw.ReceiptHandle)
		return
	}

	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Error("dispatch handler failed, message left for redelivery",
			"entry_id", msg.EntryID,
			"kind", string(msg.Kind),
			"trace_id", msg.TraceID,
			"error", err,
		)
		return
	}

	c.delete(ctx, raw.ReceiptHandle)
}

func (c *Consumer) delete(ctx context.Context, receiptHandle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		// Non-fatal: the message reappears after the visibility timeout and
		// the dispatcher's status guard makes reprocessing a no-op.
		c.logger.Warn("failed to delete dispatch message", "error", err)
	}
}
