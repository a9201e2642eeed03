package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"rooster/internal/types"
)

// MetricResult is the Result dimension value on the DeliveryAttempt metric.
type MetricResult string

const (
	MetricResultSuccess MetricResult = "success"
	MetricResultFailure MetricResult = "failure"
	MetricResultSkipped MetricResult = "skipped"
)

// DeliveryMetrics records delivery outcomes for dashboards and alarms.
// Recording must never fail a delivery: implementations log emission errors
// and move on.
type DeliveryMetrics interface {
	RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult)
	RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration)
	RecordQueueLag(ctx context.Context, lag time.Duration)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ DeliveryMetrics = (*CloudWatchDeliveryMetrics)(nil)

// CloudWatchDeliveryMetrics implements DeliveryMetrics by emitting to AWS
// CloudWatch.
//
// Metrics emitted:
//   - DeliveryAttempt: Dims {Channel, Result} -- on every delivery outcome
//   - DeliveryLatency: Dims {Channel} -- time taken for the channel call
//   - DispatchQueueLag: No dims -- enqueue-to-processing-start delay
type CloudWatchDeliveryMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchDeliveryMetrics creates a recorder publishing to the given
// CloudWatch namespace.
func NewCloudWatchDeliveryMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchDeliveryMetrics {
	return &CloudWatchDeliveryMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordDelivery emits a DeliveryAttempt count with Channel and Result
// dimensions.
func (m *CloudWatchDeliveryMetrics) RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("DeliveryAttempt"),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String("Channel"), Value: aws.String(string(channel))},
					{Name: aws.String("Result"), Value: aws.String(string(result))},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record delivery metric",
			"error", err.Error(),
			"channel", string(channel),
			"result", string(result),
		)
	}
}

// RecordLatency emits the channel-call duration in milliseconds.
func (m *CloudWatchDeliveryMetrics) RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("DeliveryLatency"),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String("Channel"), Value: aws.String(string(channel))},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record latency metric",
			"error", err.Error(),
			"channel", string(channel),
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// RecordQueueLag emits the time between message enqueue and processing
// start, measuring backlog plus visibility delay.
func (m *CloudWatchDeliveryMetrics) RecordQueueLag(ctx context.Context, lag time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("DispatchQueueLag"),
				Value:      aws.Float64(float64(lag.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record queue lag metric",
			"error", err.Error(),
			"lag_ms", lag.Milliseconds(),
		)
	}
}

// NoopDeliveryMetrics discards all recordings. Used when no metric namespace
// is configured and in tests.
type NoopDeliveryMetrics struct{}

var _ DeliveryMetrics = NoopDeliveryMetrics{}

func (NoopDeliveryMetrics) RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult) {
}
func (NoopDeliveryMetrics) RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration) {
}
func (NoopDeliveryMetrics) RecordQueueLag(ctx context.Context, lag time.Duration) {}
