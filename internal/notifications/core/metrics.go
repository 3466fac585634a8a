package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"iapnotify/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertion that CloudWatchDeliveryMetrics implements DeliveryMetrics.
var _ DeliveryMetrics = (*CloudWatchDeliveryMetrics)(nil)

// CloudWatchDeliveryMetrics emits delivery metrics to AWS CloudWatch.
//
// Metrics emitted:
//   - NotificationReceived: Dims {NotificationType}
//   - DeliveryAttempt: Dims {Destination, Result}
//   - DeliveryLatency: Dims {Destination}
//   - DeliveryRetries: Dims {Destination}
type CloudWatchDeliveryMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchDeliveryMetrics creates a publisher for the given namespace. An
// empty namespace falls back to types.DefaultMetricNamespace.
func NewCloudWatchDeliveryMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchDeliveryMetrics {
	if namespace == "" {
		namespace = types.DefaultMetricNamespace
	}
	return &CloudWatchDeliveryMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordNotification counts an accepted inbound notification.
func (m *CloudWatchDeliveryMetrics) RecordNotification(ctx context.Context, notificationType string) {
	if notificationType == "" {
		notificationType = "UNKNOWN"
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricNotificationSeen),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimNotificationType), Value: aws.String(notificationType)},
		},
	}, "notification_type", notificationType)
}

// RecordDelivery emits a DeliveryAttempt metric with Destination and Result
// dimensions, once per settled pipeline.
func (m *CloudWatchDeliveryMetrics) RecordDelivery(ctx context.Context, dest types.Destination, result MetricResult) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimDestination), Value: aws.String(string(dest))},
			{Name: aws.String(types.DimResult), Value: aws.String(string(result))},
		},
	}, "destination", string(dest), "result", string(result))
}

// RecordLatency emits the end-to-end pipeline duration in milliseconds,
// retries and waits included.
func (m *CloudWatchDeliveryMetrics) RecordLatency(ctx context.Context, dest types.Destination, duration time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimDestination), Value: aws.String(string(dest))},
		},
	}, "destination", string(dest), "duration_ms", duration.Milliseconds())
}

// RecordRetries emits how many retries a pipeline needed. Zero is not emitted.
func (m *CloudWatchDeliveryMetrics) RecordRetries(ctx context.Context, dest types.Destination, retries int) {
	if retries <= 0 {
		return
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryRetries),
		Value:      aws.Float64(float64(retries)),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimDestination), Value: aws.String(string(dest))},
		},
	}, "destination", string(dest), "retries", retries)
}

func (m *CloudWatchDeliveryMetrics) put(ctx context.Context, datum cwtypes.MetricDatum, logArgs ...any) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		args := append([]any{"error", err.Error(), "metric", aws.ToString(datum.MetricName)}, logArgs...)
		m.logger.Error("failed to record metric", args...)
	}
}
