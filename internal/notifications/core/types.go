// Package core provides the destination-independent half of notification
// delivery: the display payload every formatter renders, shared value
// formatting, the retry policy, and the delivery side channels (metrics and
// the failed-delivery publisher).
package core

import (
	"context"
	"time"

	"iapnotify/internal/types"
)

// Outcome is the settled result of one destination pipeline.
type Outcome struct {
	Destination types.Destination
	Status      types.DeliveryStatus
	Attempts    int
	StatusCode  int
	Duration    time.Duration
	Err         error
}

// Succeeded reports whether the destination accepted the message.
func (o Outcome) Succeeded() bool {
	return o.Status == types.DeliveryStatusSent
}

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
)

// ResultOf maps an outcome onto its metric result.
func ResultOf(o Outcome) MetricResult {
	if o.Succeeded() {
		return MetricSuccess
	}
	return MetricFailed
}

// DeliveryMetrics abstracts CloudWatch/telemetry operations for delivery.
// Implementations must never fail the caller; errors are logged and dropped.
type DeliveryMetrics interface {
	RecordNotification(ctx context.Context, notificationType string)
	RecordDelivery(ctx context.Context, dest types.Destination, result MetricResult)
	RecordLatency(ctx context.Context, dest types.Destination, duration time.Duration)
	RecordRetries(ctx context.Context, dest types.Destination, retries int)
}

// NopMetrics discards every metric. Used when METRICS_ENABLED is off.
type NopMetrics struct{}

func (NopMetrics) RecordNotification(context.Context, string) {}
func (NopMetrics) RecordDelivery(context.Context, types.Destination, MetricResult) {}
func (NopMetrics) RecordLatency(context.Context, types.Destination, time.Duration) {}
func (NopMetrics) RecordRetries(context.Context, types.Destination, int) {}

// RetryPolicy defines the exponential backoff parameters for rate-limited or
// unreachable destinations.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries    int
	BaseDelay     time.Duration
	BackoffFactor float64
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
}

// DefaultRetryPolicy is three retries waiting 1s, 2s, then 4s.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:    3,
	BaseDelay:     1 * time.Second,
	BackoffFactor: 2.0,
}

// CalculateNextRetry computes the fallback delay before retry number
// attempt (zero-based): BaseDelay * BackoffFactor^attempt, capped at MaxDelay
// when set.
func CalculateNextRetry(policy RetryPolicy, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(policy.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= policy.BackoffFactor
	}

	d := time.Duration(delay)
	if d < 0 {
		// overflow
		d = policy.MaxDelay
	}
	if policy.MaxDelay > 0 && d > policy.MaxDelay {
		d = policy.MaxDelay
	}
	return d
}
