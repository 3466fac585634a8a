package types

// Telemetry metric names for CloudWatch.
const (
	MetricDeliveryAttempt  = "DeliveryAttempt"
	MetricDeliveryLatency  = "DeliveryLatency"
	MetricDeliveryRetries  = "DeliveryRetries"
	MetricNotificationSeen = "NotificationReceived"

	DimDestination      = "Destination"
	DimResult           = "Result"
	DimNotificationType = "NotificationType"

	DefaultMetricNamespace = "IAPNotify"
)
