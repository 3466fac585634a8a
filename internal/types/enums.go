package types

// DeliveryStatus is the settled state of one destination pipeline.
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// Transaction environments reported by the App Store.
const (
	EnvironmentSandbox    = "Sandbox"
	EnvironmentProduction = "Production"
)

// Destination identifies an outbound chat destination.
type Destination string

const (
	DestinationTelegram Destination = "telegram"
	DestinationDiscord  Destination = "discord"
	DestinationSlack    Destination = "slack"
)

// Destinations lists every destination in dispatch order.
var Destinations = []Destination{DestinationTelegram, DestinationDiscord, DestinationSlack}
