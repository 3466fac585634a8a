// Package config defines the process-wide configuration for the notifier.
// Configuration is loaded once at process start (or Lambda cold start) and is
// immutable thereafter; components receive the *Config or the sub-struct they
// need and never write to it.
//
// Values are resolved from the OS environment, with a .env file as a lower
// priority source for local development. Any missing required value or invalid
// format fails startup.
package config

import (
	"time"

	"iapnotify/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"iapnotify"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	General       GeneralConfig
	Delivery      DeliveryConfig
	Telegram      TelegramConfig
	Discord       DiscordConfig
	Slack         SlackConfig
	AWS           AWSConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env.
	Build BuildInfo `ignored:"true"`
}

// ServerConfig holds the inbound HTTP listener settings (local mode only;
// Lambda ignores the port).
type ServerConfig struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MaxBodySize int64  `envconfig:"MAX_BODY_SIZE" default:"1048576" validate:"gt=0"`
}

// GeneralConfig holds presentation and filtering settings shared by every
// destination.
type GeneralConfig struct {
	AllowSandboxNotifications bool   `envconfig:"ALLOW_SANDBOX_NOTIFICATIONS" default:"true"`
	Timezone                  string `envconfig:"TIMEZONE" default:"Europe/Istanbul" validate:"required,timezone"`
	// DateFormat is a Go reference-time layout.
	DateFormat string `envconfig:"DATE_FORMAT" default:"02.01.2006 15:04:05" validate:"required"`

	// Location is resolved from Timezone by the loader.
	Location *time.Location `ignored:"true" validate:"-"`
}

// DeliveryConfig holds outbound delivery and retry settings.
type DeliveryConfig struct {
	RetryAttempts   int           `envconfig:"RETRY_ATTEMPTS" default:"3" validate:"gte=0,lte=10"`
	RetryDelay      time.Duration `envconfig:"RETRY_DELAY" default:"1s" validate:"gte=0"`
	Timeout         time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"10s" validate:"gt=0"`
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"0s" validate:"gte=0"` // 0 disables
	UserAgent       string        `envconfig:"USER_AGENT" default:"IAPNotify/1.0"`
	BreakerEnabled  bool          `envconfig:"DELIVERY_BREAKER_ENABLED" default:"false"`
}

// TelegramConfig configures the Telegram Bot API destination.
type TelegramConfig struct {
	Enabled  bool         `envconfig:"TELEGRAM_ENABLED" default:"true"`
	BotToken SecretString `envconfig:"TELEGRAM_BOT_TOKEN" validate:"required_if=Enabled true"`
	ChatID   string       `envconfig:"TELEGRAM_CHAT_ID" validate:"required_if=Enabled true"`
	APIBase  string       `envconfig:"TELEGRAM_API_BASE" default:"https://api.telegram.org" validate:"required,url"`
}

// DiscordConfig configures the Discord webhook destination.
type DiscordConfig struct {
	Enabled    bool         `envconfig:"DISCORD_ENABLED" default:"true"`
	WebhookURL SecretString `envconfig:"DISCORD_WEBHOOK_URL" validate:"required_if=Enabled true"`
	Username   string       `envconfig:"DISCORD_USERNAME" default:"IAP Events"`
}

// SlackConfig configures the Slack incoming-webhook destination.
type SlackConfig struct {
	Enabled    bool         `envconfig:"SLACK_ENABLED" default:"false"`
	WebhookURL SecretString `envconfig:"SLACK_WEBHOOK_URL" validate:"required_if=Enabled true"`
	Channel    string       `envconfig:"SLACK_CHANNEL" default:"#app-store-notifications"`
	Username   string       `envconfig:"SLACK_USERNAME" default:"App Store Bot"`
	IconEmoji  string       `envconfig:"SLACK_ICON_EMOJI" default:":apple:"`
}

// AWSConfig holds AWS resource identifiers. Every resource is optional; an
// empty value disables the matching side channel.
type AWSConfig struct {
	Region                 string `envconfig:"AWS_REGION" default:"us-east-1"`
	FailedDeliveryQueueURL string `envconfig:"FAILED_DELIVERY_QUEUE_URL" validate:"omitempty,url"`
	EndpointURL            string `envconfig:"AWS_ENDPOINT_URL"`
}

// DatabaseConfig holds the optional delivery-log database connection.
type DatabaseConfig struct {
	URL      SecretString `envconfig:"DATABASE_URL" validate:"omitempty,url"`
	MaxConns int32        `envconfig:"DB_MAX_CONNS" default:"4" validate:"gt=0"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"IAPNotify"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrTimezone indicates the configured timezone could not be loaded.
	ErrTimezone ConfigErrorType = "TIMEZONE_FAILED"
)

// AnyDestinationEnabled reports whether at least one destination is switched on.
func (c *Config) AnyDestinationEnabled() bool {
	return c.Telegram.Enabled || c.Discord.Enabled || c.Slack.Enabled
}
