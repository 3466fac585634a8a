package webhook

import (
	"context"
	"net/http"

	"iapnotify/internal/notifications/core"
	"iapnotify/internal/types"
)

// Formatter renders a DisplayPayload into one destination's HTTP request.
// Formatters are bound to their destination config at construction and are
// safe for concurrent use.
type Formatter interface {
	// Format builds the outbound request. Items with empty values are omitted.
	Format(ctx context.Context, p *core.DisplayPayload) (*DeliveryRequest, error)

	// Destination returns the enum identifier for logs and metrics.
	Destination() types.Destination

	// ValidateResponse interprets a 2xx response body to catch "soft failures"
	// (e.g., Telegram returning "ok": false).
	ValidateResponse(statusCode int, body []byte) error
}

// DeliveryRequest is one fully-rendered outbound call. The body is re-sent
// unchanged on every attempt.
type DeliveryRequest struct {
	Destination types.Destination
	Method      string
	URL         string
	Header      http.Header
	Body        []byte
}

// Result describes a settled Send call. It is returned alongside the error on
// failure so callers can record attempts and the last status code.
type Result struct {
	StatusCode int
	Body       []byte
	Attempts   int
	Retries    int
}

// --- Telegram Payload Types (Bot API sendMessage) ---

// TelegramPayload is the sendMessage request body.
type TelegramPayload struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// --- Discord Payload Types (Embeds) ---

// DiscordPayload is the top-level structure for Discord webhook messages.
type DiscordPayload struct {
	Username string         `json:"username"`
	Content  string         `json:"content"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents an embed in a Discord webhook message.
type DiscordEmbed struct {
	Title     string            `json:"title"`
	URL       string            `json:"url,omitempty"`
	Color     int               `json:"color"` // Decimal color code
	Fields    []DiscordField    `json:"fields"`
	Thumbnail *DiscordThumbnail `json:"thumbnail,omitempty"`
	Footer    *DiscordFooter    `json:"footer,omitempty"`
}

// DiscordField is a field within a Discord embed.
type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// DiscordThumbnail is the embed thumbnail image.
type DiscordThumbnail struct {
	URL string `json:"url"`
}

// DiscordFooter is the footer of a Discord embed.
type DiscordFooter struct {
	Text string `json:"text"`
}

// --- Slack Payload Types (legacy attachments) ---

// SlackPayload is the top-level structure for Slack incoming webhooks.
type SlackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []SlackAttachment `json:"attachments"`
}

// SlackAttachment is a single coloured attachment.
type SlackAttachment struct {
	Color      string       `json:"color"`
	Title      string       `json:"title"`
	TitleLink  string       `json:"title_link,omitempty"`
	Text       string       `json:"text"`
	Fields     []SlackField `json:"fields"`
	Footer     string       `json:"footer,omitempty"`
	FooterIcon string       `json:"footer_icon,omitempty"`
}

// SlackField is a short key/value field within an attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
