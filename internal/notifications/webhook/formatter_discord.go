package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"iapnotify/internal/config"
	"iapnotify/internal/notifications/core"
	"iapnotify/internal/types"
)

// discordEmbedColor is the embed accent (#E8D44F as decimal).
const discordEmbedColor = 15258703

// DiscordFormatter renders notifications as a Discord webhook embed.
type DiscordFormatter struct {
	cfg config.DiscordConfig
}

// NewDiscordFormatter creates a formatter bound to cfg.
func NewDiscordFormatter(cfg config.DiscordConfig) *DiscordFormatter {
	return &DiscordFormatter{cfg: cfg}
}

// Destination returns types.DestinationDiscord.
func (f *DiscordFormatter) Destination() types.Destination {
	return types.DestinationDiscord
}

// Format builds a single-embed webhook message. The title goes into content,
// items become inline fields, and sub-items are folded into the footer.
func (f *DiscordFormatter) Format(_ context.Context, p *core.DisplayPayload) (*DeliveryRequest, error) {
	if p == nil {
		return nil, types.NewAppError(types.ErrCodeDeliveryFormat, "discord: payload is nil", nil)
	}

	items := core.Visible(p.Items)
	fields := make([]DiscordField, 0, len(items))
	for _, it := range items {
		value := it.Value
		if it.Name == core.ItemCountry {
			value = core.CountryLabel(it, core.FlagShortcodeUnderscore)
		}
		fields = append(fields, DiscordField{Name: it.Name, Value: value, Inline: true})
	}

	embed := DiscordEmbed{
		Title:     p.BundleID,
		URL:       p.AppStoreURL(),
		Color:     discordEmbedColor,
		Fields:    fields,
		Thumbnail: &DiscordThumbnail{URL: appStoreIconURL},
	}

	var footer []string
	for _, it := range core.Visible(p.SubItems) {
		footer = append(footer, it.Name+": "+it.Value)
	}
	if len(footer) > 0 {
		embed.Footer = &DiscordFooter{Text: strings.Join(footer, "\n")}
	}

	username := f.cfg.Username
	if username == "" {
		username = "IAP Events"
	}

	return newJSONRequest(types.DestinationDiscord, f.cfg.WebhookURL.Unmask(), DiscordPayload{
		Username: username,
		Content:  p.Title,
		Embeds:   []DiscordEmbed{embed},
	})
}

// ValidateResponse checks the Discord webhook response. Discord returns 204
// No Content on success for webhook messages.
func (f *DiscordFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err == nil {
		if msg, ok := resp["message"].(string); ok {
			return fmt.Errorf("discord: API error: %s", msg)
		}
	}

	return fmt.Errorf("discord: unexpected status %d: %s", statusCode, truncateBody(body))
}
