package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"iapnotify/internal/config"
	"iapnotify/internal/notifications/core"
	"iapnotify/internal/types"
)

// markdownV2Special matches every character Telegram's MarkdownV2 requires to
// be escaped outside of entities.
var markdownV2Special = regexp.MustCompile("[_*\\[\\]()~`>#+=|{}.!-]")

// escapeMarkdownV2 prefixes each MarkdownV2 special character with a backslash.
func escapeMarkdownV2(s string) string {
	return markdownV2Special.ReplaceAllString(s, `\$0`)
}

// telegramItemEmoji decorates the primary items. Unknown names get no emoji.
var telegramItemEmoji = map[string]string{
	core.ItemEvent:   "📊",
	core.ItemProduct: "🏷",
	core.ItemCountry: "🌍",
	core.ItemPrice:   "💰",
}

// TelegramFormatter renders notifications for the Telegram Bot API.
type TelegramFormatter struct {
	cfg config.TelegramConfig
}

// NewTelegramFormatter creates a formatter bound to cfg.
func NewTelegramFormatter(cfg config.TelegramConfig) *TelegramFormatter {
	return &TelegramFormatter{cfg: cfg}
}

// Destination returns types.DestinationTelegram.
func (f *TelegramFormatter) Destination() types.Destination {
	return types.DestinationTelegram
}

// Format builds a sendMessage request with a MarkdownV2 text body.
func (f *TelegramFormatter) Format(_ context.Context, p *core.DisplayPayload) (*DeliveryRequest, error) {
	if p == nil {
		return nil, types.NewAppError(types.ErrCodeDeliveryFormat, "telegram: payload is nil", nil)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage",
		strings.TrimRight(f.cfg.APIBase, "/"), f.cfg.BotToken.Unmask())

	return newJSONRequest(types.DestinationTelegram, url, TelegramPayload{
		ChatID:                f.cfg.ChatID,
		Text:                  telegramText(p),
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: false,
	})
}

func telegramText(p *core.DisplayPayload) string {
	lines := []string{
		escapeMarkdownV2(p.BundleID),
		escapeMarkdownV2(p.Title),
		"",
	}

	for _, it := range core.Visible(p.Items) {
		value := it.Value
		if it.Name == core.ItemCountry {
			value = core.CountryLabel(it, core.FlagCodepointPair)
		}
		lines = append(lines, fmt.Sprintf("%s *%s:* %s",
			telegramItemEmoji[it.Name], escapeMarkdownV2(it.Name), escapeMarkdownV2(value)))
	}

	lines = append(lines, "", "ℹ️ *Additional Info:*")
	for _, it := range core.Visible(p.SubItems) {
		lines = append(lines, fmt.Sprintf("• *%s:* %s",
			escapeMarkdownV2(it.Name), escapeMarkdownV2(it.Value)))
	}
	lines = append(lines, "")

	return strings.Join(lines, "\n")
}

// ValidateResponse rejects Bot API replies whose envelope reports "ok": false.
func (f *TelegramFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("telegram: unexpected status %d", statusCode)
	}

	var resp struct {
		OK          *bool  `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.OK == nil {
		return nil
	}
	if !*resp.OK {
		return fmt.Errorf("telegram: API error: %s", resp.Description)
	}
	return nil
}
