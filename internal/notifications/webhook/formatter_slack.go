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

// slackAttachmentColor is the App Store blue.
const slackAttachmentColor = "#007AFF"

// SlackFormatter renders notifications as a Slack incoming-webhook attachment.
type SlackFormatter struct {
	cfg config.SlackConfig
}

// NewSlackFormatter creates a formatter bound to cfg.
func NewSlackFormatter(cfg config.SlackConfig) *SlackFormatter {
	return &SlackFormatter{cfg: cfg}
}

// Destination returns types.DestinationSlack.
func (f *SlackFormatter) Destination() types.Destination {
	return types.DestinationSlack
}

// Format builds a single-attachment message. Items become short fields and
// sub-items are rendered in the footer as mrkdwn lines.
func (f *SlackFormatter) Format(_ context.Context, p *core.DisplayPayload) (*DeliveryRequest, error) {
	if p == nil {
		return nil, types.NewAppError(types.ErrCodeDeliveryFormat, "slack: payload is nil", nil)
	}

	items := core.Visible(p.Items)
	fields := make([]SlackField, 0, len(items))
	for _, it := range items {
		value := it.Value
		if it.Name == core.ItemCountry {
			value = core.CountryLabel(it, core.FlagShortcodeHyphen)
		}
		fields = append(fields, SlackField{Title: it.Name, Value: value, Short: true})
	}

	var footer []string
	for _, it := range core.Visible(p.SubItems) {
		footer = append(footer, fmt.Sprintf("*%s:* %s", it.Name, it.Value))
	}

	return newJSONRequest(types.DestinationSlack, f.cfg.WebhookURL.Unmask(), SlackPayload{
		Channel:   f.cfg.Channel,
		Username:  f.cfg.Username,
		IconEmoji: f.cfg.IconEmoji,
		Attachments: []SlackAttachment{{
			Color:      slackAttachmentColor,
			Title:      p.BundleID,
			TitleLink:  p.AppStoreURL(),
			Text:       p.Title,
			Fields:     fields,
			Footer:     strings.Join(footer, "\n"),
			FooterIcon: appStoreIconURL,
		}},
	})
}

// ValidateResponse checks for Slack's "soft failure" pattern where the API
// returns HTTP 200 but the body indicates an error (e.g., "ok": false).
func (f *SlackFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("slack: unexpected status %d", statusCode)
	}

	bodyStr := strings.TrimSpace(string(body))

	// Slack incoming webhooks return "ok" as plain text on success.
	if bodyStr == "ok" || bodyStr == "" {
		return nil
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err == nil {
		if ok, isBool := resp["ok"].(bool); isBool && !ok {
			errMsg, _ := resp["error"].(string)
			if errMsg == "" {
				errMsg = "unknown error"
			}
			return fmt.Errorf("slack: API error: %s", errMsg)
		}
		return nil
	}

	// Non-JSON, non-"ok" body on 2xx is a plain-text error message.
	return fmt.Errorf("slack: unexpected response: %s", truncateBody(body))
}
