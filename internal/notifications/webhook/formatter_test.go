package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iapnotify/internal/config"
	"iapnotify/internal/notifications/core"
	"iapnotify/internal/types"
)

// testPayload creates a fully populated display payload.
func testPayload() *core.DisplayPayload {
	return &core.DisplayPayload{
		Title: "🔔 SUBSCRIBED 4.99 USD 💵",
		Items: []core.Item{
			{Name: core.ItemEvent, Value: "INITIAL_BUY"},
			{Name: core.ItemProduct, Value: "pro.monthly"},
			{Name: core.ItemCountry, Value: "TUR", Country: "TR"},
			{Name: core.ItemPrice, Value: "4.99 USD"},
		},
		SubItems: []core.Item{
			{Name: core.ItemEnvironment, Value: "Production"},
			{Name: core.ItemID, Value: "2000000123456789"},
			{Name: core.ItemType, Value: ""},
			{Name: core.ItemExpiresDate, Value: "01.03.2024 15:00:00"},
		},
		AppAppleID: "1234567890",
		BundleID:   "com.example.app",
	}
}

// sparsePayload has an empty item and sub-item interleaved with filled ones.
func sparsePayload() *core.DisplayPayload {
	p := testPayload()
	p.Items[1].Value = ""    // Product
	p.SubItems[0].Value = "" // Environment
	return p
}

// --- Telegram ---

func testTelegramConfig() config.TelegramConfig {
	return config.TelegramConfig{
		Enabled:  true,
		BotToken: "123:abc",
		ChatID:   "-10042",
		APIBase:  "https://api.telegram.org/",
	}
}

func decodeTelegram(t *testing.T, req *DeliveryRequest) TelegramPayload {
	t.Helper()
	var body TelegramPayload
	require.NoError(t, json.Unmarshal(req.Body, &body))
	return body
}

func TestTelegramFormatter_Format_Request(t *testing.T) {
	f := NewTelegramFormatter(testTelegramConfig())
	req, err := f.Format(context.Background(), testPayload())
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://api.telegram.org/bot123:abc/sendMessage", req.URL)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, types.DestinationTelegram, req.Destination)

	body := decodeTelegram(t, req)
	assert.Equal(t, "-10042", body.ChatID)
	assert.Equal(t, "MarkdownV2", body.ParseMode)
	assert.False(t, body.DisableWebPagePreview)
	assert.Contains(t, string(req.Body), `"disable_web_page_preview":false`)
}

func TestTelegramFormatter_Format_Text(t *testing.T) {
	f := NewTelegramFormatter(testTelegramConfig())
	req, err := f.Format(context.Background(), testPayload())
	require.NoError(t, err)

	want := strings.Join([]string{
		`com\.example\.app`,
		`🔔 SUBSCRIBED 4\.99 USD 💵`,
		``,
		`📊 *Event:* INITIAL\_BUY`,
		`🏷 *Product:* pro\.monthly`,
		`🌍 *Country:* 🇹🇷 TUR`,
		`💰 *Price:* 4\.99 USD`,
		``,
		`ℹ️ *Additional Info:*`,
		`• *Environment:* Production`,
		`• *ID:* 2000000123456789`,
		`• *Expires Date:* 01\.03\.2024 15:00:00`,
		``,
	}, "\n")
	assert.Equal(t, want, decodeTelegram(t, req).Text)
}

func TestTelegramFormatter_Format_SkipsEmptyValues(t *testing.T) {
	f := NewTelegramFormatter(testTelegramConfig())
	req, err := f.Format(context.Background(), sparsePayload())
	require.NoError(t, err)

	text := decodeTelegram(t, req).Text
	assert.NotContains(t, text, "Product")
	assert.NotContains(t, text, "Environment")
	assert.NotContains(t, text, "*Type:*")
	assert.Contains(t, text, "*Event:*")
}

func TestEscapeMarkdownV2(t *testing.T) {
	in := "_*[]()~`>#+=|{}.!-"
	want := `\_\*\[\]\(\)\~\` + "`" + `\>\#\+\=\|\{\}\.\!\-`
	assert.Equal(t, want, escapeMarkdownV2(in))
	assert.Equal(t, "plain text 123", escapeMarkdownV2("plain text 123"))
	assert.Equal(t, "", escapeMarkdownV2(""))
}

func TestTelegramFormatter_Format_NilPayload(t *testing.T) {
	_, err := NewTelegramFormatter(testTelegramConfig()).Format(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, types.IsDeliveryError(err))
}

func TestTelegramFormatter_ValidateResponse(t *testing.T) {
	f := NewTelegramFormatter(testTelegramConfig())

	assert.NoError(t, f.ValidateResponse(200, []byte(`{"ok":true,"result":{}}`)))
	assert.NoError(t, f.ValidateResponse(200, []byte(``)))

	err := f.ValidateResponse(200, []byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't parse entities")
}

// --- Discord ---

func testDiscordConfig() config.DiscordConfig {
	return config.DiscordConfig{Enabled: true, WebhookURL: "https://discord.com/api/webhooks/1/abc"}
}

func TestDiscordFormatter_Format_Structure(t *testing.T) {
	f := NewDiscordFormatter(testDiscordConfig())
	req, err := f.Format(context.Background(), testPayload())
	require.NoError(t, err)

	assert.Equal(t, "https://discord.com/api/webhooks/1/abc", req.URL)
	assert.Equal(t, types.DestinationDiscord, req.Destination)

	var body DiscordPayload
	require.NoError(t, json.Unmarshal(req.Body, &body))

	assert.Equal(t, "IAP Events", body.Username)
	assert.Equal(t, "🔔 SUBSCRIBED 4.99 USD 💵", body.Content)
	require.Len(t, body.Embeds, 1)

	embed := body.Embeds[0]
	assert.Equal(t, "com.example.app", embed.Title)
	assert.Equal(t, "https://apps.apple.com/app/id1234567890", embed.URL)
	assert.Equal(t, 15258703, embed.Color)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, appStoreIconURL, embed.Thumbnail.URL)

	require.Len(t, embed.Fields, 4)
	assert.Equal(t, DiscordField{Name: "Country", Value: ":flag_tr: TUR", Inline: true}, embed.Fields[2])

	require.NotNil(t, embed.Footer)
	assert.Equal(t, "Environment: Production\nID: 2000000123456789\nExpires Date: 01.03.2024 15:00:00", embed.Footer.Text)
}

func TestDiscordFormatter_Format_SkipsEmptyValues(t *testing.T) {
	f := NewDiscordFormatter(testDiscordConfig())
	req, err := f.Format(context.Background(), sparsePayload())
	require.NoError(t, err)

	var body DiscordPayload
	require.NoError(t, json.Unmarshal(req.Body, &body))

	for _, field := range body.Embeds[0].Fields {
		assert.NotEqual(t, "Product", field.Name)
		assert.NotEmpty(t, field.Value)
	}
	assert.Len(t, body.Embeds[0].Fields, 3)
	assert.NotContains(t, body.Embeds[0].Footer.Text, "Environment")
}

func TestDiscordFormatter_Format_CustomUsername(t *testing.T) {
	cfg := testDiscordConfig()
	cfg.Username = "Revenue"
	req, err := NewDiscordFormatter(cfg).Format(context.Background(), testPayload())
	require.NoError(t, err)
	assert.Contains(t, string(req.Body), `"username":"Revenue"`)
}

func TestDiscordFormatter_ValidateResponse(t *testing.T) {
	f := NewDiscordFormatter(testDiscordConfig())
	assert.NoError(t, f.ValidateResponse(204, nil))

	err := f.ValidateResponse(400, []byte(`{"message":"Invalid Form Body"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Form Body")
}

// --- Slack ---

func testSlackConfig() config.SlackConfig {
	return config.SlackConfig{
		Enabled:    true,
		WebhookURL: "https://hooks.slack.com/services/T/B/X",
		Channel:    "#app-store-notifications",
		Username:   "App Store Bot",
		IconEmoji:  ":apple:",
	}
}

func TestSlackFormatter_Format_Structure(t *testing.T) {
	f := NewSlackFormatter(testSlackConfig())
	req, err := f.Format(context.Background(), testPayload())
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.slack.com/services/T/B/X", req.URL)
	assert.Equal(t, types.DestinationSlack, req.Destination)

	var body SlackPayload
	require.NoError(t, json.Unmarshal(req.Body, &body))

	assert.Equal(t, "#app-store-notifications", body.Channel)
	assert.Equal(t, "App Store Bot", body.Username)
	assert.Equal(t, ":apple:", body.IconEmoji)
	require.Len(t, body.Attachments, 1)

	att := body.Attachments[0]
	assert.Equal(t, "#007AFF", att.Color)
	assert.Equal(t, "com.example.app", att.Title)
	assert.Equal(t, "https://apps.apple.com/app/id1234567890", att.TitleLink)
	assert.Equal(t, "🔔 SUBSCRIBED 4.99 USD 💵", att.Text)
	assert.Equal(t, appStoreIconURL, att.FooterIcon)

	require.Len(t, att.Fields, 4)
	assert.Equal(t, SlackField{Title: "Country", Value: ":flag-tr: TUR", Short: true}, att.Fields[2])
	assert.Equal(t, "*Environment:* Production\n*ID:* 2000000123456789\n*Expires Date:* 01.03.2024 15:00:00", att.Footer)
}

func TestSlackFormatter_Format_SkipsEmptyValues(t *testing.T) {
	f := NewSlackFormatter(testSlackConfig())
	req, err := f.Format(context.Background(), sparsePayload())
	require.NoError(t, err)

	var body SlackPayload
	require.NoError(t, json.Unmarshal(req.Body, &body))

	att := body.Attachments[0]
	assert.Len(t, att.Fields, 3)
	assert.NotContains(t, att.Footer, "Environment")
}

func TestSlackFormatter_Format_CountryWithoutCode(t *testing.T) {
	p := testPayload()
	p.Items[2] = core.Item{Name: core.ItemCountry, Value: "XYZ"}

	req, err := NewSlackFormatter(testSlackConfig()).Format(context.Background(), p)
	require.NoError(t, err)
	assert.Contains(t, string(req.Body), `"value":"XYZ"`)
	assert.NotContains(t, string(req.Body), ":flag-")
}

func TestSlackFormatter_ValidateResponse(t *testing.T) {
	f := NewSlackFormatter(testSlackConfig())

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"plain ok", 200, "ok", false},
		{"empty body", 200, "", false},
		{"json ok", 200, `{"ok":true}`, false},
		{"json not ok", 200, `{"ok":false,"error":"channel_not_found"}`, true},
		{"plain error", 200, "invalid_payload", true},
		{"non-2xx", 404, "no_service", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.ValidateResponse(tt.status, []byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// --- Registry ---

func TestNewRegistryFromConfig_OrderAndFiltering(t *testing.T) {
	cfg := &config.Config{
		Telegram: testTelegramConfig(),
		Discord:  config.DiscordConfig{Enabled: false},
		Slack:    testSlackConfig(),
	}

	r := NewRegistryFromConfig(cfg)
	assert.Equal(t, []types.Destination{types.DestinationTelegram, types.DestinationSlack}, r.Enabled())

	_, ok := r.Get(types.DestinationDiscord)
	assert.False(t, ok)

	f, ok := r.Get(types.DestinationSlack)
	require.True(t, ok)
	assert.Equal(t, types.DestinationSlack, f.Destination())
}

func TestRegistry_EnabledOrderIndependentOfRegistration(t *testing.T) {
	r := NewRegistry()
	r.Register(NewSlackFormatter(testSlackConfig()))
	r.Register(NewDiscordFormatter(testDiscordConfig()))
	r.Register(NewTelegramFormatter(testTelegramConfig()))

	assert.Equal(t, types.Destinations, r.Enabled())
}

func TestRegistry_Empty(t *testing.T) {
	assert.Empty(t, NewRegistryFromConfig(&config.Config{}).Enabled())
}
