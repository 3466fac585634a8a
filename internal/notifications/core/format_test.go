package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    any
		currency string
		want     string
	}{
		{"json number", json.Number("4990"), "USD", "4.99 USD"},
		{"float", float64(12990), "EUR", "12.99 EUR"},
		{"whole units", json.Number("1000"), "TRY", "1 TRY"},
		{"zero", json.Number("0"), "USD", "0 USD"},
		{"int", 99, "JPY", "0.099 JPY"},
		{"missing", nil, "USD", ""},
		{"not a number", true, "USD", ""},
		{"no currency", json.Number("4990"), "", "4.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPrice(tt.price, tt.currency); got != tt.want {
				t.Errorf("FormatPrice(%v, %q) = %q, want %q", tt.price, tt.currency, got, tt.want)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	istanbul, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	const layout = "02.01.2006 15:04:05"

	// 2024-03-01T12:00:00Z is 15:00 in Istanbul (UTC+3).
	const ms = 1709294400000

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"milliseconds", json.Number("1709294400000"), "01.03.2024 15:00:00"},
		{"seconds", json.Number("1709294400"), "01.03.2024 15:00:00"},
		{"float ms", float64(ms), "01.03.2024 15:00:00"},
		{"rfc3339", "2024-03-01T12:00:00Z", "01.03.2024 15:00:00"},
		{"unparseable string echoed", "soon", "soon"},
		{"missing", nil, ""},
		{"zero", json.Number("0"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.in, istanbul, layout); got != tt.want {
				t.Errorf("FormatDate(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDate_Defaults(t *testing.T) {
	got := FormatDate(json.Number("1709294400000"), nil, "")
	if got != "2024-03-01T12:00:00Z" {
		t.Errorf("FormatDate with defaults = %q, want UTC RFC 3339", got)
	}
}

func TestCountryCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TUR", "TR"},
		{"USA", "US"},
		{"deu", "DE"},
		{"GBR", "GB"},
		{"TR", "TR"},
		{"us", "US"},
		{"", ""},
		{"T", ""},
		{"T1R", ""},
		{"TURK", ""},
	}

	for _, tt := range tests {
		if got := CountryCode(tt.in); got != tt.want {
			t.Errorf("CountryCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFlagGlyph(t *testing.T) {
	if got := FlagGlyph("TR", FlagCodepointPair); got != "🇹🇷" {
		t.Errorf("codepoint pair = %q, want %q", got, "🇹🇷")
	}
	if got := FlagGlyph("tr", FlagCodepointPair); got != "🇹🇷" {
		t.Errorf("lowercase codepoint pair = %q, want %q", got, "🇹🇷")
	}
	if got := FlagGlyph("TR", FlagShortcodeUnderscore); got != ":flag_tr:" {
		t.Errorf("underscore shortcode = %q", got)
	}
	if got := FlagGlyph("TR", FlagShortcodeHyphen); got != ":flag-tr:" {
		t.Errorf("hyphen shortcode = %q", got)
	}
	for _, bad := range []string{"", "T", "TUR", "1R"} {
		if got := FlagGlyph(bad, FlagCodepointPair); got != "" {
			t.Errorf("FlagGlyph(%q) = %q, want empty", bad, got)
		}
	}
}

func TestCountryLabel(t *testing.T) {
	it := Item{Name: ItemCountry, Value: "TUR", Country: "TR"}
	if got := CountryLabel(it, FlagShortcodeHyphen); got != ":flag-tr: TUR" {
		t.Errorf("CountryLabel = %q", got)
	}

	noFlag := Item{Name: ItemCountry, Value: "XYZ"}
	if got := CountryLabel(noFlag, FlagCodepointPair); got != "XYZ" {
		t.Errorf("CountryLabel without code = %q, want bare storefront", got)
	}
}
