package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// FormatPrice renders a milli-unit price with its currency: 4990, "USD" becomes
// "4.99 USD". A missing or non-numeric price yields "".
func FormatPrice(price any, currency string) string {
	v, ok := toFloat(price)
	if !ok {
		return ""
	}
	amount := strconv.FormatFloat(v/1000, 'f', -1, 64)
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}

// secondsThreshold separates epoch seconds from epoch milliseconds.
const secondsThreshold = 1e12

// FormatDate renders an epoch timestamp (milliseconds, or seconds when below
// 1e12) in loc using a Go reference layout. Non-numeric strings are parsed as
// RFC 3339 and echoed back unchanged if that fails. Empty input yields "".
func FormatDate(v any, loc *time.Location, layout string) string {
	if loc == nil {
		loc = time.UTC
	}
	if layout == "" {
		layout = time.RFC3339
	}

	ms, ok := toFloat(v)
	if !ok {
		s, _ := v.(string)
		if s == "" {
			return ""
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return s
		}
		return t.In(loc).Format(layout)
	}
	if ms == 0 {
		return ""
	}
	if ms < secondsThreshold {
		ms *= 1000
	}
	return time.UnixMilli(int64(ms)).In(loc).Format(layout)
}

// CountryCode maps an App Store storefront to an ISO 3166-1 alpha-2 code.
// Storefronts are alpha-3 ("TUR"); two-letter values are accepted as-is.
// Anything unrecognised yields "".
func CountryCode(storefront string) string {
	s := strings.TrimSpace(storefront)
	switch len(s) {
	case 2:
		if !isASCIILetters(s) {
			return ""
		}
		return strings.ToUpper(s)
	case 3:
		if !isASCIILetters(s) {
			return ""
		}
		region, err := language.ParseRegion(s)
		if err != nil || !region.IsCountry() {
			return ""
		}
		code := region.String()
		if len(code) != 2 {
			return ""
		}
		return code
	default:
		return ""
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		if n == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
