package core

import "strings"

// FlagKind selects how a country flag is spelled for a destination.
type FlagKind int

const (
	// FlagCodepointPair renders two regional-indicator symbols (Telegram).
	FlagCodepointPair FlagKind = iota
	// FlagShortcodeUnderscore renders ":flag_tr:" (Discord).
	FlagShortcodeUnderscore
	// FlagShortcodeHyphen renders ":flag-tr:" (Slack).
	FlagShortcodeHyphen
)

// regionalIndicatorOffset maps 'A' onto U+1F1E6.
const regionalIndicatorOffset = 0x1F1E6 - 'A'

// FlagGlyph renders the flag for a two-letter country code. Empty or invalid
// codes yield "".
func FlagGlyph(countryCode string, kind FlagKind) string {
	if len(countryCode) != 2 || !isASCIILetters(countryCode) {
		return ""
	}

	switch kind {
	case FlagShortcodeUnderscore:
		return ":flag_" + strings.ToLower(countryCode) + ":"
	case FlagShortcodeHyphen:
		return ":flag-" + strings.ToLower(countryCode) + ":"
	default:
		upper := strings.ToUpper(countryCode)
		return string([]rune{
			rune(upper[0]) + regionalIndicatorOffset,
			rune(upper[1]) + regionalIndicatorOffset,
		})
	}
}

// CountryLabel renders the Country item value with its flag prefix, falling
// back to the bare storefront when no flag applies.
func CountryLabel(it Item, kind FlagKind) string {
	flag := FlagGlyph(it.Country, kind)
	if flag == "" {
		return it.Value
	}
	return flag + " " + it.Value
}
