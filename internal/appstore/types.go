// Package appstore decodes App Store Server Notifications (V2).
//
// Apple posts a JSON envelope whose signedPayload is a compact JWS. The payload
// claims carry a data object which in turn holds two more JWS strings
// (signedTransactionInfo and signedRenewalInfo). This package decodes all three
// structurally. Signatures are NOT verified.
package appstore

import (
	"encoding/json"
	"strconv"
)

// RawEnvelope is the inbound request body.
type RawEnvelope struct {
	SignedPayload string `json:"signedPayload"`
}

// Claims is the decoded JSON object carried in a token's payload segment.
// Numbers are kept as json.Number so values round-trip exactly.
type Claims map[string]any

// String returns the value at key as a string. Numbers are rendered in their
// original textual form; anything else yields "".
func (c Claims) String(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Map returns the nested object at key, or nil.
func (c Claims) Map(key string) Claims {
	switch v := c[key].(type) {
	case Claims:
		return v
	case map[string]any:
		return Claims(v)
	default:
		return nil
	}
}

// Raw returns the untyped value at key.
func (c Claims) Raw(key string) any {
	if c == nil {
		return nil
	}
	return c[key]
}

// Field names in the notification data object.
const (
	FieldSignedTransactionInfo = "signedTransactionInfo"
	FieldSignedRenewalInfo     = "signedRenewalInfo"
	FieldTransactionInfo       = "transactionInfo"
	FieldRenewalInfo           = "renewalInfo"
	FieldOriginalTransactionID = "originalTransactionId"
	FieldAppAppleID            = "appAppleId"
	FieldBundleID              = "bundleId"
)

// NormalizedEvent is the decoded notification with its nested tokens replaced
// by their claims.
type NormalizedEvent struct {
	NotificationType string
	Subtype          string
	Data             Claims
}

// TransactionInfo returns the decoded transaction claims, or nil when the
// notification carried none (or it could not be attached).
func (e *NormalizedEvent) TransactionInfo() Claims {
	return e.Data.Map(FieldTransactionInfo)
}

// RenewalInfo returns the decoded renewal claims, or nil.
func (e *NormalizedEvent) RenewalInfo() Claims {
	return e.Data.Map(FieldRenewalInfo)
}

// AppAppleID returns the app's numeric Apple ID as text.
func (e *NormalizedEvent) AppAppleID() string {
	return e.Data.String(FieldAppAppleID)
}

// BundleID returns the app bundle identifier.
func (e *NormalizedEvent) BundleID() string {
	return e.Data.String(FieldBundleID)
}

// Environment returns the transaction environment ("Sandbox" or "Production"),
// or "" when no transaction info was decoded.
func (e *NormalizedEvent) Environment() string {
	return e.TransactionInfo().String("environment")
}
