package core

import (
	"fmt"
	"time"

	"iapnotify/internal/appstore"
)

// Item names. Formatters key their decorations off these.
const (
	ItemEvent       = "Event"
	ItemProduct     = "Product"
	ItemCountry     = "Country"
	ItemPrice       = "Price"
	ItemEnvironment = "Environment"
	ItemID          = "ID"
	ItemType        = "Type"
	ItemExpiresDate = "Expires Date"
)

// Item is one labelled line of a notification. Items with an empty Value are
// never rendered.
type Item struct {
	Name  string
	Value string
	// Country holds the ISO 3166-1 alpha-2 code for the Country item so each
	// formatter can render its own flag. Empty when no flag applies.
	Country string
}

// DisplayPayload is the destination-independent rendering of one
// notification. It is built once per request and shared read-only by every
// formatter.
type DisplayPayload struct {
	Title            string
	Items            []Item
	SubItems         []Item
	AppAppleID       string
	BundleID         string
	NotificationType string
}

// DisplayOptions controls date rendering.
type DisplayOptions struct {
	Location   *time.Location
	DateFormat string
}

// BuildDisplayPayload derives the display payload from a normalized event.
func BuildDisplayPayload(event *appstore.NormalizedEvent, opts DisplayOptions) *DisplayPayload {
	tx := event.TransactionInfo()
	price := FormatPrice(tx.Raw("price"), tx.String("currency"))
	storefront := tx.String("storefront")

	return &DisplayPayload{
		Title: fmt.Sprintf("🔔 %s %s 💵", event.NotificationType, price),
		Items: []Item{
			{Name: ItemEvent, Value: event.Subtype},
			{Name: ItemProduct, Value: tx.String("productId")},
			{Name: ItemCountry, Value: storefront, Country: CountryCode(storefront)},
			{Name: ItemPrice, Value: price},
		},
		SubItems: []Item{
			{Name: ItemEnvironment, Value: tx.String("environment")},
			{Name: ItemID, Value: tx.String("originalTransactionId")},
			{Name: ItemType, Value: tx.String("type")},
			{Name: ItemExpiresDate, Value: FormatDate(tx.Raw("expiresDate"), opts.Location, opts.DateFormat)},
		},
		AppAppleID:       event.AppAppleID(),
		BundleID:         event.BundleID(),
		NotificationType: event.NotificationType,
	}
}

// Visible returns the items that carry a value, preserving order.
func Visible(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Value != "" {
			out = append(out, it)
		}
	}
	return out
}

// AppStoreURL returns the public App Store page for the app, or "" when the
// Apple ID is unknown.
func (p *DisplayPayload) AppStoreURL() string {
	if p.AppAppleID == "" {
		return ""
	}
	return "https://apps.apple.com/app/id" + p.AppAppleID
}
