package core

import (
	"encoding/json"
	"testing"
	"time"

	"iapnotify/internal/appstore"
)

func sampleEvent() *appstore.NormalizedEvent {
	return &appstore.NormalizedEvent{
		NotificationType: "SUBSCRIBED",
		Subtype:          "INITIAL_BUY",
		Data: appstore.Claims{
			"appAppleId": json.Number("1234567890"),
			"bundleId":   "com.example.app",
			"transactionInfo": appstore.Claims{
				"originalTransactionId": "2000000123456789",
				"productId":             "pro.monthly",
				"storefront":            "TUR",
				"price":                 json.Number("4990"),
				"currency":              "USD",
				"environment":           "Production",
				"type":                  "Auto-Renewable Subscription",
				"expiresDate":           json.Number("1709294400000"),
			},
		},
	}
}

func TestBuildDisplayPayload(t *testing.T) {
	p := BuildDisplayPayload(sampleEvent(), DisplayOptions{Location: time.UTC, DateFormat: "2006-01-02"})

	if p.Title != "🔔 SUBSCRIBED 4.99 USD 💵" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.BundleID != "com.example.app" || p.AppAppleID != "1234567890" {
		t.Errorf("identifiers = %q / %q", p.BundleID, p.AppAppleID)
	}
	if p.AppStoreURL() != "https://apps.apple.com/app/id1234567890" {
		t.Errorf("AppStoreURL = %q", p.AppStoreURL())
	}

	wantItems := []Item{
		{Name: ItemEvent, Value: "INITIAL_BUY"},
		{Name: ItemProduct, Value: "pro.monthly"},
		{Name: ItemCountry, Value: "TUR", Country: "TR"},
		{Name: ItemPrice, Value: "4.99 USD"},
	}
	if len(p.Items) != len(wantItems) {
		t.Fatalf("len(Items) = %d, want %d", len(p.Items), len(wantItems))
	}
	for i, want := range wantItems {
		if p.Items[i] != want {
			t.Errorf("Items[%d] = %+v, want %+v", i, p.Items[i], want)
		}
	}

	wantSub := []Item{
		{Name: ItemEnvironment, Value: "Production"},
		{Name: ItemID, Value: "2000000123456789"},
		{Name: ItemType, Value: "Auto-Renewable Subscription"},
		{Name: ItemExpiresDate, Value: "2024-03-01"},
	}
	for i, want := range wantSub {
		if p.SubItems[i] != want {
			t.Errorf("SubItems[%d] = %+v, want %+v", i, p.SubItems[i], want)
		}
	}
}

func TestBuildDisplayPayload_NoTransactionInfo(t *testing.T) {
	event := &appstore.NormalizedEvent{NotificationType: "TEST", Data: appstore.Claims{}}
	p := BuildDisplayPayload(event, DisplayOptions{})

	if p.Title != "🔔 TEST  💵" {
		t.Errorf("Title = %q", p.Title)
	}
	if got := Visible(p.Items); len(got) != 0 {
		t.Errorf("Visible(Items) = %+v, want none", got)
	}
	if got := Visible(p.SubItems); len(got) != 0 {
		t.Errorf("Visible(SubItems) = %+v, want none", got)
	}
	if p.AppStoreURL() != "" {
		t.Errorf("AppStoreURL = %q, want empty", p.AppStoreURL())
	}
}

func TestVisible_PreservesOrder(t *testing.T) {
	items := []Item{{Name: "a", Value: "1"}, {Name: "b"}, {Name: "c", Value: "3"}}
	got := Visible(items)
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("Visible = %+v", got)
	}
}
