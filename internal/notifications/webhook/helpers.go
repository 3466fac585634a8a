package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"iapnotify/internal/types"
)

// appStoreIconURL is the App Store logo used as Discord thumbnail and Slack
// footer icon.
const appStoreIconURL = "https://upload.wikimedia.org/wikipedia/commons/thumb/6/67/App_Store_%28iOS%29.svg/512px-App_Store_%28iOS%29.svg.png"

// maxErrorBodyLen bounds response bodies quoted in errors and logs.
const maxErrorBodyLen = 512

// truncateBody renders a response body for error messages.
func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyLen {
		return s[:maxErrorBodyLen] + "..."
	}
	return s
}

// newJSONRequest marshals body into a POST DeliveryRequest.
func newJSONRequest(dest types.Destination, url string, body any) (*DeliveryRequest, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeDeliveryFormat,
			fmt.Sprintf("%s: failed to marshal payload", dest), err)
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &DeliveryRequest{
		Destination: dest,
		Method:      http.MethodPost,
		URL:         url,
		Header:      header,
		Body:        data,
	}, nil
}
