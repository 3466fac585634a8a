package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"iapnotify/internal/types"
)

// mockSQSSender records all SendMessage calls for verification.
type mockSQSSender struct {
	calls     []*sqs.SendMessageInput
	returnErr error
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.calls = append(m.calls, params)
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &sqs.SendMessageOutput{}, nil
}

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/123/failed-deliveries"

func TestSQSFailurePublisher_PublishFailure(t *testing.T) {
	sender := &mockSQSSender{}
	pub := NewSQSFailurePublisher(sender, testQueueURL, &mockLogger{})

	payload := &DisplayPayload{Title: "🔔 DID_RENEW 4.99 USD 💵", BundleID: "com.example.app", AppAppleID: "42"}
	outcome := Outcome{
		Destination: types.DestinationDiscord,
		Status:      types.DeliveryStatusFailed,
		Attempts:    4,
		StatusCode:  429,
		Err:         errors.New("rate limited"),
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := pub.PublishFailure(context.Background(), NewFailureRecord("req-1", payload, outcome, now)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("expected 1 SQS call, got %d", len(sender.calls))
	}

	call := sender.calls[0]
	if *call.QueueUrl != testQueueURL {
		t.Errorf("QueueUrl = %q", *call.QueueUrl)
	}
	if got := *call.MessageAttributes["destination"].StringValue; got != "discord" {
		t.Errorf("destination attribute = %q", got)
	}

	var sent FailureRecord
	if err := json.Unmarshal([]byte(*call.MessageBody), &sent); err != nil {
		t.Fatalf("failed to unmarshal sent body: %v", err)
	}
	if sent.RequestID != "req-1" || sent.Destination != types.DestinationDiscord {
		t.Errorf("identity fields = %+v", sent)
	}
	if sent.Attempts != 4 || sent.StatusCode != 429 {
		t.Errorf("attempts/status = %d/%d", sent.Attempts, sent.StatusCode)
	}
	if sent.Error != "rate limited" {
		t.Errorf("Error = %q", sent.Error)
	}
	if sent.BundleID != "com.example.app" || sent.Title != payload.Title {
		t.Errorf("payload fields = %+v", sent)
	}
	if !sent.FailedAt.Equal(now) {
		t.Errorf("FailedAt = %v, want %v", sent.FailedAt, now)
	}
}

func TestSQSFailurePublisher_SendError(t *testing.T) {
	sender := &mockSQSSender{returnErr: errors.New("throttled")}
	pub := NewSQSFailurePublisher(sender, testQueueURL, &mockLogger{})

	err := pub.PublishFailure(context.Background(), FailureRecord{Destination: types.DestinationSlack})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "throttled") {
		t.Errorf("error should wrap the SQS cause, got: %v", err)
	}
}

func TestSQSFailurePublisher_NilLogger(t *testing.T) {
	sender := &mockSQSSender{}
	pub := NewSQSFailurePublisher(sender, testQueueURL, nil)

	if err := pub.PublishFailure(context.Background(), FailureRecord{Destination: types.DestinationDiscord}); err != nil {
		t.Fatalf("PublishFailure failed: %v", err)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("expected 1 SendMessage call, got %d", len(sender.calls))
	}
}

func TestNewFailureRecord_NilPayload(t *testing.T) {
	rec := NewFailureRecord("", nil, Outcome{Destination: types.DestinationTelegram}, time.Now())
	if rec.Title != "" || rec.Error != "" {
		t.Errorf("unexpected fields for nil payload/error: %+v", rec)
	}
}
