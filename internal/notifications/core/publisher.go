package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"iapnotify/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// FailureRecord is the message published for a delivery that exhausted its
// retries. It carries enough of the rendered notification for an operator to
// replay or inspect it.
type FailureRecord struct {
	RequestID   string            `json:"request_id,omitempty"`
	Destination types.Destination `json:"destination"`
	Title       string            `json:"title"`
	BundleID    string            `json:"bundle_id,omitempty"`
	AppAppleID  string            `json:"app_apple_id,omitempty"`
	Attempts    int               `json:"attempts"`
	StatusCode  int               `json:"status_code,omitempty"`
	Error       string            `json:"error"`
	FailedAt    time.Time         `json:"failed_at"`
}

// NewFailureRecord builds the record for a failed outcome.
func NewFailureRecord(requestID string, p *DisplayPayload, o Outcome, now time.Time) FailureRecord {
	rec := FailureRecord{
		RequestID:   requestID,
		Destination: o.Destination,
		Attempts:    o.Attempts,
		StatusCode:  o.StatusCode,
		FailedAt:    now.UTC(),
	}
	if p != nil {
		rec.Title = p.Title
		rec.BundleID = p.BundleID
		rec.AppAppleID = p.AppAppleID
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}

// FailurePublisher receives failed deliveries.
type FailurePublisher interface {
	PublishFailure(ctx context.Context, rec FailureRecord) error
}

// SQSFailurePublisher sends FailureRecords to an SQS queue.
type SQSFailurePublisher struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
}

// NewSQSFailurePublisher creates a publisher targeting queueURL.
func NewSQSFailurePublisher(client SQSSender, queueURL string, logger types.Logger) *SQSFailurePublisher {
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &SQSFailurePublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// PublishFailure serializes rec and sends it to the queue. The destination is
// attached as a message attribute so consumers can filter without parsing.
func (p *SQSFailurePublisher) PublishFailure(ctx context.Context, rec FailureRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failure publisher: failed to marshal record: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"destination": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(rec.Destination)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failure publisher: failed to send message to %s: %w", p.queueURL, err)
	}

	p.logger.Info("failed delivery published",
		"destination", string(rec.Destination),
		"attempts", rec.Attempts,
		"request_id", rec.RequestID,
	)
	return nil
}
