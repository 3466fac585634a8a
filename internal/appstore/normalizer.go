package appstore

import (
	"context"
	"fmt"
	"strings"

	"iapnotify/internal/types"
)

// Normalizer turns an inbound envelope into a NormalizedEvent.
type Normalizer struct {
	logger types.Logger
}

// NewNormalizer creates a Normalizer. A nil logger discards output.
func NewNormalizer(logger types.Logger) *Normalizer {
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Normalizer{logger: logger}
}

// nestedTokens lists the signed fields in the data object and where their
// decoded claims are attached.
var nestedTokens = []struct {
	signed  string
	decoded string
}{
	{FieldSignedTransactionInfo, FieldTransactionInfo},
	{FieldSignedRenewalInfo, FieldRenewalInfo},
}

// Normalize decodes the envelope token and its nested transaction and renewal
// tokens.
//
// A nested token is replaced by its decoded claims only when those claims
// carry a non-empty originalTransactionId; otherwise the raw field is kept and
// nothing is attached. A nested token that cannot be decoded fails the whole
// notification.
func (n *Normalizer) Normalize(ctx context.Context, env RawEnvelope) (*NormalizedEvent, error) {
	log := types.LoggerFromContext(ctx, n.logger)

	if strings.TrimSpace(env.SignedPayload) == "" {
		return nil, types.NewAppError(types.ErrCodePayloadInvalid, "signedPayload is missing", nil)
	}

	outer, err := DecodeToken(env.SignedPayload)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodePayloadInvalid, "failed to decode signedPayload", err)
	}

	event := &NormalizedEvent{
		NotificationType: outer.String("notificationType"),
		Subtype:          outer.String("subtype"),
		Data:             outer.Map("data"),
	}
	if event.Data == nil {
		event.Data = Claims{}
	}

	for _, nt := range nestedTokens {
		signed, _ := event.Data[nt.signed].(string)
		if signed == "" {
			continue
		}

		claims, err := DecodeToken(signed)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", nt.signed, err)
		}
		log.Debug("decoded nested token",
			"field", nt.signed,
			"claims", claims,
			"signature_verified", false,
		)

		if claims.String(FieldOriginalTransactionID) == "" {
			continue
		}
		event.Data[nt.decoded] = claims
		delete(event.Data, nt.signed)
	}

	log.Debug("normalized notification",
		"notification_type", event.NotificationType,
		"subtype", event.Subtype,
		"data", event.Data,
		"signature_verified", false,
	)

	return event, nil
}
