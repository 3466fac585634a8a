// Package handlers contains the HTTP handlers of the notification receiver.
//
// The notification endpoint is called directly by the App Store. It is not
// authenticated and the signed tokens are decoded without verification.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"iapnotify/internal/api"
	"iapnotify/internal/appstore"
	"iapnotify/internal/config"
	"iapnotify/internal/notifications/core"
	"iapnotify/internal/notifications/dispatch"
	"iapnotify/internal/types"
)

// EventNormalizer decodes an inbound envelope. *appstore.Normalizer
// satisfies it.
type EventNormalizer interface {
	Normalize(ctx context.Context, env appstore.RawEnvelope) (*appstore.NormalizedEvent, error)
}

// Dispatcher delivers a display payload to every enabled destination.
// *dispatch.Coordinator satisfies it.
type Dispatcher interface {
	DispatchAll(ctx context.Context, p *core.DisplayPayload) dispatch.Report
}

// NotificationHandler receives App Store server notifications and fans them
// out to the chat destinations.
type NotificationHandler struct {
	normalizer EventNormalizer
	dispatcher Dispatcher
	metrics    core.DeliveryMetrics
	general    config.GeneralConfig
	logger     types.Logger
}

// NewNotificationHandler creates a NotificationHandler. A nil metrics
// recorder disables notification metrics.
func NewNotificationHandler(
	normalizer EventNormalizer,
	dispatcher Dispatcher,
	metrics core.DeliveryMetrics,
	general config.GeneralConfig,
	logger types.Logger,
) *NotificationHandler {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &NotificationHandler{
		normalizer: normalizer,
		dispatcher: dispatcher,
		metrics:    metrics,
		general:    general,
		logger:     logger,
	}
}

// ServeHTTP handles POST / and POST /notifications.
//
// Any decoding failure answers 500 so the App Store retries the
// notification. Delivery failures do not: once the event is decoded the
// request succeeds, even if some destinations failed.
func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With("request_id", types.GetRequestID(ctx))
	ctx = types.WithLogger(ctx, log)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("request body too large", "limit", tooLarge.Limit)
		} else {
			log.Error("failed to read request body", "error", err.Error())
		}
		api.Text(w, http.StatusInternalServerError, api.MsgInternalError)
		return
	}

	var env appstore.RawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Error("invalid request body", "error", err.Error())
		api.Text(w, http.StatusInternalServerError, api.MsgInternalError)
		return
	}

	event, err := h.normalizer.Normalize(ctx, env)
	if err != nil {
		log.Error("failed to decode notification", "error", err.Error())
		api.Text(w, http.StatusInternalServerError, api.MsgInternalError)
		return
	}

	log = log.With(
		"notification_type", event.NotificationType,
		"subtype", event.Subtype,
		"bundle_id", event.BundleID(),
	)

	if event.Environment() == types.EnvironmentSandbox && !h.general.AllowSandboxNotifications {
		log.Info("sandbox notification ignored")
		api.Text(w, http.StatusOK, api.MsgSandboxDisabled)
		return
	}

	payload := core.BuildDisplayPayload(event, core.DisplayOptions{
		Location:   h.general.Location,
		DateFormat: h.general.DateFormat,
	})

	h.metrics.RecordNotification(ctx, event.NotificationType)

	// Deliveries outlive the inbound connection; only the dispatch timeout
	// bounds them.
	dispatchCtx := context.WithoutCancel(types.WithLogger(ctx, log))
	report := h.dispatcher.DispatchAll(dispatchCtx, payload)

	log.Info("notification processed",
		"destinations", len(report.Outcomes),
		"failed", report.Failed(),
	)
	api.Text(w, http.StatusOK, api.MsgSent)
}
