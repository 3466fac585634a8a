// Package dispatch fans one DisplayPayload out to every enabled destination
// and settles all of them before returning.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"iapnotify/internal/db"
	"iapnotify/internal/notifications/core"
	"iapnotify/internal/notifications/webhook"
	"iapnotify/internal/types"
)

// Sender delivers one rendered request. *webhook.DeliveryClient satisfies it.
type Sender interface {
	Send(ctx context.Context, req *webhook.DeliveryRequest) (*webhook.Result, error)
}

// DeliveryRecorder persists settled outcomes. *db.DeliveryLogRepository
// satisfies it.
type DeliveryRecorder interface {
	Record(ctx context.Context, e *db.DeliveryLogEntry) error
}

// Report is the aggregate of one dispatch. Outcomes are in dispatch order.
type Report struct {
	Outcomes []core.Outcome
}

// Failed returns the number of destinations that did not accept the message.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}

// AllSucceeded reports whether every destination accepted the message.
func (r Report) AllSucceeded() bool {
	return r.Failed() == 0
}

// Coordinator runs one formatter/sender pipeline per enabled destination.
type Coordinator struct {
	registry *webhook.Registry
	sender   Sender
	logger   types.Logger
	clock    types.Clock
	metrics  core.DeliveryMetrics
	log      DeliveryRecorder
	failures core.FailurePublisher
	timeout  time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics records every outcome through m.
func WithMetrics(m core.DeliveryMetrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithDeliveryLog persists every outcome through r.
func WithDeliveryLog(r DeliveryRecorder) Option {
	return func(c *Coordinator) { c.log = r }
}

// WithFailurePublisher publishes failed outcomes through p.
func WithFailurePublisher(p core.FailurePublisher) Option {
	return func(c *Coordinator) { c.failures = p }
}

// WithClock overrides the clock used for failure timestamps.
func WithClock(clock types.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithDispatchTimeout bounds a whole dispatch. Zero leaves it unbounded.
func WithDispatchTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// NewCoordinator creates a Coordinator over the registry's destinations.
func NewCoordinator(registry *webhook.Registry, sender Sender, logger types.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = types.NopLogger{}
	}
	c := &Coordinator{
		registry: registry,
		sender:   sender,
		logger:   logger,
		clock:    types.RealClock{},
		metrics:  core.NopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DispatchAll delivers p to every enabled destination concurrently and
// returns once all of them have settled. A failing destination never cancels
// or fails the others.
func (c *Coordinator) DispatchAll(ctx context.Context, p *core.DisplayPayload) Report {
	deliverCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		deliverCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	dests := c.registry.Enabled()
	outcomes := make([]core.Outcome, len(dests))

	// Not errgroup.WithContext: one destination's failure must not cancel the rest.
	var g errgroup.Group
	for i, dest := range dests {
		g.Go(func() error {
			outcomes[i] = c.deliver(deliverCtx, dest, p)
			// Do not propagate errors to the errgroup; the outcome carries them.
			return nil
		})
	}
	_ = g.Wait() // always nil

	report := Report{Outcomes: outcomes}
	for _, o := range outcomes {
		c.record(ctx, p, o)
	}

	log := types.LoggerFromContext(ctx, c.logger)
	if report.AllSucceeded() {
		log.Info("notification dispatched", "destinations", len(outcomes))
	} else {
		log.Warn("notification dispatched with failures",
			"destinations", len(outcomes),
			"failed", report.Failed(),
		)
	}
	return report
}

// deliver runs one destination pipeline. Panics in a formatter or sender are
// recovered into a failed outcome.
func (c *Coordinator) deliver(ctx context.Context, dest types.Destination, p *core.DisplayPayload) (out core.Outcome) {
	start := c.clock.Now()
	out = core.Outcome{Destination: dest, Status: types.DeliveryStatusFailed}

	defer func() {
		if r := recover(); r != nil {
			out.Err = types.NewAppError(types.ErrCodeInternalUnexpected,
				fmt.Sprintf("%s: pipeline panicked", dest), fmt.Errorf("%v", r))
		}
		out.Duration = c.clock.Now().Sub(start)
	}()

	f, ok := c.registry.Get(dest)
	if !ok {
		out.Err = types.NewAppError(types.ErrCodeDeliveryFailed,
			fmt.Sprintf("%s: no formatter registered", dest), nil)
		return out
	}

	req, err := f.Format(ctx, p)
	if err != nil {
		out.Err = err
		return out
	}

	res, err := c.sender.Send(ctx, req)
	if res != nil {
		out.Attempts = res.Attempts
		out.StatusCode = res.StatusCode
	}
	if err != nil {
		out.Err = err
		return out
	}

	if err := f.ValidateResponse(res.StatusCode, res.Body); err != nil {
		out.Err = err
		return out
	}

	out.Status = types.DeliveryStatusSent
	return out
}

// record feeds an outcome to the side channels. None of them can fail the
// dispatch; errors are logged.
func (c *Coordinator) record(ctx context.Context, p *core.DisplayPayload, o core.Outcome) {
	log := types.LoggerFromContext(ctx, c.logger).With("destination", string(o.Destination))
	requestID := types.GetRequestID(ctx)

	c.metrics.RecordDelivery(ctx, o.Destination, core.ResultOf(o))
	c.metrics.RecordLatency(ctx, o.Destination, o.Duration)
	if o.Attempts > 1 {
		c.metrics.RecordRetries(ctx, o.Destination, o.Attempts-1)
	}

	if o.Succeeded() {
		log.Info("delivery succeeded",
			"attempts", o.Attempts,
			"status_code", o.StatusCode,
			"duration_ms", o.Duration.Milliseconds(),
		)
	} else {
		log.Error("delivery failed",
			"attempts", o.Attempts,
			"status_code", o.StatusCode,
			"error", errString(o.Err),
		)
	}

	if c.log != nil {
		entry := &db.DeliveryLogEntry{
			RequestID:        requestID,
			NotificationType: p.NotificationType,
			BundleID:         p.BundleID,
			Destination:      o.Destination,
			Status:           o.Status,
			Attempts:         o.Attempts,
			StatusCode:       o.StatusCode,
			Error:            errString(o.Err),
			Duration:         o.Duration,
		}
		if err := c.log.Record(ctx, entry); err != nil {
			log.Error("failed to record delivery log", "error", err.Error())
		}
	}

	if c.failures != nil && !o.Succeeded() {
		rec := core.NewFailureRecord(requestID, p, o, c.clock.Now())
		if err := c.failures.PublishFailure(ctx, rec); err != nil {
			log.Error("failed to publish delivery failure", "error", err.Error())
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
