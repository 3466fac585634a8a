// Package webhook implements outbound delivery to chat destinations.
//
// Each destination (Telegram, Discord, Slack) has a Formatter that renders the
// shared DisplayPayload into its own JSON schema. The DeliveryClient sends the
// rendered request and retries rate-limited or unreachable destinations with
// exponential backoff, honouring Retry-After.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"iapnotify/internal/notifications/core"
	"iapnotify/internal/types"
)

// maxResponseBodyRead limits how much of a response body is read.
const maxResponseBodyRead = 4096

// maxRetryAfter caps a server-requested wait.
const maxRetryAfter = time.Hour

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// contextSleep is the production SleepFunc.
func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// response is the part of an HTTP response the retry loop inspects.
type response struct {
	statusCode int
	header     http.Header
	body       []byte
}

// errUpstreamStatus marks 429/5xx responses as breaker failures.
var errUpstreamStatus = errors.New("upstream returned failure status")

// DeliveryClient sends DeliveryRequests with retry on 429 and network errors.
// Each Send call owns its retry state, so a client is safe for concurrent use.
type DeliveryClient struct {
	httpClient *http.Client
	policy     core.RetryPolicy
	userAgent  string
	logger     types.Logger
	clock      types.Clock
	sleep      SleepFunc
	breakers   map[types.Destination]*gobreaker.CircuitBreaker[*response]
}

// ClientOption is a functional option for configuring a DeliveryClient.
type ClientOption func(*DeliveryClient)

// WithSleepFunc overrides the wait between retries.
// This is intended for testing to avoid real delays.
func WithSleepFunc(fn SleepFunc) ClientOption {
	return func(c *DeliveryClient) {
		c.sleep = fn
	}
}

// WithClock overrides the clock used to resolve HTTP-date Retry-After values.
func WithClock(clock types.Clock) ClientOption {
	return func(c *DeliveryClient) {
		c.clock = clock
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *DeliveryClient) {
		c.userAgent = ua
	}
}

// WithCircuitBreakers guards every destination with its own breaker. A
// destination that keeps failing is short-circuited until the breaker's
// timeout elapses.
func WithCircuitBreakers() ClientOption {
	return func(c *DeliveryClient) {
		c.breakers = make(map[types.Destination]*gobreaker.CircuitBreaker[*response], len(types.Destinations))
		for _, d := range types.Destinations {
			c.breakers[d] = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
				Name:        "delivery-" + string(d),
				MaxRequests: 1,
				Interval:    60 * time.Second,
				Timeout:     30 * time.Second,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures > 5
				},
				IsSuccessful: func(err error) bool {
					return err == nil
				},
			})
		}
	}
}

// NewDeliveryClient creates a DeliveryClient. A nil httpClient gets a default
// client with a 10s timeout.
func NewDeliveryClient(httpClient *http.Client, policy core.RetryPolicy, logger types.Logger, opts ...ClientOption) *DeliveryClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	c := &DeliveryClient{
		httpClient: httpClient,
		policy:     policy,
		logger:     logger,
		clock:      types.RealClock{},
		sleep:      contextSleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send delivers req, retrying as follows:
//   - 2xx: success.
//   - 429 with retries remaining: wait Retry-After (seconds or HTTP-date) when
//     present, otherwise the current backoff delay.
//   - Network error with retries remaining: wait the current backoff delay.
//   - Anything else, or retries exhausted: a delivery AppError.
//
// The backoff delay starts at the policy's BaseDelay and grows by
// BackoffFactor after every retry, whether or not Retry-After was used.
// The returned Result is never nil.
func (c *DeliveryClient) Send(ctx context.Context, req *DeliveryRequest) (*Result, error) {
	log := types.LoggerFromContext(ctx, c.logger).With("destination", string(req.Destination))
	res := &Result{}

	retriesRemaining := c.policy.MaxRetries
	delay := c.policy.BaseDelay

	for {
		res.Attempts++
		resp, err := c.attempt(ctx, req)

		var wait time.Duration
		switch {
		case err != nil && isBreakerOpen(err):
			return res, types.NewAppError(types.ErrCodeDeliveryCircuitOpen,
				fmt.Sprintf("%s: circuit breaker is open", req.Destination), err)

		case err != nil:
			if ctx.Err() != nil {
				return res, types.NewAppError(types.ErrCodeDeliveryFailed,
					fmt.Sprintf("%s: request cancelled", req.Destination), err)
			}
			if retriesRemaining <= 0 {
				return res, types.NewAppError(types.ErrCodeDeliveryFailed,
					fmt.Sprintf("%s: request failed after %d attempts", req.Destination, res.Attempts), err)
			}
			wait = delay
			log.Warn("delivery network error, retrying",
				"attempt", res.Attempts,
				"wait_ms", wait.Milliseconds(),
				"retries_remaining", retriesRemaining,
				"error", err.Error(),
			)

		case resp.statusCode >= 200 && resp.statusCode < 300:
			res.StatusCode = resp.statusCode
			res.Body = resp.body
			return res, nil

		case resp.statusCode == http.StatusTooManyRequests:
			res.StatusCode = resp.statusCode
			if retriesRemaining <= 0 {
				return res, statusError(types.ErrCodeDeliveryRateLimited, req.Destination, resp,
					fmt.Sprintf("rate limited after %d attempts", res.Attempts))
			}
			wait = delay
			if ra, ok := parseRetryAfter(resp.header.Get("Retry-After"), c.clock); ok {
				wait = ra
			}
			log.Warn("delivery rate limited (429), retrying",
				"attempt", res.Attempts,
				"retry_after_ms", wait.Milliseconds(),
				"retries_remaining", retriesRemaining,
			)

		default:
			res.StatusCode = resp.statusCode
			return res, statusError(types.ErrCodeDeliveryFailed, req.Destination, resp,
				fmt.Sprintf("destination returned %d", resp.statusCode))
		}

		if err := c.sleep(ctx, wait); err != nil {
			return res, types.NewAppError(types.ErrCodeDeliveryFailed,
				fmt.Sprintf("%s: retry wait cancelled", req.Destination), err)
		}
		retriesRemaining--
		res.Retries++
		delay = core.CalculateNextRetry(c.policy, res.Retries)
	}
}

// attempt performs one HTTP round trip, through the destination's breaker
// when breakers are enabled. A non-nil response is returned for every status
// code; err is non-nil only for transport failures or an open breaker.
func (c *DeliveryClient) attempt(ctx context.Context, req *DeliveryRequest) (*response, error) {
	do := func() (*response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		for k, vs := range req.Header {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}
		if httpReq.Header.Get("Content-Type") == "" {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		if c.userAgent != "" {
			httpReq.Header.Set("User-Agent", c.userAgent)
		}
		if reqID := types.GetRequestID(ctx); reqID != "" {
			httpReq.Header.Set("X-Request-Id", reqID)
		}

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBodyRead))
		r := &response{statusCode: httpResp.StatusCode, header: httpResp.Header, body: body}
		if r.statusCode == http.StatusTooManyRequests || r.statusCode >= 500 {
			return r, errUpstreamStatus
		}
		return r, nil
	}

	cb := c.breakers[req.Destination]
	var (
		r   *response
		err error
	)
	if cb != nil {
		r, err = cb.Execute(do)
	} else {
		r, err = do()
	}
	if r != nil {
		return r, nil
	}
	return nil, err
}

func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// statusError builds a delivery AppError carrying the status code and a
// truncated response body.
func statusError(code types.ErrorCode, dest types.Destination, resp *response, msg string) *types.AppError {
	body := truncateBody(resp.body)
	if body != "" {
		msg += ": " + body
	}
	return types.NewAppError(code, fmt.Sprintf("%s: %s", dest, msg), nil).WithDetails(map[string]any{
		"status_code": resp.statusCode,
		"body":        body,
	})
}

// parseRetryAfter reads a Retry-After header as delta-seconds or an HTTP-date.
// It reports false when the header is absent or unparseable. Waits are
// clamped to [0, maxRetryAfter].
func parseRetryAfter(header string, clock types.Clock) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(header, 64)
	if err == nil && (math.IsNaN(seconds) || math.IsInf(seconds, 0)) {
		return 0, false
	}
	// Out-of-range values come back with ErrRange as ±Inf or 0 and are clamped.
	if err == nil || errors.Is(err, strconv.ErrRange) {
		switch {
		case seconds <= 0:
			return 0, true
		case seconds >= maxRetryAfter.Seconds():
			return maxRetryAfter, true
		}
		return time.Duration(seconds * float64(time.Second)), true
	}

	if t, err := http.ParseTime(header); err == nil {
		delay := t.Sub(clock.Now())
		if delay < 0 {
			delay = 0
		}
		return min(delay, maxRetryAfter), true
	}

	return 0, false
}
