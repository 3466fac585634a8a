package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// FunctionURLHandler is the signature lambda.Start expects for Function URL
// invocations.
type FunctionURLHandler func(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error)

// NewFunctionURLHandler adapts h so the same router serves Lambda Function
// URL events. Only a malformed event returns an error; every HTTP outcome,
// including 500, is returned as a response.
func NewFunctionURLHandler(h http.Handler) FunctionURLHandler {
	return func(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
		r, err := requestFromEvent(ctx, event)
		if err != nil {
			return events.LambdaFunctionURLResponse{}, err
		}

		w := newBufferedResponse()
		h.ServeHTTP(w, r)
		return w.toEvent(), nil
	}
}

func requestFromEvent(ctx context.Context, event events.LambdaFunctionURLRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		body = decoded
	}

	path := event.RawPath
	if path == "" {
		path = "/"
	}
	if event.RawQueryString != "" {
		path += "?" + event.RawQueryString
	}

	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}

	r, err := http.NewRequestWithContext(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range event.Headers {
		r.Header.Set(k, v)
	}
	if len(event.Cookies) > 0 {
		r.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	r.RemoteAddr = event.RequestContext.HTTP.SourceIP
	r.Host = event.RequestContext.DomainName
	r.RequestURI = path
	return r, nil
}

// bufferedResponse collects a handler's response in memory.
type bufferedResponse struct {
	header     http.Header
	body       bytes.Buffer
	statusCode int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header)}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.statusCode == 0 {
		b.statusCode = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) WriteHeader(code int) {
	if b.statusCode == 0 {
		b.statusCode = code
	}
}

func (b *bufferedResponse) toEvent() events.LambdaFunctionURLResponse {
	status := b.statusCode
	if status == 0 {
		status = http.StatusOK
	}

	headers := make(map[string]string, len(b.header))
	for k, vs := range b.header {
		if k == "Set-Cookie" {
			continue
		}
		headers[k] = strings.Join(vs, ",")
	}

	resp := events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    headers,
		Cookies:    b.header.Values("Set-Cookie"),
	}
	if utf8.Valid(b.body.Bytes()) {
		resp.Body = b.body.String()
	} else {
		resp.Body = base64.StdEncoding.EncodeToString(b.body.Bytes())
		resp.IsBase64Encoded = true
	}
	return resp
}
