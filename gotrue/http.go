package gotrue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	ctxlog "github.com/ErlanBelekov/gotrue-go/internal/log"
	"github.com/ErlanBelekov/gotrue-go/internal/requestid"
)

// Transport performs a single HTTP round trip. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient executes requests against the auth API. It is immutable after
// construction and safe for concurrent use if its Transport is.
type HTTPClient struct {
	baseURL    string
	headers    map[string]string
	transport  Transport
	serializer Serializer
	logger     *slog.Logger
	metrics    *Metrics
}

type Option func(*HTTPClient)

func WithLogger(logger *slog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger.With("component", "gotrue_http")
	}
}

// WithMetrics observes every request in m. See NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// NewHTTPClient returns a client for baseURL. headers are sent with every
// request unless a call overrides the same key; the map is copied.
func NewHTTPClient(baseURL string, headers map[string]string, transport Transport, serializer Serializer, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		headers:    maps.Clone(headers),
		transport:  transport,
		serializer: serializer,
		logger:     slog.New(slog.DiscardHandler),
	}
	if c.headers == nil {
		c.headers = map[string]string{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTransport returns the default transport. Redirects are not followed so a
// 3xx answer surfaces as an *HTTPError like any other non-2xx status.
func NewTransport(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Execute sends method baseURL+path with body serialized as JSON (nil sends no
// body) and returns the raw response body, nil if the response had none.
// A non-2xx status returns *HTTPError. Transport errors are returned unchanged.
func (c *HTTPClient) Execute(ctx context.Context, method, path string, body any, headers map[string]string) (*string, error) {
	start := time.Now()

	var bodyReader io.Reader
	if body != nil {
		payload, err := c.serializer.Serialize(body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Call headers go on last so they win on the wire even when a default
	// differs from them only by case.
	merged := MergeHeaders(c.headers, headers)
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		if _, ok := headers[k]; !ok {
			req.Header.Set(k, merged[k])
		}
	}
	for _, k := range slices.Sorted(maps.Keys(headers)) {
		req.Header.Set(k, headers[k])
	}
	if id := requestid.FromContext(ctx); id != "" && req.Header.Get(requestid.Header) == "" {
		req.Header.Set(requestid.Header, id)
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		c.record(ctx, method, path, "error", start)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(ctx, method, path, "error", start)
		return nil, err
	}

	c.record(ctx, method, path, strconv.Itoa(resp.StatusCode), start)
	return classify(resp.StatusCode, raw)
}

// MergeHeaders returns defaults overlaid with call. A call entry replaces the
// default with the same (case-sensitive) key. Neither input is modified.
func MergeHeaders(defaults, call map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(call))
	maps.Copy(merged, defaults)
	maps.Copy(merged, call)
	return merged
}

// classify is shared by every verb: only [200, 300) is a success.
func classify(status int, raw []byte) (*string, error) {
	var body *string
	if len(raw) > 0 {
		s := string(raw)
		body = &s
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &HTTPError{Status: status, Body: body}
	}
	return body, nil
}

func (c *HTTPClient) record(ctx context.Context, method, path, status string, start time.Time) {
	elapsed := time.Since(start)

	op := ctxlog.OperationFromContext(ctx)
	if op == "" {
		op = "other"
	}
	c.metrics.observe(op, method, status, elapsed.Seconds())

	c.logger.DebugContext(ctx, "auth api request",
		"method", method,
		"path", path,
		"status", status,
		"duration", elapsed,
	)
}

// Do executes the request and decodes the response body into R, which is
// chosen by the caller. An empty success body is a *DeserializationError.
func Do[R any](ctx context.Context, c *HTTPClient, method, path string, body any, headers map[string]string) (*R, error) {
	raw, err := c.Execute(ctx, method, path, body, headers)
	if err != nil {
		return nil, err
	}

	var out R
	target := strings.TrimPrefix(fmt.Sprintf("%T", &out), "*")
	if raw == nil {
		return nil, &DeserializationError{Target: target, Err: errEmptyBody}
	}

	if err := c.serializer.Deserialize(*raw, &out); err != nil {
		var de *DeserializationError
		if !errors.As(err, &de) {
			err = &DeserializationError{Target: target, Err: err}
		}
		return nil, err
	}
	return &out, nil
}

// Send executes a request whose response body, if any, is ignored.
func Send(ctx context.Context, c *HTTPClient, method, path string, body any, headers map[string]string) error {
	_, err := c.Execute(ctx, method, path, body, headers)
	return err
}
