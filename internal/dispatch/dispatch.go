package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kx0101/scripttester/internal/endpoint"
	"github.com/kx0101/scripttester/internal/models"
	"github.com/kx0101/scripttester/internal/params"
)

const (
	DefaultSource    = "scripttester-cli"
	DefaultUserAgent = "GoogleScriptTester/2.0"
	DefaultTimeout   = 30 * time.Second

	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

type Options struct {
	Client    *http.Client
	Timeout   time.Duration
	Source    string
	UserAgent string
	Headers   http.Header
	Logger    *slog.Logger
	Now       func() time.Time
}

// Dispatcher sends single GET and POST calls to the script web app. It holds
// no per-call state and is safe for concurrent use.
type Dispatcher struct {
	client    *http.Client
	source    string
	userAgent string
	headers   http.Header
	logger    *slog.Logger
	now       func() time.Time
}

type Response struct {
	Payload    json.RawMessage
	StatusCode int
	DurationMs int64
	Sent       any
}

// Outcome converts the response into the shape stored in a result record.
func (r *Response) Outcome() models.Outcome {
	return models.Outcome{
		StatusCode: r.StatusCode,
		DurationMs: r.DurationMs,
		Payload:    r.Payload,
		Sent:       r.Sent,
	}
}

func New(opts Options) *Dispatcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		client = &http.Client{Timeout: timeout}
	}

	d := &Dispatcher{
		client:    client,
		source:    opts.Source,
		userAgent: opts.UserAgent,
		headers:   opts.Headers,
		logger:    opts.Logger,
		now:       opts.Now,
	}

	if d.source == "" {
		d.source = DefaultSource
	}

	if d.userAgent == "" {
		d.userAgent = DefaultUserAgent
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "dispatch")

	if d.now == nil {
		d.now = time.Now
	}

	return d
}

func (d *Dispatcher) Source() string {
	return d.source
}

func (d *Dispatcher) SendGet(ctx context.Context, baseURL string, p map[string]string, ep endpoint.Endpoint) (*Response, error) {
	enriched := make(map[string]string, len(p)+4)
	maps.Copy(enriched, p)
	enriched["test"] = "true"
	enriched["timestamp"] = d.timestamp()
	enriched["source"] = d.source
	enriched["endpoint"] = ep.Name()

	target, err := url.Parse(endpoint.BuildURL(baseURL, ep))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	params.Encode(target, enriched)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	resp, err := d.do(req, ep)
	if err != nil {
		return nil, err
	}

	resp.Sent = enriched
	return resp, nil
}

func (d *Dispatcher) SendPost(ctx context.Context, baseURL string, body map[string]any, ep endpoint.Endpoint) (*Response, error) {
	enriched := make(map[string]any, len(body)+4)
	maps.Copy(enriched, body)
	enriched["test"] = true
	enriched["timestamp"] = d.timestamp()
	enriched["source"] = d.source
	enriched["endpoint"] = ep.Name()

	payload, err := json.Marshal(enriched)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("encoding body: %w", err)}
	}

	target := endpoint.BuildURL(baseURL, ep)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	resp, err := d.do(req, ep)
	if err != nil {
		return nil, err
	}

	resp.Sent = enriched
	return resp, nil
}

func (d *Dispatcher) do(req *http.Request, ep endpoint.Endpoint) (*Response, error) {
	for k, values := range d.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Content-Type", "application/json")

	d.logger.Debug("sending request", "method", req.Method, "endpoint", ep.Name(), "url", req.URL.String())

	start := d.now()
	resp, err := d.client.Do(req)
	latencyMs := max(d.now().Sub(start).Milliseconds(), 0)

	if err != nil {
		d.logger.Debug("transport failure", "method", req.Method, "endpoint", ep.Name(), "error", err)
		return nil, &Error{Kind: KindTransport, DurationMs: latencyMs, Err: err}
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.logger.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Debug("http failure", "method", req.Method, "endpoint", ep.Name(), "status", resp.StatusCode)
		return nil, &Error{
			Kind:       KindHTTP,
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			DurationMs: latencyMs,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, DurationMs: latencyMs, Err: fmt.Errorf("reading response: %w", err)}
	}

	var payload json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode, DurationMs: latencyMs, Err: err}
	}

	d.logger.Debug("request completed", "method", req.Method, "endpoint", ep.Name(), "status", resp.StatusCode, "latency_ms", latencyMs)

	return &Response{
		Payload:    payload,
		StatusCode: resp.StatusCode,
		DurationMs: latencyMs,
	}, nil
}

func (d *Dispatcher) timestamp() string {
	return d.now().UTC().Format(isoMillis)
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}

	return text
}
