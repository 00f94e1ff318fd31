package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/kbukum/repokit/logger"
	"github.com/kbukum/repokit/observability"
	"github.com/kbukum/repokit/version"
)

const (
	h2ReadIdleTimeout = 30 * time.Second
	h2PingTimeout     = 15 * time.Second
)

// Adapter owns the single transport session of a client. It is immutable
// after New and safe for concurrent use; every configuration executed
// against it shares its connection pool and challenge resolver.
type Adapter struct {
	httpClient *http.Client
	transport  http.RoundTripper
	config     Config
	static     http.Header
	tokens     TokenSource
	log        *logger.Logger
	metrics    *observability.CallMetrics
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for per-request debug events.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithTransport replaces the base round tripper. The challenge resolver is
// still installed on top of it.
func WithTransport(rt http.RoundTripper) Option {
	return func(a *Adapter) { a.transport = rt }
}

// WithMetrics sets the instruments used to record calls.
func WithMetrics(m *observability.CallMetrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// New creates a new HTTP adapter with the given configuration.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config: cfg,
		static: cfg.Auth.Headers(),
	}
	if t, ok := cfg.Auth.(TokenAuth); ok {
		a.tokens = t.Source
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.transport == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			transport.TLSClientConfig = tlsCfg
		}
		t2, err := http2.ConfigureTransports(transport)
		if err != nil {
			return nil, fmt.Errorf("httpclient: configure http2: %w", err)
		}
		// Ping idle HTTP/2 connections so a dead peer is noticed before the
		// next request is written to it.
		t2.ReadIdleTimeout = h2ReadIdleTimeout
		t2.PingTimeout = h2PingTimeout
		a.transport = transport
	}
	if a.log == nil {
		a.log = logger.WithComponent(cfg.Name)
	}
	if a.metrics == nil {
		m, err := observability.NewCallMetrics(observability.Meter(cfg.Name))
		if err != nil {
			return nil, err
		}
		a.metrics = m
	}

	a.httpClient = &http.Client{
		Transport: newChallengeTransport(a.transport, cfg.Auth),
		Timeout:   cfg.Timeout,
	}
	return a, nil
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// Config returns the adapter's configuration.
func (a *Adapter) Config() Config {
	return a.config
}

// Close releases idle connections held by the session.
func (a *Adapter) Close(_ context.Context) error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// Do executes an HTTP request and returns the complete response. A status
// of 400 or above yields both the response and a KindHTTP *Error.
func (a *Adapter) Do(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := a.executeRequest(ctx, req)

	fields := logger.Fields(
		"method", req.Method,
		"path", req.Path,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if resp != nil {
		fields[logger.FieldStatus] = resp.StatusCode
	}
	if err != nil {
		fields = logger.MergeWithError(fields, err)
	}
	a.log.Debug("http request", fields)

	return resp, err
}

// executeRequest builds and sends the HTTP request.
func (a *Adapter) executeRequest(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := a.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, NewCanceledError(err)
		case ctx.Err() != nil || isTimeout(err):
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}

	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		return result, classErr
	}

	return result, nil
}

// buildRequest constructs an *http.Request from the adapter config and request.
func (a *Adapter) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := a.resolve(req.Path)

	body, contentType, err := req.Content.encode()
	if err != nil {
		return nil, NewRequestError(fmt.Sprintf("encode body: %v", err), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, NewRequestError(fmt.Sprintf("create request: %v", err), err)
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", contentType)
	}

	// Static auth headers always win over caller-supplied ones.
	for k, vs := range a.static {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	if a.tokens != nil {
		token, err := a.tokens.Token(ctx)
		if err != nil {
			var e *Error
			if errors.As(err, &e) {
				return nil, err
			}
			return nil, NewRequestError(fmt.Sprintf("obtain token: %v", err), err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return httpReq, nil
}

// resolve joins the base URL and a configuration path.
func (a *Adapter) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(a.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	t, ok := err.(timeout)
	return ok && t.Timeout()
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
