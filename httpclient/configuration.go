package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kbukum/repokit/observability"
)

// Configuration declares one endpoint call: where it goes, how it is sent and
// how its body is decoded. A Configuration holds no call state and can be
// executed any number of times, concurrently.
type Configuration[T any] struct {
	// Name labels the call in spans and metrics (e.g. "repos.list").
	Name string
	// Path is relative to the adapter's BaseURL.
	Path string
	// Method is the HTTP method. Defaults to GET.
	Method string
	// Query holds URL query parameters. Shared, so never mutate it after
	// the configuration is built.
	Query map[string]string
	// Content is the request body.
	Content Content
	// Decode turns a success body into T. Nil means the status alone signals
	// success and the zero T is returned.
	Decode func([]byte) (T, error)
}

// Request returns the transport request described by the configuration.
func (c Configuration[T]) Request() Request {
	method := c.Method
	if method == "" {
		method = http.MethodGet
	}
	return Request{Method: method, Path: c.Path, Query: c.Query, Content: c.Content}
}

// Execute runs cfg against the adapter and blocks until it resolves.
//
// Errors are *Error values of kind KindRequest, KindTransport, KindHTTP or
// KindDecode; decode failures also unwrap to *DecodeError.
func Execute[T any](ctx context.Context, a *Adapter, cfg Configuration[T]) (T, error) {
	var zero T
	op := cfg.Name
	if op == "" {
		op = observability.SpanHTTPRequest
	}
	req := cfg.Request()

	ctx, span := observability.StartSpan(ctx, op)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrHTTPMethod, req.Method)
	observability.SetSpanAttribute(ctx, observability.AttrHTTPPath, req.Path)

	start := time.Now()
	v, err := execute(ctx, a, req, cfg.Decode)
	status := "ok"
	if err != nil {
		status = errorStatus(err)
		observability.SetSpanError(ctx, err)
	}
	a.metrics.RecordCall(ctx, a.Name(), op, status, time.Since(start))

	if err != nil {
		return zero, err
	}
	return v, nil
}

func execute[T any](ctx context.Context, a *Adapter, req Request, decode func([]byte) (T, error)) (T, error) {
	var zero T
	resp, err := a.Do(ctx, req)
	if resp != nil {
		observability.SetSpanAttribute(ctx, observability.AttrHTTPStatus, resp.StatusCode)
	}
	if err != nil {
		return zero, err
	}
	if decode == nil {
		return zero, nil
	}
	v, err := decode(resp.Body)
	if err != nil {
		return zero, wrapDecode(err, resp.StatusCode, resp.Body)
	}
	return v, nil
}

func errorStatus(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return "error"
}

// Result is the outcome of an asynchronous call.
type Result[T any] struct {
	Value T
	Err   error
}

// Go runs cfg in its own goroutine. The returned channel receives exactly
// one Result and is then closed.
func Go[T any](ctx context.Context, a *Adapter, cfg Configuration[T]) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		v, err := Execute(ctx, a, cfg)
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}

// Perform runs cfg in its own goroutine and invokes exactly one of onError
// or onSuccess. If ctx is cancelled before the call resolves, neither
// callback runs. Deadline expiry is reported through onError.
func Perform[T any](ctx context.Context, a *Adapter, cfg Configuration[T], onError func(error), onSuccess func(T)) {
	go func() {
		v, err := Execute(ctx, a, cfg)
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		if err != nil {
			onError(err)
			return
		}
		onSuccess(v)
	}()
}

// DecodeJSON returns a decoder that unmarshals the body into T with
// encoding/json. Empty bodies decode to the zero T.
func DecodeJSON[T any]() func([]byte) (T, error) {
	return func(body []byte) (T, error) {
		var v T
		if len(body) == 0 {
			return v, nil
		}
		if err := json.Unmarshal(body, &v); err != nil {
			var te *json.UnmarshalTypeError
			if errors.As(err, &te) {
				return v, NewDecodeError(te.Field, err)
			}
			return v, NewDecodeError("", err)
		}
		return v, nil
	}
}
