package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/repokit/errors"
	"github.com/kbukum/repokit/logger"
	"github.com/kbukum/repokit/security/tlstest"
)

func newTestAdapter(t *testing.T, baseURL string, auth Authorization, opts ...Option) *Adapter {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	a, err := New(Config{Name: "test", BaseURL: baseURL, Auth: auth, Timeout: 5 * time.Second}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNew_ConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty base url", Config{Auth: Token("t")}},
		{"relative base url", Config{BaseURL: "/api", Auth: Token("t")}},
		{"no host", Config{BaseURL: "https://", Auth: Token("t")}},
		{"no auth", Config{BaseURL: "https://api.github.com"}},
		{"half mtls", Config{BaseURL: "https://api.github.com", Auth: Token("t"), TLS: &TLSConfig{CertFile: "c"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !apperrors.HasCode(err, apperrors.ErrCodeMisconfigured) {
				t.Fatalf("expected MISCONFIGURED, got %v", err)
			}
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Timeout != defaultTimeout {
		t.Errorf("expected default timeout, got %v", cfg.Timeout)
	}
	if cfg.Name != "http" {
		t.Errorf("expected default name, got %q", cfg.Name)
	}
}

func TestAdapter_ResolvesPathAgainstBase(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	for _, base := range []string{srv.URL + "/api/v3", srv.URL + "/api/v3/"} {
		a := newTestAdapter(t, base, Token("t"))
		for _, p := range []string{"/user/repos", "user/repos"} {
			if _, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: p}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotPath != "/api/v3/user/repos" {
				t.Errorf("base %q path %q: server saw %q", base, p, gotPath)
			}
		}
	}
}

func TestAdapter_Headers(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	a, err := New(Config{
		BaseURL: srv.URL,
		Auth:    Token("ghp_real"),
		Headers: map[string]string{"Accept": "application/vnd.github+json", "X-Config": "c"},
	}, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = a.Do(context.Background(), Request{
		Method:  http.MethodGet,
		Path:    "/",
		Headers: map[string]string{"Authorization": "Bearer spoofed", "X-Request": "r"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Get("Authorization") != "Bearer ghp_real" {
		t.Errorf("static auth header must win, got %q", got.Get("Authorization"))
	}
	if got.Get("Accept") != "application/vnd.github+json" {
		t.Errorf("config header should override default Accept, got %q", got.Get("Accept"))
	}
	if got.Get("X-Config") != "c" || got.Get("X-Request") != "r" {
		t.Errorf("missing merged headers: %v", got)
	}
	if got.Get("Content-Type") != "" {
		t.Errorf("no Content-Type expected without a body, got %q", got.Get("Content-Type"))
	}
	if !strings.HasPrefix(got.Get("User-Agent"), "repokit/") {
		t.Errorf("unexpected user agent %q", got.Get("User-Agent"))
	}
}

func TestAdapter_JSONContent(t *testing.T) {
	var ct, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, Token("t"))
	tests := []struct {
		name    string
		content Content
		want    string
	}{
		{"marshaled", JSONContent(map[string]int{"n": 1}), `{"n":1}`},
		{"raw message", JSONContent(json.RawMessage(`{"pre":"encoded"}`)), `{"pre":"encoded"}`},
		{"bytes", JSONContent([]byte(`ignored`)), `"aWdub3JlZA=="`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := a.Do(context.Background(), Request{Method: http.MethodPost, Path: "/", Content: tt.content})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != http.StatusCreated {
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
			if ct != "application/json" {
				t.Errorf("expected application/json, got %q", ct)
			}
			if body != tt.want {
				t.Errorf("expected body %s, got %s", tt.want, body)
			}
		})
	}
}

func TestContent_RawMessageSentVerbatim(t *testing.T) {
	r, ct, err := JSONContent(json.RawMessage(`{"a": 1}`)).encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := io.ReadAll(r)
	if string(b) != `{"a": 1}` || ct != "application/json" {
		t.Errorf("got %q %q", b, ct)
	}
	if !NoContent().IsEmpty() || JSONContent(nil).IsEmpty() {
		t.Error("IsEmpty mismatch")
	}
}

func TestContent_Unencodable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("request must not be sent")
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, Token("t"))
	_, err := a.Do(context.Background(), Request{Method: http.MethodPost, Path: "/", Content: JSONContent(make(chan int))})
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindRequest {
		t.Fatalf("expected request error, got %v", err)
	}
}

func TestAdapter_QueryParameters(t *testing.T) {
	var q string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query().Get("visibility")
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, Token("t"))
	_, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/user/repos", Query: map[string]string{"visibility": "all"}})
	if err != nil || q != "all" {
		t.Fatalf("expected query to be sent, got %q (%v)", q, err)
	}
}

func TestAdapter_HTTPErrorKeepsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"name already exists"}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, Token("t"))
	resp, err := a.Do(context.Background(), Request{Method: http.MethodPost, Path: "/user/repos"})
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if e.Kind != KindHTTP || e.StatusCode != 422 || e.Code != ErrCodeValidation {
		t.Errorf("unexpected error %+v", e)
	}
	if !strings.Contains(string(e.Body), "already exists") {
		t.Errorf("expected body in error, got %q", e.Body)
	}
	if resp == nil || resp.StatusCode != 422 {
		t.Error("expected the response alongside the error")
	}
}

func TestAdapter_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	a := newTestAdapter(t, url, Token("t"))
	_, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("transport errors carry no status, got %d", StatusCode(err))
	}
}

func TestAdapter_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	a := newTestAdapter(t, srv.URL, Token("t"))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := a.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if !IsTimeout(err) || !IsTransport(err) {
		t.Fatalf("expected transport timeout, got %v", err)
	}
}

func TestAdapter_Canceled(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		close(arrived)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	a := newTestAdapter(t, srv.URL, Token("t"))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-arrived
		cancel()
	}()
	_, err := a.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if !IsCanceled(err) || !IsTransport(err) {
		t.Fatalf("expected a canceled transport error, got %v", err)
	}
	if IsTimeout(err) || IsRetryable(err) {
		t.Errorf("cancellation is neither a timeout nor retryable: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled to be reachable, got %v", err)
	}
}

func TestAdapter_WithTransport(t *testing.T) {
	stub := &stubRoundTripper{fn: func(r *http.Request) *http.Response {
		return &http.Response{StatusCode: http.StatusNoContent, Header: make(http.Header), Body: http.NoBody}
	}}
	a := newTestAdapter(t, "https://api.github.com", Token("t"), WithTransport(stub))
	resp, err := a.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/repos/o/n"})
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected result %v %v", resp, err)
	}
	if stub.calls != 1 {
		t.Errorf("expected stub transport to be used, got %d calls", stub.calls)
	}
	if a.Name() != "test" || a.Config().BaseURL != "https://api.github.com" {
		t.Errorf("unexpected adapter identity %q %q", a.Name(), a.Config().BaseURL)
	}
}

func TestAdapter_CustomCA(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.TLS = certs.ServerConfig()
	srv.StartTLS()
	defer srv.Close()

	untrusted := newTestAdapter(t, srv.URL, Token("t"))
	if _, err := untrusted.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); !IsTransport(err) {
		t.Fatalf("expected TLS failure without the CA, got %v", err)
	}

	a, err := New(Config{BaseURL: srv.URL, Auth: Token("t"), TLS: &TLSConfig{CAFile: certs.CAFile}}, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
		t.Fatalf("expected success with the CA installed, got %v", err)
	}
}

func TestAdapter_TokenSourcePerRequest(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	calls := 0
	src := TokenSourceFunc(func(context.Context) (string, error) {
		calls++
		return fmt.Sprintf("t%d", calls), nil
	})
	a := newTestAdapter(t, srv.URL, TokenFrom(src))
	for i := 0; i < 2; i++ {
		if _, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
			t.Fatalf("Do #%d: %v", i+1, err)
		}
	}
	if len(got) != 2 || got[0] != "Bearer t1" || got[1] != "Bearer t2" {
		t.Errorf("expected a fresh token per request, got %v", got)
	}
}

func TestAdapter_TokenSourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("request must not be sent without a token")
	}))
	defer srv.Close()

	t.Run("client error passes through", func(t *testing.T) {
		src := TokenSourceFunc(func(context.Context) (string, error) {
			return "", NewConnectionError(errors.New("exchange refused"))
		})
		a := newTestAdapter(t, srv.URL, TokenFrom(src))
		_, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
		if !IsTransport(err) {
			t.Fatalf("expected the source's transport error, got %v", err)
		}
	})

	t.Run("other error becomes a request error", func(t *testing.T) {
		src := TokenSourceFunc(func(context.Context) (string, error) {
			return "", errors.New("no key")
		})
		a := newTestAdapter(t, srv.URL, TokenFrom(src))
		_, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
		var e *Error
		if !errors.As(err, &e) || e.Kind != KindRequest {
			t.Fatalf("expected a request error, got %v", err)
		}
	})
}
