package httpclient

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{401, ErrCodeAuth, false},
		{403, ErrCodeAuth, false},
		{404, ErrCodeNotFound, false},
		{409, ErrCodeValidation, false},
		{422, ErrCodeValidation, false},
		{429, ErrCodeRateLimit, true},
		{500, ErrCodeServer, true},
		{503, ErrCodeServer, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			e := ClassifyStatusCode(tt.status, []byte("b"))
			if e == nil {
				t.Fatal("expected error")
			}
			if e.Kind != KindHTTP || e.Code != tt.code || e.Retryable != tt.retryable || e.StatusCode != tt.status {
				t.Errorf("unexpected classification %+v", e)
			}
			if string(e.Body) != "b" {
				t.Errorf("expected body kept, got %q", e.Body)
			}
		})
	}
	for _, ok := range []int{200, 201, 204, 304} {
		if ClassifyStatusCode(ok, nil) != nil {
			t.Errorf("status %d must not be an error", ok)
		}
	}
}

func TestError_Message(t *testing.T) {
	e := ClassifyStatusCode(404, nil)
	if !strings.Contains(e.Error(), "HTTP 404") || !strings.Contains(e.Error(), "not_found") {
		t.Errorf("unexpected message %q", e.Error())
	}
	te := NewTimeoutError(errors.New("deadline"))
	if te.Error() != "httpclient: timeout: deadline" {
		t.Errorf("unexpected message %q", te.Error())
	}
}

func TestPredicates(t *testing.T) {
	cause := errors.New("refused")
	conn := fmt.Errorf("wrapped: %w", NewConnectionError(cause))
	if !IsTransport(conn) || IsHTTP(conn) || IsTimeout(conn) || !IsRetryable(conn) {
		t.Error("connection error predicates")
	}
	if !errors.Is(conn, cause) {
		t.Error("expected cause to be reachable")
	}

	canceled := NewCanceledError(errors.New("stop"))
	if !IsTransport(canceled) || !IsCanceled(canceled) || IsTimeout(canceled) || IsRetryable(canceled) {
		t.Error("canceled error predicates")
	}
	if canceled.Code.String() != "canceled" {
		t.Errorf("unexpected code name %q", canceled.Code)
	}

	auth := ClassifyStatusCode(401, nil)
	if !IsHTTP(auth) || !IsAuth(auth) || IsNotFound(auth) || IsRetryable(auth) {
		t.Error("auth error predicates")
	}

	plain := errors.New("plain")
	if IsTransport(plain) || IsHTTP(plain) || IsDecode(plain) || StatusCode(plain) != 0 {
		t.Error("plain errors match no predicate")
	}
}

func TestWrapDecode(t *testing.T) {
	de := NewDecodeError("[0].name", errors.New("missing"))
	e := wrapDecode(de, 200, []byte("[]"))
	if e.Kind != KindDecode || e.Code != ErrCodeDecode || !IsDecode(e) {
		t.Errorf("unexpected error %+v", e)
	}
	var got *DecodeError
	if !errors.As(e, &got) || got.Field != "[0].name" {
		t.Errorf("expected DecodeError to unwrap, got %v", got)
	}

	plain := wrapDecode(errors.New("bad"), 200, nil)
	if !errors.As(plain, &got) || got.Field != "" {
		t.Errorf("plain decode failures get an unnamed DecodeError, got %v", got)
	}
}

func TestDecodeError_Message(t *testing.T) {
	if got := NewDecodeError("id", errors.New("x")).Error(); got != `decode "id": x` {
		t.Errorf("unexpected message %q", got)
	}
	if got := NewDecodeError("", errors.New("x")).Error(); got != "decode: x" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{KindRequest: "request", KindTransport: "transport", KindHTTP: "http", KindDecode: "decode", Kind(99): "unknown"} {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}
