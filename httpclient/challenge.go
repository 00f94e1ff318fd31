package httpclient

import (
	"io"
	"net/http"
	"strings"
)

// challengeTransport answers Basic authentication challenges on behalf of
// the Authorization it was built with. A challenged request is re-issued at
// most once; a second 401 is handed back to the engine unchanged.
type challengeTransport struct {
	next http.RoundTripper
	auth Authorization
}

func newChallengeTransport(next http.RoundTripper, auth Authorization) http.RoundTripper {
	if auth == nil || !auth.SupportsChallengeResolution() {
		return next
	}
	return &challengeTransport{next: next, auth: auth}
}

func (t *challengeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	ch, ok := parseChallenge(resp.Header.Get("WWW-Authenticate"), req.URL.Host)
	if !ok || !strings.EqualFold(ch.Scheme, "basic") {
		return resp, nil
	}
	retry, ok := replay(req)
	if !ok {
		return resp, nil
	}
	cred := t.auth.ResolveChallenge(ch)
	retry.SetBasicAuth(cred.Username, cred.Password)

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return t.next.RoundTrip(retry)
}

// replay clones req with a fresh body. It returns false when the body
// cannot be produced a second time.
func replay(req *http.Request) (*http.Request, bool) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	retry.Body = body
	return retry, true
}
