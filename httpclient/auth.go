package httpclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Credentials is a username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Persistence says how long a resolved Credential may be remembered by the
// platform credential store.
type Persistence int

const (
	// PersistenceNone keeps the credential for a single challenge.
	PersistenceNone Persistence = iota
	// PersistenceSession keeps the credential for the life of the client.
	PersistenceSession
	// PersistenceSynchronizable allows the credential to sync across trusted
	// devices where the platform has such a store. Ignored elsewhere.
	PersistenceSynchronizable
)

// Credential is the answer to an authentication challenge.
type Credential struct {
	Username    string
	Password    string
	Persistence Persistence
}

// Credential converts the pair into the form used to answer challenges.
func (c Credentials) Credential() Credential {
	return Credential{
		Username:    c.Username,
		Password:    c.Password,
		Persistence: PersistenceSynchronizable,
	}
}

// basicHeader encodes the pair as an Authorization header value.
func (c Credentials) basicHeader() string {
	raw := c.Username + ":" + c.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// Challenge is a transport-level authentication challenge parsed from a
// WWW-Authenticate response header.
type Challenge struct {
	Scheme string
	Realm  string
	Host   string
}

// parseChallenge reads the first challenge of a WWW-Authenticate value.
// It returns false when the header is empty.
func parseChallenge(header, host string) (Challenge, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Challenge{}, false
	}
	scheme, rest, _ := strings.Cut(header, " ")
	ch := Challenge{Scheme: scheme, Host: host}
	for _, part := range strings.Split(rest, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.EqualFold(k, "realm") {
			ch.Realm = strings.Trim(v, `"`)
		}
	}
	return ch, true
}

// Authorization is the authentication mode of a client. Exactly one of
// BasicAuth or TokenAuth is used for the life of an Adapter.
type Authorization interface {
	// Headers returns the static headers attached to every request.
	Headers() http.Header
	// SupportsChallengeResolution reports whether ResolveChallenge may be called.
	SupportsChallengeResolution() bool
	// ResolveChallenge answers an authentication challenge.
	ResolveChallenge(Challenge) Credential

	sealed()
}

// BasicAuth authenticates with a username/password pair, both as a static
// header and as the answer to Basic challenges.
type BasicAuth struct {
	Credentials Credentials
}

// Basic creates a basic authorization.
func Basic(username, password string) BasicAuth {
	return BasicAuth{Credentials: Credentials{Username: username, Password: password}}
}

// Headers returns the Basic Authorization header.
func (a BasicAuth) Headers() http.Header {
	h := make(http.Header, 1)
	h.Set("Authorization", a.Credentials.basicHeader())
	return h
}

// SupportsChallengeResolution is always true for basic auth.
func (a BasicAuth) SupportsChallengeResolution() bool { return true }

// ResolveChallenge answers with the configured credentials.
func (a BasicAuth) ResolveChallenge(Challenge) Credential {
	return a.Credentials.Credential()
}

func (BasicAuth) sealed() {}

// TokenSource supplies bearer tokens that change over the life of a client,
// such as short-lived installation tokens. Token is called once per request
// and must be safe for concurrent use.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to a TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token calls f(ctx).
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// TokenAuth authenticates with a bearer token, either fixed or drawn from
// Source on every request. Challenges are never answered under token auth.
type TokenAuth struct {
	Token  string
	Source TokenSource
}

// Token creates a fixed bearer token authorization.
func Token(token string) TokenAuth {
	return TokenAuth{Token: token}
}

// TokenFrom creates a bearer authorization backed by src.
func TokenFrom(src TokenSource) TokenAuth {
	return TokenAuth{Source: src}
}

// Headers returns the Bearer Authorization header. It is empty when the
// token comes from a Source, since that header is set per request.
func (a TokenAuth) Headers() http.Header {
	h := make(http.Header, 1)
	if a.Source == nil {
		h.Set("Authorization", "Bearer "+a.Token)
	}
	return h
}

// SupportsChallengeResolution is always false for token auth.
func (a TokenAuth) SupportsChallengeResolution() bool { return false }

// ResolveChallenge panics: mixing header-based and challenge-based
// authentication on one client is a programming error.
func (a TokenAuth) ResolveChallenge(ch Challenge) Credential {
	panic(fmt.Sprintf("httpclient: %s challenge from %s under token authorization; check SupportsChallengeResolution first", ch.Scheme, ch.Host))
}

func (TokenAuth) sealed() {}
