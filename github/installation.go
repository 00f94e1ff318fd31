package github

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kbukum/repokit/httpclient"
)

// installationTokenMargin is how long before expiry a cached installation
// token is replaced.
const installationTokenMargin = time.Minute

// InstallationToken is an installation access token issued to a GitHub App.
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func decodeInstallationToken(body []byte) (InstallationToken, error) {
	tok, err := httpclient.DecodeJSON[InstallationToken]()(body)
	if err != nil {
		return tok, err
	}
	if tok.Token == "" {
		return tok, httpclient.NewDecodeError("token", errors.New("missing installation token"))
	}
	if tok.ExpiresAt.IsZero() {
		return tok, httpclient.NewDecodeError("expires_at", errors.New("missing expiry"))
	}
	return tok, nil
}

func installationAccessToken(installationID int64) httpclient.Configuration[InstallationToken] {
	return httpclient.Configuration[InstallationToken]{
		Name:   "app.installation_token",
		Method: http.MethodPost,
		Path:   "/app/installations/" + strconv.FormatInt(installationID, 10) + "/access_tokens",
		Decode: decodeInstallationToken,
	}
}

// InstallationTokens is an httpclient.TokenSource that exchanges signed app
// tokens for installation access tokens. A token is reused until it is
// within a minute of expiring.
type InstallationTokens struct {
	adapter  *httpclient.Adapter
	exchange httpclient.Configuration[InstallationToken]
	now      func() time.Time

	mu      sync.Mutex
	current InstallationToken
}

// NewInstallationTokens builds the token source on its own adapter, which
// authenticates with tokens from signer. cfg supplies the origin, TLS and
// headers; its Name and Auth are replaced.
func NewInstallationTokens(cfg httpclient.Config, signer *AppTokenSigner, installationID int64, opts ...httpclient.Option) (*InstallationTokens, error) {
	cfg.Name = "github.app"
	cfg.Auth = httpclient.TokenFrom(signer)
	a, err := httpclient.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &InstallationTokens{
		adapter:  a,
		exchange: installationAccessToken(installationID),
		now:      time.Now,
	}, nil
}

// Token returns the cached installation token, exchanging a new one when
// none is cached or the cached one is about to expire. Callers wait for an
// exchange already in progress.
func (t *InstallationTokens) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current.Token != "" && t.now().Add(installationTokenMargin).Before(t.current.ExpiresAt) {
		return t.current.Token, nil
	}
	tok, err := httpclient.Execute(ctx, t.adapter, t.exchange)
	if err != nil {
		return "", err
	}
	t.current = tok
	return tok.Token, nil
}

// Close releases the exchange adapter's idle connections.
func (t *InstallationTokens) Close(ctx context.Context) error {
	return t.adapter.Close(ctx)
}
