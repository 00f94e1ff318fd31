package github

import (
	"context"
	"crypto/rsa"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/repokit/errors"
)

// GitHub rejects app tokens valid for more than ten minutes and tolerates
// little clock skew.
const (
	appTokenBackdate = 60 * time.Second
	appTokenLifetime = 9 * time.Minute
)

// AppTokenSigner signs GitHub App authentication tokens (RS256 JWTs).
type AppTokenSigner struct {
	appID string
	key   *rsa.PrivateKey
	now   func() time.Time
}

// NewAppTokenSigner parses a PEM-encoded RSA private key.
func NewAppTokenSigner(appID int64, pemKey []byte) (*AppTokenSigner, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, errors.Misconfigured("github: invalid app private key").WithCause(err)
	}
	return &AppTokenSigner{appID: strconv.FormatInt(appID, 10), key: key, now: time.Now}, nil
}

// Sign returns a token issued a minute in the past and valid for nine
// minutes from now.
func (s *AppTokenSigner) Sign() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-appTokenBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appTokenLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", errors.Internal(err)
	}
	return signed, nil
}

// Token signs a fresh app token. It lets the signer authenticate the /app
// endpoints as an httpclient.TokenSource.
func (s *AppTokenSigner) Token(context.Context) (string, error) {
	return s.Sign()
}
