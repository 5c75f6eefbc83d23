// Package testdata provides a fake identity provider for tests.
package testdata

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/require"
)

const (
	Issuer   = "https://securetoken.google.com/test-project"
	ClientID = "test-project"
)

type IdentityProvider struct {
	t   *testing.T
	key *rsa.PrivateKey
}

func NewIdentityProvider(t *testing.T) *IdentityProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &IdentityProvider{t: t, key: key}
}

// Verifier trusts tokens signed by this provider only.
func (p *IdentityProvider) Verifier() *oidc.IDTokenVerifier {
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&p.key.PublicKey}}
	return oidc.NewVerifier(Issuer, keySet, &oidc.Config{ClientID: ClientID})
}

// IDToken returns a signed ID token valid for an hour.
func (p *IdentityProvider) IDToken(subject, email, name string) string {
	return p.sign(subject, email, name, ClientID, time.Now().Add(time.Hour))
}

func (p *IdentityProvider) ExpiredIDToken(subject string) string {
	return p.sign(subject, "", "", ClientID, time.Now().Add(-time.Hour))
}

func (p *IdentityProvider) IDTokenForAudience(subject, audience string) string {
	return p.sign(subject, "", "", audience, time.Now().Add(time.Hour))
}

func (p *IdentityProvider) sign(subject, email, name, audience string, exp time.Time) string {
	p.t.Helper()
	b := jwt.NewBuilder().
		Issuer(Issuer).
		Subject(subject).
		Audience([]string{audience}).
		IssuedAt(exp.Add(-time.Hour)).
		Expiration(exp)
	if email != "" {
		b = b.Claim("email", email)
	}
	if name != "" {
		b = b.Claim("name", name)
	}
	tok, err := b.Build()
	require.NoError(p.t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), p.key))
	require.NoError(p.t, err)
	return string(signed)
}
