// Copyright 2025 Certen Protocol
//
// Notary Anchor Provider
// Issues an RFC-3161-style signed timestamp token over a content digest,
// grounded on the golang-jwt/jwt/v5 issuance idiom in
// oarkflow-velocity/web/http_server.go's handleLogin.

package notary

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/caas-systems/audit-core/pkg/proof"
)

// Provider anchors by signing a JWT whose claims bind a digest to the
// moment it was witnessed: a lightweight stand-in for a commercial RFC
// 3161 timestamp authority.
type Provider struct {
	signingKey []byte
	issuer     string
}

// New returns a Provider signing tokens with signingKey under issuer.
func New(signingKey []byte, issuer string) *Provider {
	return &Provider{signingKey: signingKey, issuer: issuer}
}

// Anchor implements anchor.Provider: it signs a token binding digest and
// the current time, and returns the compact JWT string as the anchor_hash.
func (p *Provider) Anchor(_ context.Context, digest string, metadata map[string]interface{}) (*proof.AnchoringReference, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss":    p.issuer,
		"digest": digest,
		"iat":    now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.signingKey)
	if err != nil {
		return nil, fmt.Errorf("notary: sign token: %w", err)
	}

	return &proof.AnchoringReference{
		AnchorType: "notary",
		AnchorID:   fmt.Sprintf("notary-%d", now.UnixNano()),
		Timestamp:  now,
		AnchorHash: signed,
		Metadata:   metadata,
	}, nil
}

// Verify checks that token was signed by p and returns its claims, for
// auditors validating a notary anchor offline.
func (p *Provider) Verify(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("notary: unexpected signing method %v", t.Header["alg"])
		}
		return p.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("notary: parse token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("notary: invalid token")
	}
	return claims, nil
}
