package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenValidator signs and verifies admin access tokens with a shared secret.
type TokenValidator struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Sign issues a token for subject valid until expiresAt.
func (v TokenValidator) Sign(subject string, now, expiresAt time.Time) (string, error) {
	tok, err := jwt.NewBuilder().
		Subject(subject).
		Issuer(v.Issuer).
		Audience([]string{v.Audience}).
		IssuedAt(now).
		NotBefore(now.Add(-v.ClockSkew)).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(v.Algorithm, v.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// Parse verifies the signature of raw and validates its claims at now.
// Tokens signed with any other algorithm are rejected before verification.
func (v TokenValidator) Parse(raw string, now time.Time) (jwt.Token, error) {
	alg, err := tokenAlgorithm(raw)
	if err != nil {
		return nil, err
	}
	if alg != v.Algorithm {
		return nil, fmt.Errorf("auth: unexpected token algorithm %s", alg)
	}
	tok, err := jwt.ParseString(raw, jwt.WithKey(v.Algorithm, v.Secret), jwt.WithValidate(false))
	if err != nil {
		return nil, err
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithIssuer(v.Issuer),
		jwt.WithAudience(v.Audience),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithRequiredClaim(jwt.SubjectKey),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if err := jwt.Validate(tok, options...); err != nil {
		return nil, err
	}
	return tok, nil
}

func tokenAlgorithm(raw string) (jwa.SignatureAlgorithm, error) {
	msg, err := jws.ParseString(raw)
	if err != nil {
		return "", err
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return "", errors.New("auth: token must carry exactly one signature")
	}
	headers := sigs[0].ProtectedHeaders()
	if headers == nil || headers.Algorithm() == "" {
		return "", errors.New("auth: token missing algorithm")
	}
	return headers.Algorithm(), nil
}
