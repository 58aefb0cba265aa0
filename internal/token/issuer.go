package token

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apperr"
)

// Kind selects the key material and lifetime used for a token.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 365 * 24 * time.Hour

	minRefreshSecret = 32
)

// Payload is what the caller knows about the token's owner.
// SessionID is only embedded in refresh tokens.
type Payload struct {
	Subject   string
	Role      string
	SessionID string
	IssuedAt  time.Time
}

// Claims is the signed token body.
type Claims struct {
	Role      string `json:"role"`
	SessionID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// Signer is the capability the registration flow needs.
type Signer interface {
	Sign(kind Kind, p Payload) (token string, expiresAt time.Time, err error)
	TTL(kind Kind) time.Duration
}

// Issuer signs access tokens with an RSA key (RS256) so other services can
// verify them with the public key, and refresh tokens with an HMAC secret
// (HS256) since only this service reads them back.
type Issuer struct {
	accessKey     *rsa.PrivateKey
	kid           string
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

var _ Signer = (*Issuer)(nil)

// NewIssuer validates the key material up front so a misconfigured process
// fails at startup instead of on the first request.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.AccessPrivateKeyPEM) == 0 {
		return nil, errors.New("access token private key is not configured")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.AccessPrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse access token private key: %w", err)
	}
	if len(cfg.RefreshSecret) < minRefreshSecret {
		return nil, fmt.Errorf("refresh token secret must be at least %d bytes", minRefreshSecret)
	}
	accessTTL := cfg.AccessTTL
	if accessTTL == 0 {
		accessTTL = DefaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if accessTTL < 0 || refreshTTL < 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	kid, err := keyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Issuer{
		accessKey:     key,
		kid:           kid,
		refreshSecret: append([]byte(nil), cfg.RefreshSecret...),
		issuer:        cfg.Issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// keyID is the first 8 bytes of the SHA-256 of the DER public key, base64url.
func keyID(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	h := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(h[:8]), nil
}

func (s *Issuer) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

// Sign issues a token of the given kind. Expiry is p.IssuedAt + TTL(kind).
func (s *Issuer) Sign(kind Kind, p Payload) (string, time.Time, error) {
	now := p.IssuedAt
	if now.IsZero() {
		now = time.Now()
	}
	exp := now.Add(s.TTL(kind))
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   p.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	var (
		signed string
		err    error
	)
	switch kind {
	case KindAccess:
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = s.kid
		signed, err = tok.SignedString(s.accessKey)
	case KindRefresh:
		if p.SessionID == "" {
			return "", time.Time{}, &apperr.SigningError{Kind: string(kind), Err: errors.New("missing session id")}
		}
		claims.SessionID = p.SessionID
		signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	default:
		err = fmt.Errorf("unknown token kind %q", kind)
	}
	if err != nil {
		return "", time.Time{}, &apperr.SigningError{Kind: string(kind), Err: err}
	}
	return signed, exp, nil
}

// VerifyAccess parses an access token, accepting only RS256 with this issuer's key.
func (s *Issuer) VerifyAccess(tokenStr string) (*Claims, error) {
	return s.verify(tokenStr, jwt.SigningMethodRS256.Alg(), func(*jwt.Token) (any, error) {
		return &s.accessKey.PublicKey, nil
	})
}

// VerifyRefresh parses a refresh token, accepting only HS256 with the
// refresh secret. The caller still has to check the session record.
func (s *Issuer) VerifyRefresh(tokenStr string) (*Claims, error) {
	c, err := s.verify(tokenStr, jwt.SigningMethodHS256.Alg(), func(*jwt.Token) (any, error) {
		return s.refreshSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if c.SessionID == "" {
		return nil, errors.New("refresh token has no session id")
	}
	return c, nil
}

func (s *Issuer) verify(tokenStr, alg string, key jwt.Keyfunc) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	var c Claims
	if _, err := jwt.ParseWithClaims(tokenStr, &c, key, opts...); err != nil {
		return nil, err
	}
	return &c, nil
}

// PublicKey returns the RSA public key for access token verification.
func (s *Issuer) PublicKey() *rsa.PublicKey {
	return &s.accessKey.PublicKey
}

// JWKS returns a minimal JWKS containing the access token public key.
func (s *Issuer) JWKS() map[string]any {
	pub := s.accessKey.PublicKey
	n := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	// encode exponent using big.Int to get minimal big-endian bytes
	e := base64.RawURLEncoding.EncodeToString(new(big.Int).SetInt64(int64(pub.E)).Bytes())
	jwk := map[string]any{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": s.kid,
		"n":   n,
		"e":   e,
	}
	return map[string]any{"keys": []any{jwk}}
}
