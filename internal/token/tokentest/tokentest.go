// Package tokentest builds token configurations with freshly generated keys.
package tokentest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/token"
)

// Issuer is the iss claim used by Config.
const Issuer = "auth-test"

// PrivateKeyPEM returns a PKCS#1 PEM encoded 2048-bit RSA key.
func PrivateKeyPEM(t testing.TB) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

// Config returns a valid issuer config with default lifetimes.
func Config(t testing.TB) token.Config {
	t.Helper()
	return token.Config{
		Issuer:              Issuer,
		AccessPrivateKeyPEM: PrivateKeyPEM(t),
		RefreshSecret:       []byte("0123456789abcdef0123456789abcdef"),
	}
}

// NewIssuer builds an issuer from Config or fails the test.
func NewIssuer(t testing.TB) *token.Issuer {
	t.Helper()
	iss, err := token.NewIssuer(Config(t))
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return iss
}
