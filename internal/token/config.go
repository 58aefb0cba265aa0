package token

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config carries the key material and lifetimes for an Issuer.
type Config struct {
	Issuer              string
	AccessPrivateKeyPEM []byte
	RefreshSecret       []byte
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
}

// ConfigFromEnv reads token settings:
//
//	ACCESS_PRIVATE_KEY       inline PEM (RSA, PKCS#1 or PKCS#8)
//	ACCESS_PRIVATE_KEY_FILE  path to the PEM, used when the inline value is empty
//	REFRESH_TOKEN_SECRET     HMAC secret for refresh tokens
//	TOKEN_ISSUER             iss claim, default "auth-service"
//
// Missing values are left empty; NewIssuer rejects them.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Issuer:        os.Getenv("TOKEN_ISSUER"),
		RefreshSecret: []byte(os.Getenv("REFRESH_TOKEN_SECRET")),
		AccessTTL:     DefaultAccessTTL,
		RefreshTTL:    DefaultRefreshTTL,
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "auth-service"
	}
	if pem := os.Getenv("ACCESS_PRIVATE_KEY"); pem != "" {
		// env files often carry the PEM on one line with literal \n
		cfg.AccessPrivateKeyPEM = []byte(strings.ReplaceAll(pem, `\n`, "\n"))
		return cfg, nil
	}
	if path := os.Getenv("ACCESS_PRIVATE_KEY_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read access private key: %w", err)
		}
		cfg.AccessPrivateKeyPEM = b
	}
	return cfg, nil
}
