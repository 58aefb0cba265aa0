// Package oidc publishes the metadata other services need to verify access
// tokens without calling back into this service.
package oidc

import (
	"encoding/json"
	"net/http"
	"strings"
)

// KeySet is the part of the token issuer this package needs.
type KeySet interface {
	JWKS() map[string]any
}

type Handler struct {
	keys    KeySet
	issuer  string
	baseURL string
}

// NewHandler serves discovery for tokens carrying iss=issuer. baseURL is
// where this service is reachable and prefixes the jwks_uri.
func NewHandler(keys KeySet, issuer, baseURL string) *Handler {
	return &Handler{keys: keys, issuer: issuer, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *Handler) Discovery(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"issuer":                                h.issuer,
		"jwks_uri":                              h.baseURL + "/.well-known/jwks.json",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_ = json.NewEncoder(w).Encode(h.keys.JWKS())
}
