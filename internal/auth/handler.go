package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apperr"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	maxBodyBytes = 1 << 16
)

// CookieConfig controls how issued tokens are set on the response.
type CookieConfig struct {
	Domain string
	Secure bool
}

// CookieConfigFromEnv reads COOKIE_DOMAIN (default localhost) and COOKIE_SECURE=1.
func CookieConfigFromEnv() CookieConfig {
	domain := os.Getenv("COOKIE_DOMAIN")
	if domain == "" {
		domain = "localhost"
	}
	return CookieConfig{Domain: domain, Secure: os.Getenv("COOKIE_SECURE") == "1"}
}

// Handler exposes the registration endpoint.
type Handler struct {
	svc     *Service
	cookies CookieConfig
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, cookies CookieConfig, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, cookies: cookies, logger: logger}
}

// ErrorItem is one entry of the errors array returned on failure.
type ErrorItem struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// ErrorResponse always carries an array, even for a single error.
type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}

// RegisterResponse response body containing the new account id.
type RegisterResponse struct {
	ID int64 `json:"id"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Errors: []ErrorItem{
			{Type: "field", Msg: "request body must be a JSON object", Location: "body"},
		}})
		return
	}

	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.setCookie(w, AccessCookie, res.AccessToken, res.AccessExpiresAt.Sub(res.IssuedAt))
	h.setCookie(w, RefreshCookie, res.RefreshToken, res.RefreshExpiresAt.Sub(res.IssuedAt))
	h.writeJSON(w, http.StatusCreated, RegisterResponse{ID: res.AccountID})
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   h.cookies.Domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// writeError is the only place registration failures become HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		items := make([]ErrorItem, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			items = append(items, ErrorItem{Type: "field", Msg: f.Message, Path: f.Field, Location: "body"})
		}
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Errors: items})
		return
	}
	if errors.Is(err, apperr.ErrConflict) {
		h.logger.Debugw("register rejected", "err", err)
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Errors: []ErrorItem{
			{Type: "ConflictError", Msg: apperr.ErrConflict.Error()},
		}})
		return
	}

	var serr *apperr.StorageError
	var sgerr *apperr.SigningError
	switch {
	case errors.As(err, &serr):
		h.logger.Errorw("register failed", "kind", "storage", "cause", serr.Cause())
	case errors.As(err, &sgerr):
		h.logger.Errorw("register failed", "kind", "signing", "err", sgerr)
	default:
		h.logger.Errorw("register failed", "err", err)
	}
	h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Errors: []ErrorItem{
		{Type: "InternalServerError", Msg: "internal server error"},
	}})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
