package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/Victorkib/mentacare-backend-admin/internal/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/service"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/mw"
	v1 "github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1"
)

// Service is the subset of service.AuthService the handlers use.
type Service interface {
	Login(ctx context.Context, in service.LoginInput) (service.Tokens, error)
	Logout(ctx context.Context, who auth.Identity, refreshRaw string) error
	Refresh(ctx context.Context, raw string) (service.Tokens, error)
	Me(ctx context.Context, who auth.Identity) (*domain.Admin, error)
}

// CookieConfig controls the token cookies.
type CookieConfig struct {
	Secure bool
	Domain string
}

type Handler struct {
	Log     logr.Logger
	Resp    *v1.Responder
	Auth    Service
	Cookies CookieConfig
	// Now is used for cookie expiry. Nil means time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) cookie(name, value, path string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   h.Cookies.Domain,
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		return c
	}
	c.Expires = expires
	c.MaxAge = int(expires.Sub(h.now()).Seconds())
	if c.MaxAge <= 0 {
		c.MaxAge = 1
	}
	return c
}

func (h *Handler) setTokens(w http.ResponseWriter, t service.Tokens) {
	http.SetCookie(w, h.cookie(mw.AccessCookie, t.AccessToken, "/", t.AccessExpiresAt))
	http.SetCookie(w, h.cookie(mw.RefreshCookie, t.RefreshToken, "/api/auth", t.RefreshExpiresAt))
}

func (h *Handler) clearTokens(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(mw.AccessCookie, "", "/", time.Time{}))
	http.SetCookie(w, h.cookie(mw.RefreshCookie, "", "/api/auth", time.Time{}))
}

func refreshToken(r *http.Request) string {
	if c, err := r.Cookie(mw.RefreshCookie); err == nil {
		return c.Value
	}
	return ""
}

// Login verifies credentials and sets the token cookies.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	tokens, err := h.Auth.Login(r.Context(), in)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.setTokens(w, tokens)
	h.Resp.OK(w, r, tokens)
}

// Logout revokes the caller's tokens and clears the cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	who, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.Resp.Fail(w, r, domain.Unauthorized("authentication required"))
		return
	}
	if err := h.Auth.Logout(r.Context(), who, refreshToken(r)); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.clearTokens(w)
	h.Resp.Message(w, r, "logged out")
}

// Refresh rotates the refresh cookie and issues a new access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.Auth.Refresh(r.Context(), refreshToken(r))
	if err != nil {
		h.clearTokens(w)
		h.Resp.Fail(w, r, err)
		return
	}
	h.setTokens(w, tokens)
	h.Resp.OK(w, r, tokens)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	who, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.Resp.Fail(w, r, domain.Unauthorized("authentication required"))
		return
	}
	admin, err := h.Auth.Me(r.Context(), who)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, admin)
}
