// Package handlers contiene los handlers HTTP del login federado y de la
// metadata OIDC que el servidor publica a sus clientes.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	httpx "github.com/dropDatabas3/hellosso/internal/http"
	"github.com/dropDatabas3/hellosso/internal/logintoken"
	"github.com/dropDatabas3/hellosso/internal/oidc"
	"github.com/dropDatabas3/hellosso/internal/rate"
	"github.com/dropDatabas3/hellosso/internal/sso"
)

// RateLimits son los presupuestos por IP de cada endpoint del flujo.
type RateLimits struct {
	Enabled        bool
	RedirectLimit  int
	RedirectWindow time.Duration
	CallbackLimit  int
	CallbackWindow time.Duration
}

// Deps agrupa los colaboradores que necesitan los handlers SSO.
type Deps struct {
	PC          *oidc.ProviderConfig
	Resolver    *oidc.Resolver
	Flow        *sso.Flow
	LoginTokens *logintoken.Store
	Limiter     rate.MultiLimiter // nil deshabilita rate limiting
	Limits      RateLimits
	ServerName  string
}

type ssoHandler struct {
	d Deps
}

// BuildSSOHandlers arma los handlers del flujo. Devuelve nil si SSO está
// deshabilitado (el router no monta las rutas).
func BuildSSOHandlers(d Deps) (redirect, callback http.Handler) {
	h := &ssoHandler{d: d}
	return http.HandlerFunc(h.redirect), http.HandlerFunc(h.callback)
}

// enforce aplica el rate limit por IP. keyPrefix distingue redirect/callback.
// Devuelve true si el request puede continuar. Un limiter caído no bloquea.
func (h *ssoHandler) enforce(w http.ResponseWriter, r *http.Request, limit int, window time.Duration, keyPrefix string) bool {
	if h.d.Limiter == nil || !h.d.Limits.Enabled || limit <= 0 || window <= 0 {
		return true
	}
	key := keyPrefix + httpx.ClientIP(r)
	res, err := h.d.Limiter.AllowWithLimits(r.Context(), key, limit, window)
	if err != nil {
		return true
	}
	now := time.Now().UTC()
	resetAt := now.Truncate(window).Add(window)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	if res.Allowed {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(res.Remaining)))
		return true
	}
	retryAfter := time.Until(resetAt)
	if retryAfter < 0 {
		retryAfter = window
	}
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "demasiadas solicitudes", 1401)
	return false
}
