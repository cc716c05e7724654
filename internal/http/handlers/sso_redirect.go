package handlers

import (
	"net/http"
	"net/url"
	"strings"

	httpx "github.com/dropDatabas3/hellosso/internal/http"
	"github.com/dropDatabas3/hellosso/internal/observability/logger"
)

// GET /login/sso/redirect?redirectUrl=...
// Crea la sesión de autorización y manda al navegador al provider.
func (h *ssoHandler) redirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "solo GET", 1701)
		return
	}
	if ok := h.enforce(w, r, h.d.Limits.RedirectLimit, h.d.Limits.RedirectWindow, "sso:redirect:"); !ok {
		return
	}

	clientRedirect := strings.TrimSpace(r.URL.Query().Get("redirectUrl"))
	if clientRedirect == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "redirectUrl requerido", 1702)
		return
	}
	// Solo http(s) con host: el target guardado termina en un 302 post-login
	// con el loginToken, un scheme javascript:/data: sería un open redirect
	// ejecutable.
	u, err := url.Parse(clientRedirect)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "redirectUrl debe ser una URL http(s) absoluta", 1703)
		return
	}

	authURL, err := h.d.Flow.BuildRedirect(r.Context(), clientRedirect)
	if err != nil {
		logger.From(r.Context()).Error("sso: no se pudo construir el redirect", logger.Err(err))
		httpx.WriteError(w, http.StatusBadGateway, "discovery_failed", "metadata del provider no disponible", 1705)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, authURL, http.StatusFound)
}
