package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/hellosso/internal/http"
)

// Healthz responde 200 siempre que el proceso esté vivo.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Readyz responde 200 cuando hay metadata del provider servible. Arranca en
// not-ready hasta el primer discovery exitoso (o siempre ready en modo manual).
func (h *ssoHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.d.Resolver.Ready(r.Context()) {
		httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", "metadata del provider no disponible", 1740)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// BuildReadyz expone el handler de readiness.
func BuildReadyz(d Deps) http.Handler {
	h := &ssoHandler{d: d}
	return http.HandlerFunc(h.Readyz)
}
