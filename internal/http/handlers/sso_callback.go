package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/hellosso/internal/account"
	httpx "github.com/dropDatabas3/hellosso/internal/http"
	"github.com/dropDatabas3/hellosso/internal/metrics"
	"github.com/dropDatabas3/hellosso/internal/observability/logger"
	"github.com/dropDatabas3/hellosso/internal/oidc"
	"github.com/dropDatabas3/hellosso/internal/sso"
	"github.com/dropDatabas3/hellosso/internal/ssosession"
)

// GET /login/sso/callback?state=...&code=... (o error=...)
// Cierra el flujo: valida state, canjea el code, verifica el id_token,
// aprovisiona la cuenta y redirige al cliente con un loginToken one-shot.
func (h *ssoHandler) callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "solo GET", 1711)
		return
	}
	if ok := h.enforce(w, r, h.d.Limits.CallbackLimit, h.d.Limits.CallbackWindow, "sso:cb:"); !ok {
		return
	}

	res, err := h.d.Flow.HandleCallback(r.Context(), r.URL.Query())
	if err != nil {
		h.writeCallbackError(w, r, err)
		return
	}

	loginToken, err := h.d.LoginTokens.Issue(res.Account.UserID)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		metrics.CallbackFailures.WithLabelValues("token_issue").Inc()
		httpx.WriteError(w, http.StatusInternalServerError, "token_gen_failed", "no se pudo emitir el login token", 1721)
		return
	}

	target := res.ClientRedirectURL
	if u, err := url.Parse(target); err == nil {
		q := u.Query()
		q.Set("loginToken", loginToken)
		u.RawQuery = q.Encode()
		target = u.String()
	} else {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target = target + sep + "loginToken=" + url.QueryEscape(loginToken)
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	http.Redirect(w, r, target, http.StatusFound)
}

// writeCallbackError mapea la taxonomía de errores del flujo a respuestas
// HTTP. Los fallos de state llevan la IP al log: son la señal de abuso.
func (h *ssoHandler) writeCallbackError(w http.ResponseWriter, r *http.Request, err error) {
	// el logger del contexto ya trae request_id y client_ip
	log := logger.From(r.Context())
	metrics.LoginAttempts.WithLabelValues("failure").Inc()

	switch {
	case errors.Is(err, sso.ErrProviderDenied):
		metrics.CallbackFailures.WithLabelValues("provider_denied").Inc()
		httpx.WriteError(w, http.StatusBadRequest, "idp_error", "el provider denegó la autorización", 1712)

	case errors.Is(err, ssosession.ErrStateMismatch):
		metrics.CallbackFailures.WithLabelValues("state_mismatch").Inc()
		log.Warn("sso: state desconocido o ya consumido", logger.ClientIP(httpx.ClientIP(r)))
		httpx.WriteError(w, http.StatusBadRequest, "invalid_state", "state inválido", 1714)

	case errors.Is(err, ssosession.ErrExpiredSession):
		metrics.CallbackFailures.WithLabelValues("session_expired").Inc()
		log.Warn("sso: sesión de autorización vencida", logger.ClientIP(httpx.ClientIP(r)))
		httpx.WriteError(w, http.StatusBadRequest, "session_expired", "la sesión de autorización venció, reintentá el login", 1715)

	case errors.Is(err, oidc.ErrDiscovery):
		metrics.CallbackFailures.WithLabelValues("discovery").Inc()
		log.Error("sso: discovery no disponible", logger.Err(err))
		httpx.WriteError(w, http.StatusBadGateway, "discovery_failed", "metadata del provider no disponible", 1716)

	case errors.Is(err, oidc.ErrTokenExchange):
		metrics.CallbackFailures.WithLabelValues("exchange").Inc()
		log.Error("sso: intercambio de code falló", logger.Err(err))
		httpx.WriteError(w, http.StatusBadGateway, "exchange_failed", "no se pudo canjear el authorization code", 1717)

	case errors.Is(err, oidc.ErrClaimValidation):
		metrics.CallbackFailures.WithLabelValues("claims").Inc()
		log.Warn("sso: id_token o claims inválidos", logger.ClientIP(httpx.ClientIP(r)), logger.Err(err))
		httpx.WriteError(w, http.StatusUnauthorized, "id_token_invalid", "id_token o claims inválidos", 1718)

	case errors.Is(err, account.ErrRegistrationDisabled):
		metrics.CallbackFailures.WithLabelValues("registration_disabled").Inc()
		httpx.WriteError(w, http.StatusForbidden, "registration_disabled", "la registración automática está deshabilitada", 1719)

	case errors.Is(err, account.ErrProvisioning):
		metrics.CallbackFailures.WithLabelValues("provision").Inc()
		log.Error("sso: provisioning de cuenta falló", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "provision_failed", "no se pudo completar el login", 1720)

	default:
		metrics.CallbackFailures.WithLabelValues("internal").Inc()
		log.Error("sso: fallo inesperado en el callback", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "provision_failed", "no se pudo completar el login", 1720)
	}
}
