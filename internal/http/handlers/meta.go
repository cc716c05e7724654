package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/hellosso/internal/http"
	"github.com/dropDatabas3/hellosso/internal/observability/logger"
)

// oidcDiscovery es el documento que este servidor publica a SUS clientes:
// los endpoints reales del provider más las capacidades de gestión de
// cuenta cuando están configuradas.
type oidcDiscovery struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI                          string   `json:"jwks_uri,omitempty"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                  []string `json:"scopes_supported,omitempty"`
	TokenEndpointAuthMethods         []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	ClaimsSupported                  []string `json:"claims_supported,omitempty"`
	AccountManagementURI             string   `json:"account_management_uri,omitempty"`
	AccountManagementActions         []string `json:"account_management_actions_supported,omitempty"`
}

var accountManagementActions = []string{
	"org.matrix.profile",
	"org.matrix.sessions_list",
	"org.matrix.session_view",
	"org.matrix.session_end",
}

// WellKnown sirve GET /.well-known/openid-configuration.
func (h *ssoHandler) WellKnown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "solo GET", 1731)
		return
	}
	doc, err := h.d.Resolver.Resolve(r.Context())
	if err != nil {
		logger.Named("http").Error("sso: well-known sin metadata", logger.Err(err))
		httpx.WriteError(w, http.StatusBadGateway, "discovery_failed", "metadata del provider no disponible", 1732)
		return
	}

	out := oidcDiscovery{
		Issuer:                           h.d.PC.Issuer,
		AuthorizationEndpoint:            doc.AuthorizationEndpoint,
		TokenEndpoint:                    doc.TokenEndpoint,
		UserinfoEndpoint:                 doc.UserinfoEndpoint,
		JWKSURI:                          doc.JWKSURI,
		ResponseTypesSupported:           []string{"code"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"RS256"},
		ScopesSupported:                  h.d.PC.Scopes,
		TokenEndpointAuthMethods:         []string{"client_secret_basic", "client_secret_post"},
		ClaimsSupported:                  []string{"sub", "name", "email", "email_verified", "preferred_username"},
	}
	if h.d.PC.AccountManagementURL != "" {
		out.AccountManagementURI = h.d.PC.AccountManagementURL
		out.AccountManagementActions = accountManagementActions
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// AuthIssuer sirve GET /auth_issuer: el issuer configurado y el nombre del
// servidor, para que los clientes sepan contra quién autenticar.
func (h *ssoHandler) AuthIssuer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "solo GET", 1733)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"issuer":  h.d.PC.Issuer,
		"account": h.d.ServerName,
	})
}

// BuildMetaHandlers expone los handlers de metadata.
func BuildMetaHandlers(d Deps) (wellKnown, authIssuer http.Handler) {
	h := &ssoHandler{d: d}
	return http.HandlerFunc(h.WellKnown), http.HandlerFunc(h.AuthIssuer)
}
