// Package oidc implementa el cliente OpenID Connect contra el identity
// provider externo: discovery de metadata, cache de JWKS, intercambio de
// authorization codes y verificación de id_tokens.
//
// El paquete no conoce HTTP handlers ni sesiones: expone un ProviderConfig
// inmutable, un Resolver de metadata y un Client para las llamadas al
// provider. La orquestación vive en internal/sso.
package oidc

import (
	"fmt"
	"net/url"
	"strings"
)

// ProviderConfig es el snapshot validado e inmutable de la configuración SSO.
// Se construye una vez en el arranque; después del arranque nadie lo muta.
type ProviderConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	RegisterUser     bool
	SubjectClaim     string
	DisplaynameClaim string

	// EnableDiscovery=false exige los cuatro endpoints manuales.
	EnableDiscovery       bool
	AuthorizationEndpoint string
	TokenEndpoint         string
	UserinfoEndpoint      string
	JWKSURI               string

	AccountManagementURL string

	// Production fuerza HTTPS en issuer y endpoints.
	Production bool
}

// Validate aplica las mismas reglas que la validación de arranque. Un
// ProviderConfig que no valida no debe usarse jamás: el caller debe abortar.
func (pc *ProviderConfig) Validate() error {
	if pc.Issuer == "" {
		return fmt.Errorf("oidc: issuer requerido")
	}
	if pc.ClientID == "" {
		return fmt.Errorf("oidc: client_id requerido")
	}
	if pc.RedirectURI == "" {
		return fmt.Errorf("oidc: redirect_uri requerido")
	}
	if err := pc.checkURL("issuer", pc.Issuer); err != nil {
		return err
	}
	if err := pc.checkURL("redirect_uri", pc.RedirectURI); err != nil {
		return err
	}
	if !hasScope(pc.Scopes, "openid") {
		return fmt.Errorf("oidc: scopes debe incluir %q", "openid")
	}
	if !pc.EnableDiscovery {
		manual := map[string]string{
			"authorization_endpoint": pc.AuthorizationEndpoint,
			"token_endpoint":         pc.TokenEndpoint,
			"userinfo_endpoint":      pc.UserinfoEndpoint,
			"jwks_uri":               pc.JWKSURI,
		}
		for name, ep := range manual {
			if ep == "" {
				return fmt.Errorf("oidc: discovery deshabilitado y %s vacío", name)
			}
			if err := pc.checkURL(name, ep); err != nil {
				return err
			}
		}
	}
	return nil
}

func (pc *ProviderConfig) checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("oidc: %s no es una URL absoluta: %q", name, raw)
	}
	if pc.Production && u.Scheme != "https" {
		return fmt.Errorf("oidc: %s debe ser https en producción: %q", name, raw)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("oidc: %s con scheme no soportado: %q", name, raw)
	}
	return nil
}

func hasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

// ScopeString devuelve los scopes como los espera el parámetro scope
// (separados por espacio).
func (pc *ProviderConfig) ScopeString() string {
	return strings.Join(pc.Scopes, " ")
}
