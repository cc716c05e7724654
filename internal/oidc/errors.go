package oidc

import "errors"

// Sentinels de la taxonomía de errores del flujo contra el provider.
// Siempre se envuelven con %w para conservar el detalle.
var (
	// ErrDiscovery: fallo transitorio al resolver metadata/JWKS del provider.
	// Único error con recovery local (stale-cache dentro de la ventana de gracia).
	ErrDiscovery = errors.New("oidc: discovery failed")

	// ErrTokenExchange: el POST al token_endpoint falló (non-2xx, red, body
	// malformado). Nunca se reintenta: los authorization codes son single-use.
	ErrTokenExchange = errors.New("oidc: token exchange failed")

	// ErrClaimValidation: id_token inválido (firma, iss, aud, exp, nonce) o
	// claims inutilizables (subject vacío). Seguridad: siempre hard-fail.
	ErrClaimValidation = errors.New("oidc: claim validation failed")
)
