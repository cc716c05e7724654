package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// VerifyIDToken valida firma (RS256 vía kid del JWKS), iss, aud, exp y nonce.
// Devuelve las claims crudas. Cualquier desvío es ErrClaimValidation: el
// caller nunca debe usar un id_token que no pasó por acá.
func (c *Client) VerifyIDToken(ctx context.Context, idToken, expectedNonce string) (jwtv5.MapClaims, error) {
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: formato jwt inválido", ErrClaimValidation)
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrClaimValidation, err)
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrClaimValidation, err)
	}
	if header.Alg != "RS256" {
		return nil, fmt.Errorf("%w: alg inesperado %q", ErrClaimValidation, header.Alg)
	}

	key, err := c.resolver.KeyForKid(ctx, header.Kid)
	if err != nil {
		return nil, err
	}
	// exp lo valida Parse (obligatorio, 30s de skew); acá solo traducimos
	// el motivo para el log.
	tok, err := jwtv5.Parse(idToken, func(t *jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithLeeway(30*time.Second),
		jwtv5.WithExpirationRequired())
	if err != nil || !tok.Valid {
		switch {
		case errors.Is(err, jwtv5.ErrTokenExpired):
			return nil, fmt.Errorf("%w: id_token vencido", ErrClaimValidation)
		case errors.Is(err, jwtv5.ErrTokenRequiredClaimMissing):
			return nil, fmt.Errorf("%w: exp ausente", ErrClaimValidation)
		default:
			return nil, fmt.Errorf("%w: firma inválida", ErrClaimValidation)
		}
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: tipo de claims", ErrClaimValidation)
	}

	// iss: igualdad exacta con el issuer configurado.
	if iss, _ := claims["iss"].(string); iss != c.pc.Issuer {
		return nil, fmt.Errorf("%w: iss %q no coincide", ErrClaimValidation, iss)
	}

	// aud: string o lista, debe incluir nuestro client_id.
	audOK := false
	switch a := claims["aud"].(type) {
	case string:
		audOK = a == c.pc.ClientID
	case []any:
		for _, v := range a {
			if s, _ := v.(string); s == c.pc.ClientID {
				audOK = true
				break
			}
		}
	}
	if !audOK {
		return nil, fmt.Errorf("%w: aud no incluye el client_id", ErrClaimValidation)
	}

	// nonce: enlaza el token a la sesión que inició el flujo.
	if got, _ := claims["nonce"].(string); got != expectedNonce {
		return nil, fmt.Errorf("%w: nonce no coincide", ErrClaimValidation)
	}

	return claims, nil
}
