package oidc

import (
	"fmt"
)

// IdentityClaims es la identidad ya resuelta: lo único que el resto del
// sistema necesita del provider.
type IdentityClaims struct {
	Subject     string
	DisplayName string
	Email       string
	Raw         map[string]any
}

// displaynameFallbacks en orden de preferencia cuando la claim configurada
// no está presente.
var displaynameFallbacks = []string{"name", "preferred_username", "nickname"}

// BuildIdentityClaims mergea id_token y userinfo (el id_token gana en claves
// repetidas, su contenido está firmado) y extrae subject y display name
// según la configuración. Subject vacío es fatal: sin él no hay identidad.
func BuildIdentityClaims(pc *ProviderConfig, idClaims, userinfo map[string]any) (*IdentityClaims, error) {
	merged := make(map[string]any, len(idClaims)+len(userinfo))
	for k, v := range userinfo {
		merged[k] = v
	}
	for k, v := range idClaims {
		merged[k] = v
	}

	subjectClaim := pc.SubjectClaim
	if subjectClaim == "" {
		subjectClaim = "sub"
	}
	subject := strVal(merged, subjectClaim)
	if subject == "" {
		return nil, fmt.Errorf("%w: claim de subject %q vacía o ausente", ErrClaimValidation, subjectClaim)
	}

	display := ""
	if pc.DisplaynameClaim != "" {
		display = strVal(merged, pc.DisplaynameClaim)
	}
	if display == "" {
		for _, k := range displaynameFallbacks {
			if display = strVal(merged, k); display != "" {
				break
			}
		}
	}

	return &IdentityClaims{
		Subject:     subject,
		DisplayName: display,
		Email:       strVal(merged, "email"),
		Raw:         merged,
	}, nil
}

func strVal(m map[string]any, k string) string {
	s, _ := m[k].(string)
	return s
}
