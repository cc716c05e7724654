package oidc_test

import (
	"errors"
	"testing"

	"github.com/dropDatabas3/hellosso/internal/oidc"
)

func TestBuildIdentityClaimsIDTokenWins(t *testing.T) {
	pc := testProviderConfig("https://idp.example")
	id := map[string]any{"sub": "u-1", "name": "Del Token"}
	ui := map[string]any{"sub": "u-otro", "name": "Del Userinfo", "email": "ana@example.org"}

	ic, err := oidc.BuildIdentityClaims(pc, id, ui)
	if err != nil {
		t.Fatalf("BuildIdentityClaims: %v", err)
	}
	if ic.Subject != "u-1" {
		t.Fatalf("subject=%q, el id_token tiene precedencia", ic.Subject)
	}
	if ic.DisplayName != "Del Token" {
		t.Fatalf("display=%q", ic.DisplayName)
	}
	if ic.Email != "ana@example.org" {
		t.Fatalf("email=%q, el userinfo completa lo que falta", ic.Email)
	}
}

func TestBuildIdentityClaimsDisplaynameFallbacks(t *testing.T) {
	pc := testProviderConfig("https://idp.example")
	pc.DisplaynameClaim = "display_custom"

	cases := []struct {
		name   string
		claims map[string]any
		want   string
	}{
		{"claim configurada", map[string]any{"sub": "u", "display_custom": "Custom"}, "Custom"},
		{"fallback name", map[string]any{"sub": "u", "name": "Nombre"}, "Nombre"},
		{"fallback preferred_username", map[string]any{"sub": "u", "preferred_username": "pref"}, "pref"},
		{"fallback nickname", map[string]any{"sub": "u", "nickname": "nick"}, "nick"},
		{"sin nada", map[string]any{"sub": "u"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ic, err := oidc.BuildIdentityClaims(pc, tc.claims, nil)
			if err != nil {
				t.Fatalf("BuildIdentityClaims: %v", err)
			}
			if ic.DisplayName != tc.want {
				t.Fatalf("display=%q, quería %q", ic.DisplayName, tc.want)
			}
		})
	}
}

func TestBuildIdentityClaimsCustomSubjectClaim(t *testing.T) {
	pc := testProviderConfig("https://idp.example")
	pc.SubjectClaim = "employee_id"

	ic, err := oidc.BuildIdentityClaims(pc, map[string]any{"sub": "ignorado", "employee_id": "E-77"}, nil)
	if err != nil {
		t.Fatalf("BuildIdentityClaims: %v", err)
	}
	if ic.Subject != "E-77" {
		t.Fatalf("subject=%q", ic.Subject)
	}
}

func TestBuildIdentityClaimsMissingSubject(t *testing.T) {
	pc := testProviderConfig("https://idp.example")
	if _, err := oidc.BuildIdentityClaims(pc, map[string]any{"name": "Sin Sub"}, nil); !errors.Is(err, oidc.ErrClaimValidation) {
		t.Fatalf("err=%v, quería ErrClaimValidation", err)
	}
}
