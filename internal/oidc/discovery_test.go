package oidc_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/hellosso/internal/oidc"
)

func wellKnownHandler(issuer func() string, fail *atomic.Bool, hits *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		if fail != nil && fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		iss := issuer()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 iss,
			"authorization_endpoint": iss + "/authorize",
			"token_endpoint":         iss + "/token",
			"userinfo_endpoint":      iss + "/userinfo",
			"jwks_uri":               iss + "/jwks",
		})
	}
}

func testProviderConfig(issuer string) *oidc.ProviderConfig {
	return &oidc.ProviderConfig{
		Issuer:          issuer,
		ClientID:        "client-abc",
		ClientSecret:    "s3cr3t",
		RedirectURI:     issuer + "/callback",
		Scopes:          []string{"openid", "profile"},
		EnableDiscovery: true,
	}
}

func TestResolveCachesDocument(t *testing.T) {
	var hits atomic.Int64
	var srv *httptest.Server
	srv = httptest.NewServer(wellKnownHandler(func() string { return srv.URL }, nil, &hits))
	defer srv.Close()

	r := oidc.NewResolver(testProviderConfig(srv.URL), oidc.WithHTTPClient(srv.Client()))

	doc, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if doc.TokenEndpoint != srv.URL+"/token" {
		t.Fatalf("token_endpoint=%q", doc.TokenEndpoint)
	}

	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve cacheado: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("el documento no se cacheó: %d fetches", got)
	}
}

func TestResolveIssuerMismatch(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(wellKnownHandler(func() string { return "https://otro.example" }, nil, &hits))
	defer srv.Close()

	r := oidc.NewResolver(testProviderConfig(srv.URL), oidc.WithHTTPClient(srv.Client()))
	if _, err := r.Resolve(context.Background()); !errors.Is(err, oidc.ErrDiscovery) {
		t.Fatalf("err=%v, quería ErrDiscovery", err)
	}
}

func TestResolveServesStaleWithinGrace(t *testing.T) {
	var hits atomic.Int64
	var fail atomic.Bool
	var srv *httptest.Server
	srv = httptest.NewServer(wellKnownHandler(func() string { return srv.URL }, &fail, &hits))
	defer srv.Close()

	r := oidc.NewResolver(testProviderConfig(srv.URL),
		oidc.WithHTTPClient(srv.Client()),
		oidc.WithTTL(30*time.Millisecond, time.Hour),
	)

	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("primer Resolve: %v", err)
	}

	fail.Store(true)
	time.Sleep(50 * time.Millisecond)

	doc, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("dentro de la gracia tendría que servir el vencido: %v", err)
	}
	if doc.TokenEndpoint == "" {
		t.Fatal("documento vacío")
	}
}

func TestResolveFailsPastGrace(t *testing.T) {
	var hits atomic.Int64
	var fail atomic.Bool
	var srv *httptest.Server
	srv = httptest.NewServer(wellKnownHandler(func() string { return srv.URL }, &fail, &hits))
	defer srv.Close()

	r := oidc.NewResolver(testProviderConfig(srv.URL),
		oidc.WithHTTPClient(srv.Client()),
		oidc.WithTTL(10*time.Millisecond, 10*time.Millisecond),
	)

	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("primer Resolve: %v", err)
	}

	fail.Store(true)
	time.Sleep(40 * time.Millisecond)

	if _, err := r.Resolve(context.Background()); !errors.Is(err, oidc.ErrDiscovery) {
		t.Fatalf("err=%v, quería ErrDiscovery pasada la gracia", err)
	}
}

func TestResolveSurvivesCallerCancellation(t *testing.T) {
	var hits atomic.Int64
	var srv *httptest.Server
	srv = httptest.NewServer(wellKnownHandler(func() string { return srv.URL }, nil, &hits))
	defer srv.Close()

	r := oidc.NewResolver(testProviderConfig(srv.URL), oidc.WithHTTPClient(srv.Client()))

	// el refresh es compartido: el contexto de un caller ya cancelado no
	// tiene que tumbar el fetch que sirve a los demás
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := r.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve con caller cancelado: %v", err)
	}
	if doc.TokenEndpoint != srv.URL+"/token" {
		t.Fatalf("token_endpoint=%q", doc.TokenEndpoint)
	}
}

func TestManualModeNeverFetches(t *testing.T) {
	pc := &oidc.ProviderConfig{
		Issuer:                "https://idp.example",
		ClientID:              "client-abc",
		RedirectURI:           "https://chat.example/callback",
		Scopes:                []string{"openid"},
		EnableDiscovery:       false,
		AuthorizationEndpoint: "https://idp.example/authorize",
		TokenEndpoint:         "https://idp.example/token",
		UserinfoEndpoint:      "https://idp.example/userinfo",
		JWKSURI:               "https://idp.example/jwks",
	}
	if err := pc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// sin transporte funcional: si intenta red, falla
	r := oidc.NewResolver(pc, oidc.WithHTTPClient(&http.Client{Timeout: time.Nanosecond}))
	doc, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve manual: %v", err)
	}
	if doc.AuthorizationEndpoint != pc.AuthorizationEndpoint || doc.JWKSURI != pc.JWKSURI {
		t.Fatal("documento manual no coincide con los endpoints configurados")
	}
}
