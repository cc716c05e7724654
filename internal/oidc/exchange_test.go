package oidc_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dropDatabas3/hellosso/internal/oidc"
)

func newTokenProvider(t *testing.T, status int, body map[string]any, gotForm *url.Values) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		iss := srv.URL
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 iss,
			"authorization_endpoint": iss + "/authorize",
			"token_endpoint":         iss + "/token",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if gotForm != nil {
			*gotForm = r.PostForm
		}
		if status/100 != 2 {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeCodeSendsPKCEVerifier(t *testing.T) {
	var form url.Values
	srv := newTokenProvider(t, http.StatusOK, map[string]any{
		"access_token": "at-1",
		"id_token":     "idt-1",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}, &form)

	pc := testProviderConfig(srv.URL)
	r := oidc.NewResolver(pc, oidc.WithHTTPClient(srv.Client()))
	c := oidc.NewClient(pc, r, srv.Client())

	tr, err := c.ExchangeCode(context.Background(), "code-xyz", "verifier-123")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tr.AccessToken != "at-1" || tr.IDToken != "idt-1" {
		t.Fatalf("respuesta inesperada: %+v", tr)
	}

	want := map[string]string{
		"grant_type":    "authorization_code",
		"code":          "code-xyz",
		"client_id":     "client-abc",
		"client_secret": "s3cr3t",
		"redirect_uri":  pc.RedirectURI,
		"code_verifier": "verifier-123",
	}
	for k, v := range want {
		if got := form.Get(k); got != v {
			t.Fatalf("form[%s]=%q, quería %q", k, got, v)
		}
	}
}

func TestExchangeCodeProviderRejects(t *testing.T) {
	srv := newTokenProvider(t, http.StatusBadRequest, nil, nil)

	pc := testProviderConfig(srv.URL)
	r := oidc.NewResolver(pc, oidc.WithHTTPClient(srv.Client()))
	c := oidc.NewClient(pc, r, srv.Client())

	if _, err := c.ExchangeCode(context.Background(), "code-quemado", "v"); !errors.Is(err, oidc.ErrTokenExchange) {
		t.Fatalf("err=%v, quería ErrTokenExchange", err)
	}
}

func TestAuthURLParameters(t *testing.T) {
	srv := newTokenProvider(t, http.StatusOK, nil, nil)

	pc := testProviderConfig(srv.URL)
	r := oidc.NewResolver(pc, oidc.WithHTTPClient(srv.Client()))
	c := oidc.NewClient(pc, r, srv.Client())

	raw, err := c.AuthURL(context.Background(), "state-1", "nonce-1", "challenge-1")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	checks := map[string]string{
		"response_type":         "code",
		"client_id":             "client-abc",
		"redirect_uri":          pc.RedirectURI,
		"scope":                 "openid profile",
		"state":                 "state-1",
		"nonce":                 "nonce-1",
		"code_challenge":        "challenge-1",
		"code_challenge_method": "S256",
	}
	for k, v := range checks {
		if got := q.Get(k); got != v {
			t.Fatalf("%s=%q, quería %q", k, got, v)
		}
	}
}
