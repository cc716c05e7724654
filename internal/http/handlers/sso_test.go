package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dropDatabas3/hellosso/internal/account"
	memcache "github.com/dropDatabas3/hellosso/internal/cache/memory"
	"github.com/dropDatabas3/hellosso/internal/http/handlers"
	"github.com/dropDatabas3/hellosso/internal/logintoken"
	"github.com/dropDatabas3/hellosso/internal/oidc"
	"github.com/dropDatabas3/hellosso/internal/rate"
	"github.com/dropDatabas3/hellosso/internal/sso"
	"github.com/dropDatabas3/hellosso/internal/ssosession"
)

// newDeps arma handlers con el provider en modo manual: el redirect no
// necesita red porque la metadata es fija.
func newDeps(t *testing.T, limits handlers.RateLimits, limiter rate.MultiLimiter) handlers.Deps {
	t.Helper()
	pc := &oidc.ProviderConfig{
		Issuer:                "https://idp.example",
		ClientID:              "client-abc",
		ClientSecret:          "shh",
		RedirectURI:           "https://chat.example/login/sso/callback",
		Scopes:                []string{"openid", "profile"},
		RegisterUser:          true,
		EnableDiscovery:       false,
		AuthorizationEndpoint: "https://idp.example/authorize",
		TokenEndpoint:         "https://idp.example/token",
		UserinfoEndpoint:      "https://idp.example/userinfo",
		JWKSURI:               "https://idp.example/jwks",
		AccountManagementURL:  "https://idp.example/account",
	}
	if err := pc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	resolver := oidc.NewResolver(pc)
	client := oidc.NewClient(pc, resolver, nil)
	sessions := ssosession.NewStore(10 * time.Minute)

	return handlers.Deps{
		PC:          pc,
		Resolver:    resolver,
		Flow:        sso.NewFlow(pc, client, sessions, account.NewMemoryProvisioner()),
		LoginTokens: logintoken.NewStore(memcache.New(time.Minute), time.Minute),
		Limiter:     limiter,
		Limits:      limits,
		ServerName:  "chat.example",
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body no es JSON: %v: %s", err, rr.Body.String())
	}
	return body
}

func TestRedirectBuildsAuthorizationURL(t *testing.T) {
	redirect, _ := handlers.BuildSSOHandlers(newDeps(t, handlers.RateLimits{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/login/sso/redirect?redirectUrl=https%3A%2F%2Fapp.example%2Fafter", nil)
	rr := httptest.NewRecorder()
	redirect.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.Host != "idp.example" || loc.Path != "/authorize" {
		t.Fatalf("Location=%q", loc.String())
	}
	q := loc.Query()
	if q.Get("state") == "" || q.Get("nonce") == "" || q.Get("code_challenge") == "" {
		t.Fatalf("faltan params: %v", q)
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Fatalf("method=%q", q.Get("code_challenge_method"))
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control=%q", got)
	}
}

func TestRedirectRequiresRedirectURL(t *testing.T) {
	redirect, _ := handlers.BuildSSOHandlers(newDeps(t, handlers.RateLimits{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/login/sso/redirect", nil)
	rr := httptest.NewRecorder()
	redirect.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if body := decodeError(t, rr); body["error"] != "invalid_request" {
		t.Fatalf("error=%v", body["error"])
	}
}

func TestRedirectRejectsRelativeRedirectURL(t *testing.T) {
	redirect, _ := handlers.BuildSSOHandlers(newDeps(t, handlers.RateLimits{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/login/sso/redirect?redirectUrl=/relativo", nil)
	rr := httptest.NewRecorder()
	redirect.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestRedirectRejectsNonHTTPSchemes(t *testing.T) {
	redirect, _ := handlers.BuildSSOHandlers(newDeps(t, handlers.RateLimits{}, nil))

	for _, target := range []string{
		"javascript:alert(1)",
		"data:text/html,hola",
		"vbscript:x",
		"ftp://files.example/x",
		"https://", // sin host
	} {
		req := httptest.NewRequest(http.MethodGet,
			"/login/sso/redirect?redirectUrl="+url.QueryEscape(target), nil)
		rr := httptest.NewRecorder()
		redirect.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("redirectUrl=%q: status=%d, quería 400", target, rr.Code)
		}
		if body := decodeError(t, rr); body["error"] != "invalid_request" {
			t.Fatalf("redirectUrl=%q: error=%v", target, body["error"])
		}
	}
}

func TestRedirectMethodNotAllowed(t *testing.T) {
	redirect, _ := handlers.BuildSSOHandlers(newDeps(t, handlers.RateLimits{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/login/sso/redirect", nil)
	rr := httptest.NewRecorder()
	redirect.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestCallbackInvalidState(t *testing.T) {
	_, callback := handlers.BuildSSOHandlers(newDeps(t, handlers.RateLimits{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/login/sso/callback?state=trucho&code=c", nil)
	rr := httptest.NewRecorder()
	callback.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeError(t, rr)
	if body["error"] != "invalid_state" {
		t.Fatalf("error=%v", body["error"])
	}
	if code, _ := body["error_code"].(float64); int(code) != 1714 {
		t.Fatalf("error_code=%v", body["error_code"])
	}
}

func TestCallbackProviderError(t *testing.T) {
	d := newDeps(t, handlers.RateLimits{}, nil)
	_, callback := handlers.BuildSSOHandlers(d)

	req := httptest.NewRequest(http.MethodGet, "/login/sso/callback?error=access_denied&error_description=cancelado", nil)
	rr := httptest.NewRecorder()
	callback.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if body := decodeError(t, rr); body["error"] != "idp_error" {
		t.Fatalf("error=%v", body["error"])
	}
}

func TestRedirectRateLimited(t *testing.T) {
	limits := handlers.RateLimits{
		Enabled:        true,
		RedirectLimit:  2,
		RedirectWindow: time.Minute,
		CallbackLimit:  2,
		CallbackWindow: time.Minute,
	}
	redirect, _ := handlers.BuildSSOHandlers(newDeps(t, limits, rate.NewMemoryMultiLimiter()))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/login/sso/redirect?redirectUrl=https%3A%2F%2Fapp.example", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		last = httptest.NewRecorder()
		redirect.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, quería 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("falta Retry-After")
	}
	if last.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("X-RateLimit-Remaining=%q", last.Header().Get("X-RateLimit-Remaining"))
	}
}
