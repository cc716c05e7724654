package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

const minimalSSO = `
server:
  addr: ":8080"
  name: chat.example.org
sso:
  enable: true
  issuer: https://idp.example.org
  client_id: abc
  client_secret: shh
  redirect_uri: https://chat.example.org/login/sso/callback
  enable_discovery: true
`

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalSSO))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SSO.SubjectClaim != "sub" || c.SSO.DisplaynameClaim != "name" {
		t.Fatalf("claim defaults: %q %q", c.SSO.SubjectClaim, c.SSO.DisplaynameClaim)
	}
	if c.SSO.SessionTTL != 10*time.Minute {
		t.Fatalf("session_ttl=%v", c.SSO.SessionTTL)
	}
	if c.SSO.LoginTokenTTL != 60*time.Second {
		t.Fatalf("login_token_ttl=%v", c.SSO.LoginTokenTTL)
	}
	if got := strings.Join(c.SSO.Scopes, " "); got != "openid email profile" {
		t.Fatalf("scopes=%q", got)
	}
	if c.Rate.Redirect.Limit != 15 || c.Rate.Callback.Limit != 30 {
		t.Fatalf("rate defaults: %d %d", c.Rate.Redirect.Limit, c.Rate.Callback.Limit)
	}
}

func TestValidateRequiresIssuer(t *testing.T) {
	_, err := Load(writeConfig(t, `
sso:
  enable: true
  client_id: abc
  redirect_uri: https://chat.example.org/cb
  enable_discovery: true
`))
	if err == nil || !strings.Contains(err.Error(), "issuer") {
		t.Fatalf("err=%v, quería fallo por issuer", err)
	}
}

func TestValidateScopesMustIncludeOpenID(t *testing.T) {
	cfg := strings.Replace(minimalSSO, "enable_discovery: true",
		"enable_discovery: true\n  scopes: [email, profile]", 1)
	if _, err := Load(writeConfig(t, cfg)); err == nil || !strings.Contains(err.Error(), "openid") {
		t.Fatalf("err=%v, quería fallo por scope openid", err)
	}
}

func TestValidateManualEndpointsRequired(t *testing.T) {
	cfg := strings.Replace(minimalSSO, "enable_discovery: true", "enable_discovery: false", 1)
	if _, err := Load(writeConfig(t, cfg)); err == nil || !strings.Contains(err.Error(), "endpoint") {
		t.Fatalf("err=%v, quería fallo por endpoints manuales", err)
	}
}

func TestValidateHTTPSInProd(t *testing.T) {
	cfg := strings.Replace(minimalSSO, "https://idp.example.org", "http://idp.example.org", 1) + `
app:
  app_env: prod
`
	if _, err := Load(writeConfig(t, cfg)); err == nil || !strings.Contains(err.Error(), "HTTPS") {
		t.Fatalf("err=%v, quería fallo por HTTPS en prod", err)
	}
}

func TestSSODisabledSkipsValidation(t *testing.T) {
	c, err := Load(writeConfig(t, `
server:
  addr: ":8080"
sso:
  enable: false
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SSO.Enable {
		t.Fatal("enable tendría que ser false")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SSO_CLIENT_SECRET", "desde-env")
	t.Setenv("SSO_SESSION_TTL", "5m")
	t.Setenv("SERVER_ADDR", ":9999")

	c, err := Load(writeConfig(t, minimalSSO))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SSO.ClientSecret != "desde-env" {
		t.Fatalf("client_secret=%q", c.SSO.ClientSecret)
	}
	if c.SSO.SessionTTL != 5*time.Minute {
		t.Fatalf("session_ttl=%v", c.SSO.SessionTTL)
	}
	if c.Server.Addr != ":9999" {
		t.Fatalf("addr=%q", c.Server.Addr)
	}
}
