package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// Name es el nombre público del homeserver (ej: chat.example.org).
		// Se expone en /auth_issuer como "account".
		Name               string   `yaml:"name"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	// ───────── SSO / OIDC upstream provider ─────────
	SSO struct {
		Enable       bool     `yaml:"enable"`
		Issuer       string   `yaml:"issuer"`
		ClientID     string   `yaml:"client_id"`
		ClientSecret string   `yaml:"client_secret"`
		RedirectURI  string   `yaml:"redirect_uri"` // callback fijo del servidor
		Scopes       []string `yaml:"scopes"`       // default: openid,email,profile
		RegisterUser bool     `yaml:"register_user"`

		// Claim mapping
		SubjectClaim     string `yaml:"subject_claim"`     // default: sub
		DisplaynameClaim string `yaml:"displayname_claim"` // default: name

		// Discovery. Si enable_discovery=false hay que dar los 4 endpoints.
		EnableDiscovery       bool   `yaml:"enable_discovery"`
		AuthorizationEndpoint string `yaml:"authorization_endpoint"`
		TokenEndpoint         string `yaml:"token_endpoint"`
		UserinfoEndpoint      string `yaml:"userinfo_endpoint"`
		JWKSURI               string `yaml:"jwks_uri"`

		// Extensión account-management (opcional).
		AccountManagementURL string `yaml:"account_management_url"`

		SessionTTL     time.Duration `yaml:"session_ttl"`     // default: 10m
		DiscoveryTTL   time.Duration `yaml:"discovery_ttl"`   // default: 24h
		DiscoveryGrace time.Duration `yaml:"discovery_grace"` // stale-but-usable, default: 24h
		LoginTokenTTL  time.Duration `yaml:"login_token_ttl"` // default: 60s
		HTTPTimeout    time.Duration `yaml:"http_timeout"`    // default: 10s
	} `yaml:"sso"`

	Storage struct {
		Driver string `yaml:"driver"` // "postgres" | "memory"
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // "memory" | "redis"
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Rate struct {
		Enabled  bool `yaml:"enabled"`
		Redirect struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"redirect"`
		Callback struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"callback"`
	} `yaml:"rate"`

	Log struct {
		Env   string `yaml:"env"`   // dev | prod (default: App.Env)
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// ───── Defaults ─────
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.SSO.SubjectClaim == "" {
		c.SSO.SubjectClaim = "sub"
	}
	if c.SSO.DisplaynameClaim == "" {
		c.SSO.DisplaynameClaim = "name"
	}
	if len(c.SSO.Scopes) == 0 {
		c.SSO.Scopes = []string{"openid", "email", "profile"}
	}
	if c.SSO.SessionTTL == 0 {
		c.SSO.SessionTTL = 10 * time.Minute
	}
	if c.SSO.DiscoveryTTL == 0 {
		c.SSO.DiscoveryTTL = 24 * time.Hour
	}
	if c.SSO.DiscoveryGrace == 0 {
		c.SSO.DiscoveryGrace = 24 * time.Hour
	}
	if c.SSO.LoginTokenTTL == 0 {
		c.SSO.LoginTokenTTL = 60 * time.Second
	}
	if c.SSO.HTTPTimeout == 0 {
		c.SSO.HTTPTimeout = 10 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Rate.Redirect.Limit == 0 {
		c.Rate.Redirect.Limit = 15
	}
	if c.Rate.Redirect.Window == "" {
		c.Rate.Redirect.Window = "1m"
	}
	if c.Rate.Callback.Limit == 0 {
		c.Rate.Callback.Limit = 30
	}
	if c.Rate.Callback.Window == "" {
		c.Rate.Callback.Window = "1m"
	}
	if c.Log.Env == "" {
		c.Log.Env = c.App.Env
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// ───── Overrides por env ─────
	c.applyEnvOverrides()

	// validate string durations
	if c.Rate.Redirect.Window != "" {
		if _, err := time.ParseDuration(c.Rate.Redirect.Window); err != nil {
			return nil, err
		}
	}
	if c.Rate.Callback.Window != "" {
		if _, err := time.ParseDuration(c.Rate.Callback.Window); err != nil {
			return nil, err
		}
	}
	if c.Cache.Memory.DefaultTTL != "" {
		if _, err := time.ParseDuration(c.Cache.Memory.DefaultTTL); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate falla rápido: un error acá es de configuración, no recuperable
// en request time. El feature SSO no debe activarse a medias.
func (c *Config) Validate() error {
	if !c.SSO.Enable {
		return nil
	}
	if strings.TrimSpace(c.SSO.Issuer) == "" {
		return errors.New("config: sso.enable=true pero falta sso.issuer")
	}
	if strings.TrimSpace(c.SSO.ClientID) == "" {
		return errors.New("config: falta sso.client_id")
	}
	if strings.TrimSpace(c.SSO.RedirectURI) == "" {
		return errors.New("config: falta sso.redirect_uri")
	}
	if _, err := parseAbsURL(c.SSO.RedirectURI); err != nil {
		return fmt.Errorf("config: sso.redirect_uri inválida: %w", err)
	}
	if _, err := parseAbsURL(c.SSO.Issuer); err != nil {
		return fmt.Errorf("config: sso.issuer inválido: %w", err)
	}

	// En prod exigimos HTTPS para issuer y redirect_uri.
	if c.IsProd() {
		for name, raw := range map[string]string{
			"sso.issuer":       c.SSO.Issuer,
			"sso.redirect_uri": c.SSO.RedirectURI,
		} {
			u, _ := parseAbsURL(raw)
			if u == nil || u.Scheme != "https" {
				return fmt.Errorf("config: %s debe ser HTTPS en prod", name)
			}
		}
	}

	// Los claims salen del id_token/userinfo OIDC: sin scope openid no hay flujo.
	hasOpenID := false
	for _, s := range c.SSO.Scopes {
		if s == "openid" {
			hasOpenID = true
			break
		}
	}
	if !hasOpenID {
		return errors.New("config: sso.scopes debe incluir \"openid\"")
	}

	// Discovery apagado ⇒ los cuatro endpoints son obligatorios.
	if !c.SSO.EnableDiscovery {
		for name, v := range map[string]string{
			"authorization_endpoint": c.SSO.AuthorizationEndpoint,
			"token_endpoint":         c.SSO.TokenEndpoint,
			"userinfo_endpoint":      c.SSO.UserinfoEndpoint,
			"jwks_uri":               c.SSO.JWKSURI,
		} {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("config: sso.enable_discovery=false requiere sso.%s", name)
			}
		}
	}
	return nil
}

func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

func parseAbsURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("no es una URL absoluta: %q", raw)
	}
	return u, nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
// El secret casi siempre llega por env, nunca lo queremos en el YAML de prod.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_NAME"); ok {
		c.Server.Name = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// SSO
	if v, ok := getEnvBool("SSO_ENABLE"); ok {
		c.SSO.Enable = v
	}
	if v, ok := getEnvStr("SSO_ISSUER"); ok {
		c.SSO.Issuer = v
	}
	if v, ok := getEnvStr("SSO_CLIENT_ID"); ok {
		c.SSO.ClientID = v
	}
	if v, ok := getEnvStr("SSO_CLIENT_SECRET"); ok {
		c.SSO.ClientSecret = v
	}
	if v, ok := getEnvStr("SSO_REDIRECT_URI"); ok {
		c.SSO.RedirectURI = v
	}
	if v, ok := getEnvCSV("SSO_SCOPES"); ok {
		c.SSO.Scopes = v
	}
	if v, ok := getEnvBool("SSO_REGISTER_USER"); ok {
		c.SSO.RegisterUser = v
	}
	if v, ok := getEnvBool("SSO_ENABLE_DISCOVERY"); ok {
		c.SSO.EnableDiscovery = v
	}
	if v, ok := getEnvDur("SSO_SESSION_TTL"); ok {
		c.SSO.SessionTTL = v
	}
	if v, ok := getEnvDur("SSO_LOGIN_TOKEN_TTL"); ok {
		c.SSO.LoginTokenTTL = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}
