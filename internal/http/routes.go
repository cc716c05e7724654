package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
)

// RouterDeps agrupa los handlers ya construidos que monta el router.
type RouterDeps struct {
	SSORedirect stdhttp.Handler
	SSOCallback stdhttp.Handler
	WellKnown   stdhttp.Handler
	AuthIssuer  stdhttp.Handler
	Healthz     stdhttp.Handler
	Readyz      stdhttp.Handler
	Metrics     stdhttp.Handler

	CORSAllowedOrigins []string
}

// NewRouter arma el router con la cadena estándar de middlewares. Los
// handlers SSO pueden ser nil (SSO deshabilitado); las rutas no se montan.
func NewRouter(d RouterDeps) stdhttp.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", d.Healthz.ServeHTTP)
	r.Get("/readyz", d.Readyz.ServeHTTP)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	if d.SSORedirect != nil {
		r.Get("/login/sso/redirect", d.SSORedirect.ServeHTTP)
		r.Get("/login/sso/callback", d.SSOCallback.ServeHTTP)
		r.Get("/.well-known/openid-configuration", d.WellKnown.ServeHTTP)
		r.Get("/auth_issuer", d.AuthIssuer.ServeHTTP)
	}

	var h stdhttp.Handler = r
	h = WithLogging(h)
	h = WithSecurityHeaders(h)
	h = WithCORS(h, d.CORSAllowedOrigins)
	h = WithRequestID(h)
	h = WithRecover(h)
	return h
}
