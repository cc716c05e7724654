package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/hellosso/internal/metrics"
	"github.com/dropDatabas3/hellosso/internal/observability/logger"
)

// DiscoveryDocument es el snapshot inmutable de la metadata del provider.
// Refrescar reemplaza el documento entero; nunca se muta campo a campo.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JWKSURI               string `json:"jwks_uri"`

	FetchedAt time.Time `json:"-"`
}

// Resolver mantiene la metadata del provider cacheada con TTL. Con discovery
// deshabilitado el documento se arma una vez desde los endpoints manuales y
// no vence jamás. Los refrescos concurrentes colapsan en un único fetch.
type Resolver struct {
	pc    *ProviderConfig
	httpc *http.Client

	ttl   time.Duration
	grace time.Duration

	sf singleflight.Group

	mu  sync.RWMutex
	doc *DiscoveryDocument

	jwksMu   sync.RWMutex
	jwks     *jwks
	jwksAt   time.Time
	jwksETag string
	jwksTTL  time.Duration
}

// ResolverOption ajusta el Resolver en construcción.
type ResolverOption func(*Resolver)

// WithHTTPClient reemplaza el http.Client (tests, timeouts custom).
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) { r.httpc = c }
}

// WithTTL fija el TTL del documento y la ventana de gracia para servir
// metadata vencida cuando el refresh falla.
func WithTTL(ttl, grace time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.ttl = ttl
		r.grace = grace
	}
}

// WithJWKSTTL fija el TTL de la cache de claves de firma.
func WithJWKSTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) { r.jwksTTL = ttl }
}

func NewResolver(pc *ProviderConfig, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		pc:      pc,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		ttl:     24 * time.Hour,
		grace:   24 * time.Hour,
		jwksTTL: 1 * time.Hour,
	}
	for _, o := range opts {
		o(r)
	}
	if !pc.EnableDiscovery {
		// Modo manual: documento fijo, cero I/O para metadata.
		r.doc = &DiscoveryDocument{
			Issuer:                pc.Issuer,
			AuthorizationEndpoint: pc.AuthorizationEndpoint,
			TokenEndpoint:         pc.TokenEndpoint,
			UserinfoEndpoint:      pc.UserinfoEndpoint,
			JWKSURI:               pc.JWKSURI,
			FetchedAt:             time.Now(),
		}
	}
	return r
}

// Resolve devuelve la metadata vigente, refrescando si el TTL venció. Si el
// refresh falla y hay un documento dentro de la ventana de gracia, lo sirve
// con un warning; vencida la gracia devuelve ErrDiscovery.
func (r *Resolver) Resolve(ctx context.Context) (*DiscoveryDocument, error) {
	r.mu.RLock()
	doc := r.doc
	r.mu.RUnlock()

	if doc != nil && (!r.pc.EnableDiscovery || time.Since(doc.FetchedAt) < r.ttl) {
		return doc, nil
	}

	v, err, _ := r.sf.Do("discovery", func() (any, error) {
		// El fetch lo comparten N callers: cancelar al primero no puede
		// tumbar a los demás. El timeout del http.Client sigue acotando.
		return r.fetchDocument(context.WithoutCancel(ctx))
	})
	if err != nil {
		metrics.DiscoveryRefreshErrors.Inc()
		if doc != nil && time.Since(doc.FetchedAt) < r.ttl+r.grace {
			logger.L().Warn("sso: discovery refresh falló, sirviendo metadata vencida",
				logger.Issuer(r.pc.Issuer), logger.Err(err))
			return doc, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	return v.(*DiscoveryDocument), nil
}

func (r *Resolver) fetchDocument(ctx context.Context) (*DiscoveryDocument, error) {
	u := strings.TrimRight(r.pc.Issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("discovery http %d", resp.StatusCode)
	}
	var dd DiscoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&dd); err != nil {
		return nil, err
	}
	// El issuer del documento debe ser el configurado, byte a byte.
	if dd.Issuer != r.pc.Issuer {
		return nil, fmt.Errorf("issuer mismatch: documento %q, configurado %q", dd.Issuer, r.pc.Issuer)
	}
	if dd.AuthorizationEndpoint == "" || dd.TokenEndpoint == "" {
		return nil, fmt.Errorf("documento incompleto: falta authorization_endpoint o token_endpoint")
	}
	dd.FetchedAt = time.Now()

	r.mu.Lock()
	r.doc = &dd
	r.mu.Unlock()
	metrics.DiscoveryRefresh.Inc()
	return &dd, nil
}

// Ready indica si el resolver tiene metadata servible (para readiness).
func (r *Resolver) Ready(ctx context.Context) bool {
	_, err := r.Resolve(ctx)
	return err == nil
}
