package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"
)

type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

func (r *Resolver) getJWKS(ctx context.Context) (*jwks, error) {
	r.jwksMu.RLock()
	j := r.jwks
	age := time.Since(r.jwksAt)
	etag := r.jwksETag
	r.jwksMu.RUnlock()
	if j != nil && age < r.jwksTTL {
		return j, nil
	}

	doc, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	v, err, _ := r.sf.Do("jwks", func() (any, error) {
		// fetch compartido entre callers: desacoplado de la cancelación
		// del primero, igual que el refresh de discovery
		req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, doc.JWKSURI, nil)
		if err != nil {
			return nil, err
		}
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		resp, err := r.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			r.jwksMu.Lock()
			out := r.jwks
			r.jwksAt = time.Now()
			r.jwksMu.Unlock()
			return out, nil
		}
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
		}
		var jj jwks
		if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
			return nil, err
		}

		r.jwksMu.Lock()
		r.jwks = &jj
		r.jwksAt = time.Now()
		r.jwksETag = resp.Header.Get("ETag")
		r.jwksMu.Unlock()
		return &jj, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	return v.(*jwks), nil
}

// KeyForKid devuelve la clave RSA pública del JWKS para el kid dado.
func (r *Resolver) KeyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	set, err := r.getJWKS(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range set.Keys {
		if k.Kid == kid && strings.EqualFold(k.Kty, "RSA") {
			return parseRSAKey(k)
		}
	}
	return nil, fmt.Errorf("%w: kid %q no está en el JWKS", ErrClaimValidation, kid)
}

func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("jwk n: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("jwk e: %w", err)
	}
	n := new(big.Int).SetBytes(nb)
	e := 0
	if len(eb) == 0 {
		e = 65537
	} else {
		// bytes big-endian a int
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}
