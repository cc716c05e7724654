package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client habla con el provider: URL de autorización, intercambio de codes
// y userinfo. La metadata la aporta el Resolver.
type Client struct {
	pc       *ProviderConfig
	resolver *Resolver
	httpc    *http.Client
}

func NewClient(pc *ProviderConfig, resolver *Resolver, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{pc: pc, resolver: resolver, httpc: httpc}
}

// AuthURL construye la URL de autorización con state, nonce y PKCE S256.
func (c *Client) AuthURL(ctx context.Context, state, nonce, codeChallenge string) (string, error) {
	doc, err := c.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(doc.AuthorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("%w: authorization_endpoint inválido: %v", ErrDiscovery, err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.pc.ClientID)
	q.Set("redirect_uri", c.pc.RedirectURI)
	q.Set("scope", c.pc.ScopeString())
	q.Set("state", state)
	q.Set("nonce", nonce)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ExchangeCode canjea el authorization code por tokens. El code_verifier va
// en el form para PKCE. No hay retries: el code es single-use y un reintento
// tras un fallo ambiguo puede quemar un code ya consumido.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenResponse, error) {
	doc, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.pc.ClientID)
	form.Set("client_secret", c.pc.ClientSecret)
	form.Set("redirect_uri", c.pc.RedirectURI)
	form.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, doc.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("%w: token http %d: %s %s", ErrTokenExchange, resp.StatusCode, b.Error, b.ErrorDescription)
	}
	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrTokenExchange, err)
	}
	return &tr, nil
}
