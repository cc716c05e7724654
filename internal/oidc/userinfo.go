package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// FetchUserInfo llama al userinfo_endpoint con el access token. Devuelve
// (nil, nil) si el provider no publica endpoint. Providers estilo forja
// devuelven "login" en vez de "sub"; se normaliza acá para que el resto del
// pipeline vea siempre "sub".
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	doc, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if doc.UserinfoEndpoint == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.UserinfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrClaimValidation, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrClaimValidation, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: userinfo http %d", ErrClaimValidation, resp.StatusCode)
	}
	var ui map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("%w: userinfo body: %v", ErrClaimValidation, err)
	}
	if _, ok := ui["sub"]; !ok {
		if login, ok := ui["login"]; ok {
			ui["sub"] = login
		}
	}
	return ui, nil
}
