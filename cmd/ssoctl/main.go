package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellosso/internal/oidc"
	tokens "github.com/dropDatabas3/hellosso/internal/security/token"
)

func main() {
	var timeout time.Duration

	root := &cobra.Command{
		Use:   "ssoctl",
		Short: "Herramientas de diagnóstico del login federado",
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "timeout de las llamadas HTTP")

	// ssoctl discovery <issuer>
	discoveryCmd := &cobra.Command{
		Use:   "discovery <issuer>",
		Short: "Resuelve y muestra la metadata OIDC de un issuer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer := strings.TrimRight(args[0], "/")
			pc := &oidc.ProviderConfig{
				Issuer:          issuer,
				ClientID:        "ssoctl",
				RedirectURI:     "http://localhost/unused",
				Scopes:          []string{"openid"},
				EnableDiscovery: true,
			}
			r := oidc.NewResolver(pc, oidc.WithHTTPClient(&http.Client{Timeout: timeout}))
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			doc, err := r.Resolve(ctx)
			if err != nil {
				return err
			}
			p, _ := json.MarshalIndent(doc, "", "  ")
			fmt.Println(string(p))
			return nil
		},
	}

	// ssoctl pkce
	pkceCmd := &cobra.Command{
		Use:   "pkce",
		Short: "Genera un par code_verifier / code_challenge (S256)",
		RunE: func(cmd *cobra.Command, args []string) error {
			verifier, err := tokens.RandString(64)
			if err != nil {
				return err
			}
			out := map[string]string{
				"code_verifier":         verifier,
				"code_challenge":        tokens.SHA256Base64URL(verifier),
				"code_challenge_method": "S256",
			}
			p, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(p))
			return nil
		},
	}

	// ssoctl state
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Genera un state/nonce opaco como los que emite el servidor",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := tokens.GenerateOpaqueToken(32)
			if err != nil {
				return err
			}
			fmt.Println(s)
			return nil
		},
	}

	root.AddCommand(discoveryCmd, pkceCmd, stateCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
