// Package sso orquesta el flujo completo de login federado: construir el
// redirect al provider, y en el callback validar state, canjear el code,
// verificar el id_token y aprovisionar la cuenta local.
package sso

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellosso/internal/account"
	"github.com/dropDatabas3/hellosso/internal/metrics"
	"github.com/dropDatabas3/hellosso/internal/observability/logger"
	"github.com/dropDatabas3/hellosso/internal/oidc"
	"github.com/dropDatabas3/hellosso/internal/ssosession"
	"github.com/dropDatabas3/hellosso/internal/util"
)

// Flow ata todas las piezas del login federado. Es stateless salvo por sus
// colaboradores; seguro para uso concurrente.
type Flow struct {
	pc       *oidc.ProviderConfig
	client   *oidc.Client
	sessions *ssosession.Store
	accounts account.Provisioner
}

func NewFlow(pc *oidc.ProviderConfig, client *oidc.Client, sessions *ssosession.Store, accounts account.Provisioner) *Flow {
	return &Flow{
		pc:       pc,
		client:   client,
		sessions: sessions,
		accounts: accounts,
	}
}

// BuildRedirect crea la sesión de autorización y devuelve la URL del
// provider a la que hay que mandar al navegador.
func (f *Flow) BuildRedirect(ctx context.Context, clientRedirectURL string) (string, error) {
	sess, err := f.sessions.Create(clientRedirectURL)
	if err != nil {
		return "", err
	}
	authURL, err := f.client.AuthURL(ctx, sess.State, sess.Nonce, sess.CodeChallenge)
	if err != nil {
		// la sesión queda huérfana; el sweeper la levanta al vencer
		return "", err
	}
	return authURL, nil
}

// CallbackResult es el desenlace exitoso del callback.
type CallbackResult struct {
	Account           *account.ProvisionedAccount
	ClientRedirectURL string
}

// HandleCallback procesa los query params que mandó el provider. El orden de
// chequeos es fijo: error del provider, consumo del state, intercambio,
// verificación del id_token, claims, provisioning. El state se consume
// incluso cuando el provider reporta error, así la sesión no queda viva.
func (f *Flow) HandleCallback(ctx context.Context, q url.Values) (*CallbackResult, error) {
	if e := q.Get("error"); e != "" {
		_, _ = f.sessions.Consume(q.Get("state"))
		return nil, fmt.Errorf("%w: %s: %s", ErrProviderDenied, e, q.Get("error_description"))
	}

	sess, err := f.sessions.Consume(q.Get("state"))
	if err != nil {
		return nil, err
	}

	code := q.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: callback sin code", ErrProviderDenied)
	}

	tr, err := f.client.ExchangeCode(ctx, code, sess.CodeVerifier)
	if err != nil {
		return nil, err
	}

	var idMap map[string]any
	if tr.IDToken != "" {
		claims, err := f.client.VerifyIDToken(ctx, tr.IDToken, sess.Nonce)
		if err != nil {
			return nil, err
		}
		idMap = map[string]any(claims)
	}

	ic, err := f.resolveClaims(ctx, idMap, tr.AccessToken)
	if err != nil {
		return nil, err
	}

	acct, err := f.accounts.Provision(ctx, account.Identity{
		Issuer:      f.pc.Issuer,
		Subject:     ic.Subject,
		DisplayName: ic.DisplayName,
		Email:       ic.Email,
	}, f.pc.RegisterUser)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	logger.FromWithFields(ctx,
		logger.Issuer(f.pc.Issuer),
		logger.Subject(ic.Subject),
		logger.UserID(acct.UserID),
		logger.Email(util.MaskEmail(ic.Email)),
		zap.Bool("created", acct.Created),
	).Info("login SSO completado")

	return &CallbackResult{Account: acct, ClientRedirectURL: sess.ClientRedirectURL}, nil
}

// resolveClaims arma la identidad final. El userinfo solo se consulta cuando
// hace falta: no hubo id_token, o al id_token le faltan subject o display
// name. El id_token siempre pisa al userinfo en claves repetidas.
func (f *Flow) resolveClaims(ctx context.Context, idMap map[string]any, accessToken string) (*oidc.IdentityClaims, error) {
	ic, err := oidc.BuildIdentityClaims(f.pc, idMap, nil)
	if err == nil && ic.DisplayName != "" {
		return ic, nil
	}

	ui, uerr := f.client.FetchUserInfo(ctx, accessToken)
	if uerr != nil || ui == nil {
		// sin userinfo utilizable: vale lo que dio el id_token solo
		if err != nil {
			return nil, err
		}
		return ic, nil
	}
	return oidc.BuildIdentityClaims(f.pc, idMap, ui)
}
