package sso

import "errors"

// ErrProviderDenied: el provider redirigió con ?error= (el usuario canceló,
// el consentimiento fue denegado) o el callback vino sin code.
var ErrProviderDenied = errors.New("sso: provider denied authorization")
