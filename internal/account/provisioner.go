// Package account resuelve la identidad federada (issuer, subject) a una
// cuenta local, creándola si la registración automática está habilitada.
package account

import (
	"context"
	"errors"
)

// ErrRegistrationDisabled: la identidad no existe y register_user=false.
var ErrRegistrationDisabled = errors.New("account: unknown identity and registration disabled")

// ErrProvisioning: el storage falló al buscar o crear la cuenta. Se envuelve
// con %w sobre el error del driver.
var ErrProvisioning = errors.New("account: provisioning failed")

// Identity es lo que el provider afirmó sobre el usuario, ya validado.
type Identity struct {
	Issuer      string
	Subject     string
	DisplayName string
	Email       string
}

// ProvisionedAccount es el resultado del provisioning: la cuenta local que
// va a recibir la credencial de sesión.
type ProvisionedAccount struct {
	UserID      string
	Issuer      string
	Subject     string
	DisplayName string
	Created     bool
}

// Provisioner mapea identidades federadas a cuentas locales. La clave de
// búsqueda es siempre (issuer, subject); el email puede cambiar en el
// provider y jamás se usa para matchear.
type Provisioner interface {
	Provision(ctx context.Context, id Identity, register bool) (*ProvisionedAccount, error)
}
