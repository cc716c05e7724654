package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellosso/internal/account"
)

func TestProvisionCreatesAndReuses(t *testing.T) {
	m := account.NewMemoryProvisioner()
	ctx := context.Background()
	id := account.Identity{Issuer: "https://idp.example", Subject: "u-1", DisplayName: "Ana"}

	first, err := m.Provision(ctx, id, true)
	require.NoError(t, err)
	require.True(t, first.Created)
	require.NotEmpty(t, first.UserID)

	second, err := m.Provision(ctx, id, true)
	require.NoError(t, err)
	require.False(t, second.Created, "la segunda vez no crea")
	require.Equal(t, first.UserID, second.UserID)
}

func TestProvisionKeyIsIssuerPlusSubject(t *testing.T) {
	m := account.NewMemoryProvisioner()
	ctx := context.Background()

	a, err := m.Provision(ctx, account.Identity{Issuer: "https://idp-a.example", Subject: "u-1"}, true)
	require.NoError(t, err)
	b, err := m.Provision(ctx, account.Identity{Issuer: "https://idp-b.example", Subject: "u-1"}, true)
	require.NoError(t, err)
	require.NotEqual(t, a.UserID, b.UserID,
		"mismo subject en issuers distintos tiene que dar cuentas distintas")

	// el email no participa del matcheo
	c, err := m.Provision(ctx, account.Identity{Issuer: "https://idp-a.example", Subject: "u-1", Email: "nuevo@example.org"}, true)
	require.NoError(t, err)
	require.Equal(t, a.UserID, c.UserID, "cambiar el email no puede cambiar la cuenta")
}

func TestProvisionRegistrationDisabled(t *testing.T) {
	m := account.NewMemoryProvisioner()
	_, err := m.Provision(context.Background(), account.Identity{Issuer: "https://idp.example", Subject: "nuevo"}, false)
	require.ErrorIs(t, err, account.ErrRegistrationDisabled)
}

func TestProvisionUpdatesDisplayName(t *testing.T) {
	m := account.NewMemoryProvisioner()
	ctx := context.Background()
	id := account.Identity{Issuer: "https://idp.example", Subject: "u-1", DisplayName: "Viejo"}

	_, err := m.Provision(ctx, id, true)
	require.NoError(t, err)

	id.DisplayName = "Nuevo"
	got, err := m.Provision(ctx, id, true)
	require.NoError(t, err)
	require.Equal(t, "Nuevo", got.DisplayName)
}
