package account

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryProvisioner guarda identidades en memoria. Para desarrollo y tests;
// los datos se pierden al reiniciar.
type MemoryProvisioner struct {
	mu    sync.Mutex
	byKey map[identKey]*record
}

type identKey struct {
	issuer, subject string
}

type record struct {
	userID      string
	displayName string
	email       string
}

func NewMemoryProvisioner() *MemoryProvisioner {
	return &MemoryProvisioner{byKey: make(map[identKey]*record)}
}

func (m *MemoryProvisioner) Provision(_ context.Context, id Identity, register bool) (*ProvisionedAccount, error) {
	key := identKey{issuer: id.Issuer, subject: id.Subject}
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.byKey[key]; ok {
		if id.DisplayName != "" {
			rec.displayName = id.DisplayName
		}
		return &ProvisionedAccount{
			UserID:      rec.userID,
			Issuer:      id.Issuer,
			Subject:     id.Subject,
			DisplayName: rec.displayName,
		}, nil
	}
	if !register {
		return nil, ErrRegistrationDisabled
	}
	rec := &record{
		userID:      uuid.NewString(),
		displayName: id.DisplayName,
		email:       id.Email,
	}
	m.byKey[key] = rec
	return &ProvisionedAccount{
		UserID:      rec.userID,
		Issuer:      id.Issuer,
		Subject:     id.Subject,
		DisplayName: rec.displayName,
		Created:     true,
	}, nil
}
