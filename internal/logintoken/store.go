// Package logintoken emite el credencial efímero que el cliente canjea por
// su sesión después del callback. El token viaja una sola vez en la URL de
// redirección; acá solo se guarda su hash.
package logintoken

import (
	"errors"
	"sync"
	"time"

	"github.com/dropDatabas3/hellosso/internal/cache"
	tokens "github.com/dropDatabas3/hellosso/internal/security/token"
)

const (
	tokenBytes = 32
	keyPrefix  = "logintok:"
)

// ErrInvalidToken: token desconocido, vencido o ya canjeado.
var ErrInvalidToken = errors.New("logintoken: invalid or already redeemed token")

// Store emite y canjea login tokens one-shot respaldados por la cache.
// El mutex serializa Redeem para que dos canjes del mismo token no pasen
// los dos con un backend que no ofrece get-and-delete atómico.
type Store struct {
	mu  sync.Mutex
	c   cache.Cache
	ttl time.Duration
}

func NewStore(c cache.Cache, ttl time.Duration) *Store {
	return &Store{c: c, ttl: ttl}
}

// Issue genera un token opaco para userID y lo guarda hasheado con TTL.
func (s *Store) Issue(userID string) (string, error) {
	tok, err := tokens.GenerateOpaqueToken(tokenBytes)
	if err != nil {
		return "", err
	}
	s.c.Set(keyPrefix+tokens.SHA256Base64URL(tok), []byte(userID), s.ttl)
	return tok, nil
}

// Redeem canjea el token y lo invalida. Un segundo canje devuelve
// ErrInvalidToken.
func (s *Store) Redeem(tok string) (string, error) {
	key := keyPrefix + tokens.SHA256Base64URL(tok)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(key)
	if !ok {
		return "", ErrInvalidToken
	}
	s.c.Delete(key)
	return string(v), nil
}
