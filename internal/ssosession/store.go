// Package ssosession guarda las sesiones efímeras del flujo de autorización:
// state, nonce y code_verifier generados en el redirect, consumidos una sola
// vez en el callback. El consumo es atómico (chequear y borrar bajo el mismo
// lock): dos callbacks con el mismo state jamás pasan los dos.
package ssosession

import (
	"context"
	"errors"
	"sync"
	"time"

	tokens "github.com/dropDatabas3/hellosso/internal/security/token"
)

const (
	stateBytes        = 32
	nonceBytes        = 32
	codeVerifierChars = 64
)

var (
	// ErrStateMismatch: el state del callback no corresponde a ninguna
	// sesión viva. Puede ser CSRF, replay o un state ya consumido.
	ErrStateMismatch = errors.New("ssosession: unknown or already consumed state")

	// ErrExpiredSession: el state existía pero venció antes del callback.
	ErrExpiredSession = errors.New("ssosession: session expired")
)

// Session es el registro efímero de un flujo en curso. El CodeVerifier nunca
// sale del servidor; al provider solo viaja el challenge.
type Session struct {
	State             string
	Nonce             string
	CodeVerifier      string
	CodeChallenge     string
	ClientRedirectURL string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// Store es el almacén en memoria de sesiones pendientes. El map bajo mutex
// permite el consume atómico que una cache genérica no ofrece.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration

	now func() time.Time // inyectable en tests
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create genera una sesión nueva con state, nonce y par PKCE frescos de CSPRNG.
func (s *Store) Create(clientRedirectURL string) (*Session, error) {
	state, err := tokens.GenerateOpaqueToken(stateBytes)
	if err != nil {
		return nil, err
	}
	nonce, err := tokens.GenerateOpaqueToken(nonceBytes)
	if err != nil {
		return nil, err
	}
	verifier, err := tokens.RandString(codeVerifierChars)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &Session{
		State:             state,
		Nonce:             nonce,
		CodeVerifier:      verifier,
		CodeChallenge:     tokens.SHA256Base64URL(verifier),
		ClientRedirectURL: clientRedirectURL,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[state] = sess
	s.mu.Unlock()
	return sess, nil
}

// Consume busca la sesión por state y la elimina en la misma operación.
// Una sesión vencida también se elimina pero devuelve ErrExpiredSession.
func (s *Store) Consume(state string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[state]
	if !ok {
		return nil, ErrStateMismatch
	}
	delete(s.sessions, state)
	if s.now().After(sess.ExpiresAt) {
		return nil, ErrExpiredSession
	}
	return sess, nil
}

// Len devuelve la cantidad de sesiones pendientes (métricas, tests).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep elimina sesiones vencidas y devuelve cuántas barrió. Las sesiones
// abandonadas (usuario que nunca volvió del provider) solo salen por acá.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for state, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, state)
			n++
		}
	}
	return n
}

// StartSweeper corre Sweep periódicamente hasta que el contexto se cancele.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
		if s.ttl < interval {
			interval = s.ttl
		}
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}
