// Package cache provee una abstracción mínima de caching con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing y single-node)
//   - Redis (distribuido, para despliegues multi-nodo)
//
// El subsistema SSO lo usa para los login tokens one-shot; las sesiones de
// autorización NO pasan por acá (necesitan consume atómico, ver ssosession).
package cache

import "time"

// Cache define las operaciones mínimas que necesita el subsistema.
type Cache interface {
	// Get obtiene un valor. ok=false si no existe o expiró.
	Get(key string) (value []byte, ok bool)

	// Set guarda un valor con TTL. Si ttl es 0, usa el default del backend.
	Set(key string, value []byte, ttl time.Duration)

	// Delete elimina una key.
	Delete(key string)
}
