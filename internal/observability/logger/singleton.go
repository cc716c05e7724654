package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init construye el logger singleton. Idempotente: solo la primera llamada
// tiene efecto. Los main lo llaman antes de cualquier log.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L retorna el singleton. Sin Init previo arma uno de desarrollo (info),
// que es lo que quieren los tests.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev", Level: "info"})
	}
	return instance
}

// Named retorna un logger con nombre de componente (ej: "main", "http").
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushea buffers pendientes; va en un defer del main.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}
