package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar para que todos los logs del subsistema SSO usen
// las mismas keys (facilita queries en el agregador).

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// ClientIP crea un campo para la IP del cliente.
// Obligatorio en fallos de state/sesión: es la señal de abuso.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Issuer crea un campo para el issuer del provider OIDC.
func Issuer(v string) zap.Field {
	return zap.String("issuer", v)
}

// Subject crea un campo para el subject (claim `sub`) del provider.
func Subject(v string) zap.Field {
	return zap.String("subject", v)
}

// UserID crea un campo para el ID del usuario local.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// Email crea un campo para un email YA enmascarado (util.MaskEmail).
// Nunca loguear el email crudo.
func Email(masked string) zap.Field {
	return zap.String("email", masked)
}

// Outcome crea un campo para el resultado de un intento de login
// (ok, provider_denied, state_mismatch, ...). Mismos valores que las métricas.
func Outcome(v string) zap.Field {
	return zap.String("outcome", v)
}

// Err crea el campo estándar de error.
func Err(err error) zap.Field {
	return zap.Error(err)
}
