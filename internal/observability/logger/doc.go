// Package logger provee el logger zap del servicio: un singleton más un
// mecanismo de scoping por request vía contexto.
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: el middleware HTTP inyecta un logger con request_id y
//     client_ip; los handlers lo recuperan con From(ctx) sin tocar el core.
//   - Entornos: "dev" usa consola con colores, "prod" JSON.
//
// Inicialización (una vez, en main):
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
// En handlers (con contexto):
//
//	logger.From(ctx).Info("login SSO completado", logger.UserID(id))
//
// Sin contexto (fallback al singleton):
//
//	logger.L().Info("servidor arriba")
package logger
