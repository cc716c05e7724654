package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/hellosso/internal/config"
)

// Aplica las migraciones SQL de migrations/postgres en orden. Convención:
// NNNN_nombre_up.sql / NNNN_nombre_down.sql.
func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "config.yaml", "ruta del config YAML")
		dir        = flag.String("dir", "migrations/postgres", "directorio de migraciones")
	)
	flag.Parse()

	action := "up"
	if args := flag.Args(); len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN == "" {
		log.Fatal("migrate requiere storage.driver=postgres y storage.dsn")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	var suffix string
	switch action {
	case "up":
		suffix = "_up.sql"
	case "down":
		suffix = "_down.sql"
	default:
		log.Fatalf("acción desconocida %q (up | down)", action)
	}

	files, err := listSQL(*dir, suffix)
	if err != nil {
		log.Fatalf("listado: %v", err)
	}
	if len(files) == 0 {
		log.Println("sin migraciones, nada que hacer")
		return
	}
	sort.Strings(files)
	if action == "down" {
		// las down corren de la más nueva a la más vieja
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	log.Printf("aplicando %d migración(es) %s...", len(files), action)
	for _, f := range files {
		if err := execSQLFile(ctx, pool, f); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
	}
	log.Println("listo")
}

func listSQL(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func execSQLFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	start := time.Now()
	if _, err := pool.Exec(ctx, string(b)); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	log.Printf("OK %s (%s)", filepath.Base(path), time.Since(start).Truncate(time.Millisecond))
	return nil
}
