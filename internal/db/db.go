package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/webrecap/webrecap/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DSN builds a lib/pq connection string; used by both Open and the
// notify listener, which needs its own connection.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
}

func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// DefaultEmbeddingDim matches the all-MiniLM family used by the default
// embedding model.
const DefaultEmbeddingDim = 384

// renderMigration fills the embedding dimension into the schema. Vector
// columns are sized at migration time; changing ai.embedding_dim on an
// existing database requires a manual column rebuild.
func renderMigration(content string, embeddingDim int) string {
	if embeddingDim <= 0 {
		embeddingDim = DefaultEmbeddingDim
	}
	return strings.ReplaceAll(content, "__EMBEDDING_DIM__", fmt.Sprintf("%d", embeddingDim))
}

func ApplyMigrations(db *sql.DB, embeddingDim int) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return err
		}
		queries := strings.Split(renderMigration(string(content), embeddingDim), ";")
		for _, q := range queries {
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			if _, err := db.Exec(q); err != nil {
				if strings.Contains(err.Error(), "already exists") {
					continue
				}
				return fmt.Errorf("execute query in %s: %w", file, err)
			}
		}
	}
	return nil
}
