package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmoiron/sqlx"

	"realestate/internal/config"
	"realestate/internal/db"
)

func main() {
	dir := flag.String("dir", envOr("MIGRATIONS_DIR", "migrations"), "directory holding *.sql migrations")
	status := flag.Bool("status", false, "print applied and pending migrations without applying")
	flag.Parse()

	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		log.Fatalf("failed to ensure schema_migrations: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatalf("failed to read migrations: %v", err)
	}
	sort.Strings(files)

	applied := map[string]bool{}
	var names []string
	if err := database.Select(&names, `SELECT filename FROM schema_migrations`); err != nil {
		log.Fatalf("failed to read migration state: %v", err)
	}
	for _, name := range names {
		applied[name] = true
	}

	for _, file := range files {
		filename := filepath.Base(file)
		if *status {
			state := "pending"
			if applied[filename] {
				state = "applied"
			}
			fmt.Printf("%-8s %s\n", state, filename)
			continue
		}
		if applied[filename] {
			continue
		}
		if err := applyFile(database, file); err != nil {
			log.Fatalf("failed to apply %s: %v", filename, err)
		}
		fmt.Printf("applied %s\n", filename)
	}
}

// applyFile runs the Up section and records the file in one transaction, so a
// failing statement leaves neither schema changes nor a bookkeeping row.
func applyFile(database *sqlx.DB, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := database.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range upStatements(string(content)) {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filepath.Base(path)); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
