package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"discount-strategy-api/internal/database"
	"discount-strategy-api/internal/rules"
)

// seed replaces the stored rules with the contents of a rule file, or with
// -export writes the stored rules back out as YAML.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	rulesPath := flag.String("rules", envOr("RULES_PATH", "./configs/rules.yaml"), "Rule file to import")
	dbPath := flag.String("db", envOr("DATABASE_PATH", "./discount_rules.db"), "SQLite database file")
	dryRun := flag.Bool("dry-run", false, "Validate the rule file without writing")
	export := flag.String("export", "", "Write the stored rules to this YAML file instead of importing")
	flag.Parse()

	if *export != "" {
		exportRules(*dbPath, *export)
		return
	}

	repo, err := rules.Load(*rulesPath)
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}
	log.Printf("Loaded %d stores from %s (version %s)", len(repo.Stores()), *rulesPath, repo.Version())
	if *dryRun {
		return
	}

	db, err := database.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.ImportDocument(ctx, repo.Document()); err != nil {
		log.Fatalf("Failed to import rules: %v", err)
	}

	n, err := db.CountStores(ctx)
	if err != nil {
		log.Fatalf("Failed to count stores: %v", err)
	}
	log.Printf("Seeding completed successfully! %d stores stored in %s", n, *dbPath)
}

func exportRules(dbPath, out string) {
	db, err := database.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	doc, err := db.LoadDocument(context.Background())
	if err != nil {
		log.Fatalf("Failed to load stored rules: %v", err)
	}
	// refuse to write a document the server would reject
	repo, err := rules.NewRepository(doc)
	if err != nil {
		log.Fatalf("Stored rules are invalid: %v", err)
	}

	data, err := rules.Marshal(repo.Document())
	if err != nil {
		log.Fatalf("Failed to encode rules: %v", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", out, err)
	}
	log.Printf("Exported %d stores to %s (version %s)", len(repo.Stores()), out, repo.Version())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
