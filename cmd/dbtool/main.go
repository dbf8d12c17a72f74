package main

import (
	"database/sql"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"commuter-sim-service/internal/adapters/content"
	"commuter-sim-service/internal/config"
	"commuter-sim-service/internal/platform/db"
)

// dbtool initializes and seeds a shared Postgres content store. The
// server's embedded SQLite path covers local runs; this tool targets
// deployments where depots, routes, and spawn configs live centrally.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/content.json")
	initAndSeed(conn, seedPath)
}

func initAndSeed(conn *sql.DB, seedPath string) {
	log.Println("Initializing content schema...")
	if err := content.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	log.Println("Seeding content...")
	if err := content.SeedFromJSON(conn, content.DialectPostgres, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
