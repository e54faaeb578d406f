// Command migrate applies or rolls back database migrations.
//
// Usage:
//
//	migrate [-dir db/migrations] [up|down]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	dir := flag.String("dir", "db/migrations", "migrations directory")
	flag.Parse()

	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+*dir, dbURL)
	if err != nil {
		log.Fatalf("open migrations: %v", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Printf("close migration source: %v", srcErr)
		}
		if dbErr != nil {
			log.Printf("close migration database: %v", dbErr)
		}
	}()

	direction := "up"
	if args := flag.Args(); len(args) > 0 {
		direction = args[0]
	}

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	default:
		log.Fatalf("unknown direction %q, want up or down", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("run migrations %s: %v", direction, err)
	}
	fmt.Printf("migrations %s complete\n", direction)
}
