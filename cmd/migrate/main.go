// Command migrate applies or rolls back the database schema.
//
//	migrate            apply schema migrations
//	migrate -seed      also load the demo data
//	migrate -down      roll everything back
//	migrate -to N      move to version N
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"ticketnepal/internal/config"
	"ticketnepal/internal/database/migrations"
	"ticketnepal/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	seed := flag.Bool("seed", false, "also apply demo data migrations")
	down := flag.Bool("down", false, "roll back all migrations")
	to := flag.Uint("to", 0, "migrate to this version")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir, "migrate", logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	runner := migrations.NewRunner(sqldb, migrations.MigrateOptions{Dir: cfg.App.MigrationsDir, SeedData: *seed}, log)
	defer runner.Close()

	switch {
	case *down:
		err = runner.MigrateDown()
	case *to > 0:
		err = runner.MigrateTo(*to)
	default:
		err = runner.RunMigrations()
	}
	if err != nil {
		log.Error("MIGRATE", err.Error())
		os.Exit(1)
	}
	log.Info("MIGRATE", "Migrations complete")
}
