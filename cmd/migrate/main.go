package main

import (
	"errors"
	"flag"
	"log"

	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	source := flag.String("source", "file://migrations", "Migration source URL")
	down := flag.Bool("down", false, "Roll back all migrations instead of applying them")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)

	m, err := migrate.New(*source, cfg.Postgres.GetURL())
	if err != nil {
		logger.Fatalw("Failed to initialise migrations", "error", err)
	}
	defer m.Close()

	if *down {
		logger.Info("Rolling back database migrations...")
		err = m.Down()
	} else {
		logger.Info("Running database migrations...")
		err = m.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No migrations to apply")
			return
		}
		logger.Fatalw("Migration failed", "error", err)
	}

	logger.Info("Migration completed successfully")
}
