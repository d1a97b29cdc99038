package main

import (
	"flag"
	"os"

	"github.com/lgndcraft2/ledger/internal/config"
	"github.com/lgndcraft2/ledger/internal/logging"
	"github.com/lgndcraft2/ledger/internal/storage"
)

func main() {
	down := flag.Bool("down", false, "roll back all migrations instead of applying them")
	flag.Parse()

	config.LoadDotenv()
	cfg := config.LoadServer()
	log := logging.New(logging.Config{Level: cfg.LogLevel, Console: true, Service: "ledger-migrate"})

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	dir := storage.Up
	if *down {
		dir = storage.Down
	}

	log.Info().Str("direction", string(dir)).Msg("applying migrations")
	if err := storage.Migrate(cfg.DatabaseURL, dir); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
	log.Info().Msg("migrations applied")
}
