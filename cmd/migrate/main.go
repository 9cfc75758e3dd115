package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/internal/repository/postgres"
)

func main() {
	var down bool
	flag.BoolVar(&down, "down", false, "roll back the most recent migration instead of applying all")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if down {
		m, err := postgres.NewMigrator(cfg.Database.URL())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create migrator")
		}
		defer m.Close()

		if err := m.Steps(-1); err != nil {
			log.Fatal().Err(err).Msg("failed to roll back migration")
		}
		log.Info().Msg("rolled back one migration")
		return
	}

	if err := postgres.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	log.Info().Msg("migrations applied")
}
