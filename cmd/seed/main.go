package main

import (
	"context"
	"os"

	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/matchmaker"
)

// Seeds demo data, then runs one reconciliation sweep so the reciprocal
// likes left pending by the seed become matches with a conversation.
func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	mm := matchmaker.New(matchmaker.NewStores(database), matchmaker.OptionsFromConfig(cfg), nil, nil, logger.Named("matchmaker"))
	stats, err := mm.Sweeper.Sweep(context.Background())
	if err != nil {
		log.Error("sweep failed", "err", err)
		os.Exit(1)
	}

	log.Info("seeding completed", "scanned", stats.Scanned, "repaired", stats.Repaired, "failed", stats.Failed)
}
