package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/events"
	"github.com/oggyb/muzz-match/internal/matchmaker"
	"github.com/oggyb/muzz-match/internal/metrics"
)

// AppContext holds shared dependencies (DB, Redis, Logger, the core, etc.)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Events     events.Publisher
	Metrics    *metrics.Metrics
	Matchmaker *matchmaker.Matchmaker
}

// New creates a new AppContext and builds the matching core on top of db.
// publisher and m may be nil.
func New(
	db *gorm.DB,
	rdb *cache.RedisCache,
	logger *slog.Logger,
	publisher events.Publisher,
	m *metrics.Metrics,
	opts matchmaker.Options,
) *AppContext {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Events:     publisher,
		Metrics:    m,
		Matchmaker: matchmaker.New(matchmaker.NewStores(db), opts, publisher, m, logger.With("subsystem", "matchmaker")),
	}
}
