package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/iNESlab/golbang-live/go/internal/persist"
	"github.com/iNESlab/golbang-live/go/internal/scorecache"
	"github.com/iNESlab/golbang-live/go/internal/scoring"
	"github.com/iNESlab/golbang-live/go/internal/scoring/events"
	"github.com/iNESlab/golbang-live/go/internal/scoring/gateway"
	"github.com/iNESlab/golbang-live/go/internal/store"
)

type Services struct {
	Cache     scorecache.ScoreCache
	Store     *store.Repository
	App       *scoring.App
	Scheduler *persist.Scheduler
	Gateway   *gateway.Service
	Publisher *events.JetStreamPublisher // nil when events are disabled
}

func setupServices(cfg *Config, pool *pgxpool.Pool, rdb *redis.Client) (*Services, error) {
	// Wiring order matters: the scheduler tracks viewers for the gateway,
	// the gateway's connection manager is the app's broadcaster, and the
	// app is the scheduler's flusher. The flusher is attached after the
	// app exists.

	cache := scorecache.NewRedisCache(rdb, cfg.CacheTTL())
	repo := store.NewRepository(pool)

	var publisher *events.JetStreamPublisher
	var appPublisher scoring.EventPublisher
	if cfg.Events.Enabled {
		jsCfg := events.DefaultJetStreamConfig()
		jsCfg.URL = getEnv("NATS_URL", nats.DefaultURL)
		jsCfg.StreamName = cfg.Events.StreamName
		jsCfg.SubjectPrefix = cfg.Events.SubjectPrefix

		p, err := events.NewJetStreamPublisher(jsCfg)
		if err != nil {
			// Scoring must keep serving without the broker; downstream
			// consumers catch up from the durable store.
			log.Warn().Err(err).Msg("event publisher unavailable, continuing without it")
		} else {
			publisher = p
			appPublisher = p
		}
	}

	scheduler := persist.NewScheduler(nil, nil, cfg.FlushInterval(), nil)

	gwConfig := gateway.DefaultConnectionConfig()
	gwConfig.SnapshotInterval = cfg.SnapshotInterval()
	manager := gateway.NewConnectionManager(gwConfig, scheduler, nil)

	app := scoring.NewApp(cache, repo, manager, appPublisher)
	scheduler.SetFlusher(app, app)

	gw := gateway.NewService(manager, app)

	return &Services{
		Cache:     cache,
		Store:     repo,
		App:       app,
		Scheduler: scheduler,
		Gateway:   gw,
		Publisher: publisher,
	}, nil
}
