package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillgraph/pkg/cache"
	"github.com/jingkaihe/skillgraph/pkg/db"
	"github.com/jingkaihe/skillgraph/pkg/db/migrations"
	"github.com/jingkaihe/skillgraph/pkg/engine"
	"github.com/jingkaihe/skillgraph/pkg/feedback"
	"github.com/jingkaihe/skillgraph/pkg/logger"
)

// openDB opens the configured database and applies pending migrations
func openDB(ctx context.Context) (*sqlx.DB, error) {
	sqlDB, err := db.Open(ctx, cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if _, err := db.NewMigrationRunner(sqlDB).Run(ctx, migrations.All()); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	return sqlDB, nil
}

// app bundles the engine with the stores backing it
type app struct {
	engine   *engine.Engine
	feedback *feedback.Store
	cache    *cache.Cache
	db       *sqlx.DB
}

// newApp wires the engine from the loaded configuration. Without a usable
// database the engine still runs, without feedback and caching.
func newApp(ctx context.Context) *app {
	a := &app{}
	opts := []engine.Option{engine.WithAlternatives(cfg.Assembly.Alternatives)}

	sqlDB, err := openDB(ctx)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", cfg.DB.Path).Warn("database unavailable, running without feedback and cache")
	} else {
		a.db = sqlDB
		a.feedback = feedback.NewStore(sqlDB)
		opts = append(opts, engine.WithFeedback(a.feedback))
		if cfg.Cache.Enabled {
			a.cache = cache.New(sqlDB)
			opts = append(opts, engine.WithCache(a.cache))
		}
	}

	a.engine = engine.New(engine.SkillSource{Config: cfg.Skills}, opts...)
	return a
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
