package commands

import (
	"fmt"

	"github.com/efund/unitperf/internal/calendar"
	"github.com/efund/unitperf/internal/corpaction"
	"github.com/efund/unitperf/internal/efficiency"
	"github.com/efund/unitperf/internal/marketdata"
	"github.com/efund/unitperf/internal/positions"
	"github.com/efund/unitperf/internal/swing"
	"github.com/efund/unitperf/internal/turnover"
	"github.com/efund/unitperf/pkg/config"
	"github.com/efund/unitperf/pkg/database"
	"github.com/efund/unitperf/pkg/logger"
	"github.com/efund/unitperf/pkg/redis"
)

// runtime holds the wired application graph shared by every command.
type runtime struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *database.DB
	cache  *redis.Client

	positions  *positions.Repository
	turnover   *turnover.Engine
	swing      *swing.Engine
	efficiency *efficiency.Engine
}

// initRuntime loads config, connects to the backing stores, and wires the
// three engines. Callers own the returned handles and must call close.
func initRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	cacheClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	frameCache := redis.NewCache(cacheClient, "unitperf")

	aligner := calendar.NewAligner(cfg.Engine.FillLimit, log)
	checker := calendar.NewChecker(calendar.NewRepository(db.Pool), aligner, frameCache, log)

	posRepo := positions.NewRepository(db.Pool)
	actRepo := corpaction.NewRepository(db.Pool)
	quoteRepo := marketdata.NewRepository(db.Pool, aligner, frameCache, log)
	adjuster := corpaction.NewAdjuster(log)

	turnEngine := turnover.NewEngine(posRepo, quoteRepo, checker, turnover.NewRepository(db.Pool), log)
	swingEngine := swing.NewEngine(posRepo, actRepo, quoteRepo, adjuster, checker,
		swing.NewRepository(db.Pool), log)
	effEngine := efficiency.NewEngine(posRepo, actRepo, quoteRepo, adjuster, checker,
		efficiency.NewRepository(db.Pool), cfg.Engine.CostCutoverDate, log)

	return &runtime{
		cfg:        cfg,
		logger:     log,
		db:         db,
		cache:      cacheClient,
		positions:  posRepo,
		turnover:   turnEngine,
		swing:      swingEngine,
		efficiency: effEngine,
	}, nil
}

func (rt *runtime) close() {
	if rt.cache != nil {
		rt.cache.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
}
