package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/m3rciful/bookbot/core/bootstrap"
	"github.com/m3rciful/bookbot/core/logger"
	coretelegram "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/state"
	"github.com/m3rciful/bookbot/internal/bot"
	"github.com/m3rciful/bookbot/internal/catalog"
	"github.com/m3rciful/bookbot/internal/delivery"
	"github.com/m3rciful/bookbot/internal/dialog"
)

// App owns the long-lived collaborators of a running bot.
type App struct {
	cfg *Config
	res *bootstrap.Result

	books    catalog.Store
	sessions state.Store
	redis    *redis.Client
	manager  *state.Manager
	handlers *bot.Handlers
	sweeper  *cron.Cron
}

// Build initializes logging, storage and handlers.
func Build(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	opts := bootstrap.Options{Config: cfg.CoreConfig()}
	if cfg.Catalog.Backend == CatalogSQL {
		db := cfg.Database
		opts.Database = &db
	}
	res, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, res: res}
	if err := a.init(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	books, err := OpenCatalog(a.cfg, a.res)
	if err != nil {
		return err
	}
	a.books = books

	switch a.cfg.Sessions.Backend {
	case SessionsRedis:
		rc := a.cfg.Sessions.Redis
		a.redis = redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		rs := state.NewRedisStore(a.redis, rc.Prefix, a.cfg.Sessions.TTL)
		if err := rs.Ping(context.Background()); err != nil {
			return fmt.Errorf("app: redis: %w", err)
		}
		a.sessions = rs
	default:
		a.sessions = state.NewMemoryStore(state.WithTTL(a.cfg.Sessions.TTL))
	}

	a.manager = state.NewManager(a.sessions)
	deps := bot.Deps{
		Books:         a.books,
		Dialog:        dialog.New(a.sessions, a.books),
		Files:         delivery.NewLibrary(a.cfg.Files.Dir),
		RecommendSize: a.cfg.Catalog.RecommendSize,
	}
	if counter, ok := a.sessions.(bot.SessionCounter); ok {
		deps.Sessions = counter
	}
	a.handlers = bot.NewHandlers(deps)

	logger.L.With("component", "app").Info("app built",
		slog.String("event", "build"),
		slog.String("catalog", a.cfg.Catalog.Backend),
		slog.String("sessions", a.cfg.Sessions.Backend),
		slog.String("files_dir", a.cfg.Files.Dir),
	)
	return nil
}

// OpenCatalog returns the catalog backend selected by cfg.
// The SQL backend requires res.DB.
func OpenCatalog(cfg *Config, res *bootstrap.Result) (catalog.Store, error) {
	switch cfg.Catalog.Backend {
	case CatalogMemory:
		return catalog.NewMemoryStore(), nil
	case CatalogJSON:
		return catalog.OpenJSONStore(cfg.Catalog.Path)
	case CatalogSQL:
		if res == nil || res.DB == nil {
			return nil, errors.New("app: sql catalog without database")
		}
		return catalog.NewSQLStore(res.DB), nil
	}
	return nil, fmt.Errorf("app: unknown catalog backend %q", cfg.Catalog.Backend)
}

// Config returns the configuration the app was built from.
func (a *App) Config() *Config {
	return a.cfg
}

// Catalog returns the catalog store.
func (a *App) Catalog() catalog.Store {
	return a.books
}

// TelegramRunOptions assembles registry, routes, middleware and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := bot.Register(reg, a.manager, a.handlers); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}
	fb := bot.Fallbacks{}
	core := a.cfg.CoreConfig()

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, fb.RateLimited()),
		Routes:      bot.Routes(reg, a.manager, a.handlers, fb, core.Telegram.AdminID),
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			return a.start(ctx)
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.Close()
		},
	}, nil
}

func (a *App) start(ctx context.Context) error {
	if js, ok := a.books.(*catalog.JSONStore); ok && a.cfg.Catalog.Watch {
		go func() {
			if err := js.Watch(ctx); err != nil {
				logger.Catalog.Warn("catalog watch stopped",
					slog.String("event", "catalog.watch"),
					slog.String("err", err.Error()),
				)
			}
		}()
	}
	if ms, ok := a.sessions.(*state.MemoryStore); ok && a.cfg.Sessions.TTL > 0 {
		c, err := state.StartSweeper(ms, a.cfg.Sessions.SweepSchedule)
		if err != nil {
			return err
		}
		a.sweeper = c
	}
	return nil
}

// Close stops background jobs and releases connections.
func (a *App) Close() error {
	if a.sweeper != nil {
		<-a.sweeper.Stop().Done()
		a.sweeper = nil
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
		a.redis = nil
	}
	if a.res != nil {
		errs = append(errs, a.res.Close())
		a.res = nil
	}
	return errors.Join(errs...)
}
