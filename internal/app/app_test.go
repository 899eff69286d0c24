package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/bookbot/core/config"
	coredatabase "github.com/m3rciful/bookbot/core/database"
	coretelegram "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/state"
	"github.com/m3rciful/bookbot/internal/catalog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOT_TOKEN", "TELEGRAM_BOT_TOKEN", "TELEGRAM_RUN_MODE",
		"CATALOG_BACKEND", "CATALOG_PATH", "FILES_DIR",
		"SESSIONS_BACKEND", "SESSIONS_TTL", "REDIS_ADDR",
		"DB_DRIVER", "DB_PATH", "DATABASE_DB_DRIVER", "DATABASE_DB_PATH",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
catalog:
  backend: JSON
  path: data/books.json
files:
  dir: library
sessions:
  ttl: 30m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "123:abc", cfg.Telegram.Token)
	require.Equal(t, int64(42), cfg.CoreConfig().Telegram.AdminID)
	require.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, CatalogJSON, cfg.Catalog.Backend)
	require.Equal(t, "data/books.json", cfg.Catalog.Path)
	require.Equal(t, 3, cfg.Catalog.RecommendSize)
	require.Equal(t, "library", cfg.Files.Dir)
	require.Equal(t, SessionsMemory, cfg.Sessions.Backend)
	require.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	require.Equal(t, "@every 10m", cfg.Sessions.SweepSchedule)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "999:env")
	t.Setenv("CATALOG_BACKEND", "sql")
	t.Setenv("DB_PATH", "env.db")
	path := writeConfig(t, "telegram:\n  token: file-token\ncatalog:\n  backend: memory\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "999:env", cfg.Telegram.Token)
	require.Equal(t, CatalogSQL, cfg.Catalog.Backend)
	require.Equal(t, "env.db", cfg.Database.Path)
	require.Equal(t, filepath.Join("migrations", "sqlite"), cfg.Database.MigrationsDir)
}

func TestNormalizeRejectsInvalidValues(t *testing.T) {
	cases := map[string]Config{
		"catalog backend":  {Catalog: CatalogConfig{Backend: "csv"}},
		"sessions backend": {Sessions: SessionsConfig{Backend: "etcd"}},
		"redis addr":       {Sessions: SessionsConfig{Backend: SessionsRedis}},
		"negative ttl":     {Sessions: SessionsConfig{TTL: -time.Second}},
		"postgres host":    {Database: coredatabase.Config{Driver: coredatabase.DriverPostgres}},
	}
	for name, cfg := range cases {
		cfg := cfg
		require.Error(t, cfg.Normalize(), name)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Normalize())
	require.Equal(t, CatalogSQL, cfg.Catalog.Backend)
	require.Equal(t, "books.db", cfg.Database.Path)
	require.Equal(t, "books", cfg.Files.Dir)
	require.Equal(t, SessionsMemory, cfg.Sessions.Backend)
	require.Empty(t, cfg.Sessions.SweepSchedule, "no sweeping without a ttl")
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	cfg.Catalog.Backend = CatalogMemory
	cfg.Files.Dir = t.TempDir()
	require.NoError(t, cfg.Normalize())
	return cfg
}

func TestBuildMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sessions.TTL = time.Minute
	cfg.Sessions.SweepSchedule = "@every 1m"

	a, err := Build(cfg)
	require.NoError(t, err)

	_, err = a.Catalog().Add(context.Background(), catalog.NewBook{Title: "Кобзар"})
	require.NoError(t, err)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.Same(t, cfg.CoreConfig(), opts.Config)
	require.NotEmpty(t, opts.Middlewares)

	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	require.True(t, endpoints["/start"])
	require.True(t, endpoints[tele.OnQuery])

	require.NoError(t, opts.OnStart(context.Background(), coretelegram.Runtime{}))
	require.NotNil(t, a.sweeper)
	require.NoError(t, opts.OnStop(context.Background(), coretelegram.Runtime{}))
	require.Nil(t, a.sweeper)
}

func TestBuildJSONWithRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Catalog.Backend = CatalogJSON
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "books.json")
	cfg.Sessions.Backend = SessionsRedis
	cfg.Sessions.Redis.Addr = mr.Addr()
	require.NoError(t, cfg.Normalize())

	a, err := Build(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, ok := a.Catalog().(*catalog.JSONStore)
	require.True(t, ok)
	_, ok = a.sessions.(*state.RedisStore)
	require.True(t, ok)
}

func TestBuildSQL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Backend = CatalogSQL
	cfg.Database.Path = filepath.Join(t.TempDir(), "books.db")
	cfg.Database.MigrationsDir = filepath.Join("..", "..", "migrations", "sqlite")
	require.NoError(t, cfg.Normalize())

	a, err := Build(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	b, err := a.Catalog().Add(ctx, catalog.NewBook{Title: "Людина в пошуках сенсу", Author: "Віктор Франкл"})
	require.NoError(t, err)
	require.Equal(t, "людина_в_пошуках_сенсу.pdf", b.Filename)

	found, err := a.Catalog().FindByKeyword(ctx, "sens")
	require.NoError(t, err)
	require.Equal(t, b, found)
}

func TestOpenCatalogSQLRequiresDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Backend = CatalogSQL
	_, err := OpenCatalog(cfg, nil)
	require.Error(t, err)
}
