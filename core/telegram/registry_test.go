package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/bookbot/core/config"
	"github.com/m3rciful/bookbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "menu"}))
	require.NoError(t, reg.RegisterCommand("/books", commands.Command{Handler: noop, Description: "list", Aliases: []string{"list"}}))
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "stats", AdminOnly: true, Hidden: true}))

	// Invalid registrations are skipped.
	require.Error(t, reg.RegisterCommand("nostart", commands.Command{Handler: noop, Description: "x"}))
	require.Error(t, reg.RegisterCommand("/empty", commands.Command{Handler: noop}))
	require.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "dup"}))
	require.Error(t, reg.RegisterCommand("/list", commands.Command{Handler: noop, Description: "clash"}))
	require.Error(t, reg.RegisterCommand("/menu", commands.Command{Handler: noop, Description: "m", Aliases: []string{"books"}}))

	require.Len(t, reg.Commands(), 3)
	require.Equal(t, "menu", reg.Commands()["/start"].Description)

	visible := reg.ListCommands(true)
	require.Equal(t, []tele.Command{
		{Text: "/start", Description: "menu"},
		{Text: "/books", Description: "list"},
	}, visible)
	require.Len(t, reg.ListCommands(false), 3)
}

func TestRegistryHelpLines(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/books", commands.Command{Handler: noop, Description: "Список книжок"})
	reg.RegisterCommand("/get", commands.Command{Handler: noop, Description: "Отримати файл", Usage: "<назва>"})
	reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "stats", AdminOnly: true})

	require.Equal(t, []string{
		"/books — Список книжок",
		"/get <назва> — Отримати файл",
	}, reg.HelpLines())
}

func TestRegistryLookupCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/books", commands.Command{Handler: noop, Description: "list", Aliases: []string{"list"}})

	key, _, ok := reg.LookupCommand("/books")
	require.True(t, ok)
	require.Equal(t, "/books", key)

	key, _, ok = reg.LookupCommand("list")
	require.True(t, ok)
	require.Equal(t, "/books", key)

	key, _, ok = reg.LookupCommand("/books@book_bot extra")
	require.True(t, ok)
	require.Equal(t, "/books", key)

	_, _, ok = reg.LookupCommand("Маленький принц")
	require.False(t, ok)
	_, _, ok = reg.LookupCommand("   ")
	require.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("get", noop))
	require.Error(t, reg.RegisterCallback("get", noop))
	require.Error(t, reg.RegisterCallback("", noop))
	require.NoError(t, reg.RegisterCallback("books", noop))

	_, ok := reg.GetCallback("get")
	require.True(t, ok)
	require.Equal(t, []string{"books", "get"}, reg.ListCallbacks())
	require.NotNil(t, reg.CallbackNotFound())
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{
		RunMode:     "Webhook",
		DropPending: true,
		Webhook:     WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook", SecretToken: "s3cret"},
	})
	wh, ok := p.(*tele.Webhook)
	require.True(t, ok)
	require.Equal(t, "0.0.0.0:8443", wh.Listen)
	require.Equal(t, "s3cret", wh.SecretToken)
	require.True(t, wh.DropUpdates)
	require.Equal(t, "https://example.org/hook", wh.Endpoint.PublicURL)
	require.Contains(t, wh.AllowedUpdates, "inline_query")

	lp, ok := BuildPoller(PollerOptions{}).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, 10.0, lp.Timeout.Seconds())
	require.Equal(t, AllowedUpdates, lp.AllowedUpdates)

	lp, ok = BuildPoller(PollerOptions{RunMode: "longpoll", LongPollTimeoutSeconds: 25}).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, 25.0, lp.Timeout.Seconds())
}

func middlewareNames(mws []Middleware) []string {
	names := make([]string, 0, len(mws))
	for _, mw := range mws {
		names = append(names, mw.Name)
	}
	return names
}

func TestDefaultMiddlewares(t *testing.T) {
	require.Equal(t, []string{"recover", "logger", "metrics"}, middlewareNames(DefaultMiddlewares(nil, nil)))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500, ExcludeUpdates: []string{"callback"}}}
	require.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, middlewareNames(DefaultMiddlewares(cfg, noop)))

	rl := rateLimitOptions(cfg, noop)
	require.Equal(t, 500*time.Millisecond, rl.Interval)
	require.Contains(t, rl.Exclude, "callback")
	require.NotNil(t, rl.OnLimited)
}
