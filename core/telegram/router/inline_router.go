package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/middleware"
)

// InlineRoute wraps an inline query handler with the shared logging and recovery chain.
func InlineRoute(h tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Query() == nil {
			return nil
		}
		s := summary{
			name:  "inline_query",
			start: start,
			attrs: []slog.Attr{slog.Int("query_len", len([]rune(c.Query().Text)))},
		}
		return s.run(c, h)
	}
	return tg.Route{
		Endpoint: tele.OnQuery,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
