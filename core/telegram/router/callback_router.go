package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/callbacks"
	"github.com/m3rciful/bookbot/core/telegram/middleware"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound wins over the registry fallback when set. It must answer the callback itself.
	NotFound tele.HandlerFunc
}

// CallbackRoute routes button presses through the registry.
// Known callbacks are answered before their handler runs so the button spinner stops early.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.ParseCallbackData(c.Callback())
		s := summary{
			name:  "callback." + normalizeHandlerName(key),
			start: start,
			attrs: []slog.Attr{slog.String("cb_key", key)},
		}

		if h, ok := reg.GetCallback(key); ok && h != nil {
			_ = c.Respond()
			return s.run(c, h)
		}

		notFound := opts.NotFound
		if notFound == nil {
			notFound = reg.CallbackNotFound()
		}
		if notFound == nil {
			notFound = func(c tele.Context) error { return c.Respond() }
		}
		s.attrs = append(s.attrs, slog.String("reason", "not_found"))
		return s.run(c, notFound)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
