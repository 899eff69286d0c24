package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/middleware"
)

// Conversations reports users with an unfinished dialog and serves their updates.
// *state.Manager implements it.
type Conversations interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes free text and documents. An active dialog takes the update first,
// then command aliases typed as text, then the registry fallback, then opts.
func TextRoutes(conv Conversations, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		if c.Sender() == nil {
			return nil
		}
		if served, err := serveDialog(c, conv, "dialog", start); served {
			return err
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return summary{name: normalizeHandlerName(key), start: start}.run(c, cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return summary{name: "fallback", start: start}.run(c, fb)
			}
		}
		return serveUnknown(c, "unknown_text", start, opts.UnknownText)
	}

	document := func(c tele.Context) error {
		start := time.Now()
		if c.Sender() == nil {
			return nil
		}
		if served, err := serveDialog(c, conv, "dialog_document", start); served {
			return err
		}
		return serveUnknown(c, "unexpected_document", start, opts.UnknownDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: middleware.RecoverMiddleware(middleware.LoggerMiddleware(text))},
		{Endpoint: tele.OnDocument, Handler: middleware.RecoverMiddleware(middleware.LoggerMiddleware(document))},
	}
}

func serveDialog(c tele.Context, conv Conversations, name string, start time.Time) (bool, error) {
	if conv == nil || !conv.InProgress(c.Sender().ID) {
		return false, nil
	}
	return true, summary{name: name, start: start}.run(c, conv.ManagerHandler)
}

func serveUnknown(c tele.Context, name string, start time.Time, h tele.HandlerFunc) error {
	s := summary{name: name, start: start}
	if h == nil {
		s.skip(c)
		return nil
	}
	return s.run(c, h)
}
