package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by the Send helpers.
// With no dispatcher, sends run inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// send delivers what to the current chat through the dispatcher.
// A full or closed queue degrades to an inline send.
func send(c tele.Context, action string, what any, opts ...any) error {
	run := func() error { return c.Send(what, opts...) }

	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, "sendMessage", run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends plain text. At most one SendOptions is used.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	if len(opts) > 0 && opts[0] != nil {
		return send(c, "send.text", text, opts[0])
	}
	return send(c, "send.text", text)
}

// SendTextMarkup sends plain text with a keyboard.
func SendTextMarkup(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return SendText(c, text)
	}
	return send(c, "send.markup", text, markup)
}

// SendMDV2 sends text already escaped for MarkdownV2.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return send(c, "send.mdv2", text, opts)
}

// SendDocument uploads a book file. Uploads skip the queue so the caller sees failures.
func SendDocument(c tele.Context, doc *tele.Document) error {
	return c.Send(doc)
}
