package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "tg.counters"

// sendCounters tracks what a handler sent while serving one update.
// Sends may finish on dispatcher workers, hence the atomics.
type sendCounters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

// metricsContext counts successful sends made through the wrapped context.
type metricsContext struct {
	tele.Context
	counters *sendCounters
}

func (m metricsContext) count(err error, opts []any) error {
	if err != nil {
		return err
	}
	m.counters.messages.Add(1)
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				m.counters.keyboard.Store(true)
			}
		case *tele.ReplyMarkup:
			if v != nil {
				m.counters.keyboard.Store(true)
			}
		}
	}
	return nil
}

func (m metricsContext) Send(what any, opts ...any) error {
	return m.count(m.Context.Send(what, opts...), opts)
}

func (m metricsContext) Reply(what any, opts ...any) error {
	return m.count(m.Context.Reply(what, opts...), opts)
}

func (m metricsContext) Edit(what any, opts ...any) error {
	return m.count(m.Context.Edit(what, opts...), opts)
}

func (m metricsContext) EditOrSend(what any, opts ...any) error {
	return m.count(m.Context.EditOrSend(what, opts...), opts)
}

func (m metricsContext) EditOrReply(what any, opts ...any) error {
	return m.count(m.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware counts the replies and keyboards produced for each update.
// The handler summary log reads them back with GetCounters.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		counters := &sendCounters{}
		c.Set(countersKey, counters)
		return next(metricsContext{Context: c, counters: counters})
	}
}

// GetCounters returns the number of messages sent and whether any carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	counters, ok := c.Get(countersKey).(*sendCounters)
	if !ok {
		return 0, false
	}
	return int(counters.messages.Load()), counters.keyboard.Load()
}
