package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "msg_counters"

// counters tracks what a handler sent back for the summary log line.
// Sends may complete on dispatcher workers, hence the atomics.
type counters struct {
	messages atomic.Int32
	edits    atomic.Int32
	kb       atomic.Bool
}

// metricsContext wraps tele.Context to count sent messages and detect keyboard usage.
type metricsContext struct {
	tele.Context
	n *counters
}

func (m metricsContext) record(edit bool, opts []any) {
	if edit {
		m.n.edits.Add(1)
	} else {
		m.n.messages.Add(1)
	}
	if hasKeyboard(opts) {
		m.n.kb.Store(true)
	}
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what any, opts ...any) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.record(false, opts)
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what any, opts ...any) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.record(false, opts)
	}
	return err
}

// Edit proxies tele.Context.Edit while updating edit counters.
func (m metricsContext) Edit(what any, opts ...any) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.record(true, opts)
	}
	return err
}

// EditOrSend proxies tele.Context.EditOrSend; a callback update counts as an edit.
func (m metricsContext) EditOrSend(what any, opts ...any) error {
	err := m.Context.EditOrSend(what, opts...)
	if err == nil {
		m.record(m.Context.Callback() != nil, opts)
	}
	return err
}

// MessageMetricsMiddleware instruments context to track messages count and keyboard usage.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := c.Get(countersKey).(*counters); ok {
			return next(c)
		}
		n := &counters{}
		c.Set(countersKey, n)
		return next(metricsContext{Context: c, n: n})
	}
}

// GetCounters reads sent message count, edit count and keyboard presence from context.
func GetCounters(c tele.Context) (messages, edits int, kb bool) {
	n, ok := c.Get(countersKey).(*counters)
	if !ok {
		return 0, 0, false
	}
	return int(n.messages.Load()), int(n.edits.Load()), n.kb.Load()
}
