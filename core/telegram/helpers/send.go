package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, logger.CompTGSender, "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			logger.Err(err),
		)
		return run()
	}
	return err
}

func htmlOptions(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendHTML sends a message with HTML parse mode and optional reply markup.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return SendText(c, text, htmlOptions(markup))
}

// EditOrSendHTML edits the message the callback came from, or sends a new
// one when there is nothing to edit. It runs synchronously so the caller
// sees Telegram's answer.
func EditOrSendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.EditOrSend(text, htmlOptions(markup))
}
