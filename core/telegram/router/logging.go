package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/subgate/core/logger"
	tghelpers "github.com/m3rciful/subgate/core/telegram/helpers"
	"github.com/m3rciful/subgate/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary carries optional overrides for the handler summary line.
type summary struct {
	status  string
	outcome string
	extras  []slog.Attr
}

func handleWithSummary(c tele.Context, handlerName string, start time.Time, fn func() error, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, handlerName)
	err := fn()
	logHandlerSummary(c, handlerName, start, err, summary{extras: extras})
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, err error, s summary) {
	ctx := tghelpers.WithHandler(c, handlerName)
	msgs, edits, kb := middleware.GetCounters(c)

	status, outcome := s.status, s.outcome
	if status == "" {
		status = "ok"
		if err != nil {
			status = "fail"
		}
	}
	if outcome == "" {
		outcome = status
	}
	// Handlers may store a domain outcome (e.g. "advanced", "stale").
	if v, ok := c.Get(OutcomeKey).(string); ok && v != "" && s.outcome == "" {
		outcome = v
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Int("edits", edits),
		slog.Bool("kb", kb),
		slog.Duration("took", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, logger.Err(err), slog.String("err_code", deriveErrorCode(err)))
	}
	attrs = append(attrs, s.extras...)

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	logger.Event(ctx, logger.CompTG, level, "handler.handled", attrs...)
}

// OutcomeKey is the tele.Context key handlers use to report a domain outcome
// for the summary log line.
const OutcomeKey = "handler_outcome"

// SetOutcome records a domain outcome for the summary log line.
func SetOutcome(c tele.Context, outcome string) {
	c.Set(OutcomeKey, outcome)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
