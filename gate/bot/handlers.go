// Package bot is the Telegram surface of the gate: commands, the verify
// callback and the messages they produce.
package bot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/subgate/core/logger"
	tg "github.com/m3rciful/subgate/core/telegram"
	"github.com/m3rciful/subgate/core/telegram/callbacks"
	"github.com/m3rciful/subgate/core/telegram/commands"
	"github.com/m3rciful/subgate/core/telegram/format"
	tghelpers "github.com/m3rciful/subgate/core/telegram/helpers"
	"github.com/m3rciful/subgate/core/telegram/router"
	"github.com/m3rciful/subgate/gate/flow"
	"github.com/m3rciful/subgate/gate/session"

	tele "gopkg.in/telebot.v4"
)

// Flow is the part of flow.Controller the handlers drive.
type Flow interface {
	Start(ctx context.Context, u flow.User) flow.Result
	Verify(ctx context.Context, u flow.User, stage session.Stage) flow.Result
	Stats() flow.Stats
	BatchSize() int
}

// Handlers binds Telegram updates to the gate flow.
type Handlers struct {
	flow Flow
}

// NewHandlers builds Handlers around f.
func NewHandlers(f Flow) *Handlers {
	return &Handlers{flow: f}
}

// Register wires commands, the verify callback and fallbacks into reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Start / Начать",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     h.Stats,
		Description: "Gate statistics",
		AdminOnly:   true,
		Hidden:      true,
	})
	if err := reg.RegisterCallback(VerifyKey, h.Verify); err != nil {
		return err
	}
	reg.SetCallbackNotFound(h.UnknownCallback)
	reg.SetTextFallback(h.UnknownText)
	return nil
}

func userFrom(c tele.Context) flow.User {
	s := c.Sender()
	if s == nil {
		return flow.User{}
	}
	return flow.User{ID: s.ID, Locale: s.LanguageCode}
}

func textsFor(c tele.Context) *Texts {
	if s := c.Sender(); s != nil {
		return TextsFor(s.LanguageCode)
	}
	return TextsFor("")
}

// Start handles /start: a fresh first batch or a "try later" notice.
func (h *Handlers) Start(c tele.Context) error {
	u := userFrom(c)
	if u.ID == 0 {
		return nil
	}
	t := textsFor(c)
	res := h.flow.Start(tghelpers.BuildContext(c), u)
	router.SetOutcome(c, res.Outcome.String())

	if res.Outcome != flow.OutcomeStarted {
		return tghelpers.SendHTML(c, format.Escape(t.Unavailable))
	}
	return tghelpers.SendHTML(c, t.StartMessage(h.flow.BatchSize()), TasksMarkup(t, res.Tasks, res.Stage))
}

// Verify handles the "check completion" button.
func (h *Handlers) Verify(c tele.Context) error {
	u := userFrom(c)
	t := textsFor(c)
	ctx := tghelpers.BuildContext(c)

	n, err := callbacks.PayloadInt(c)
	stage := session.Stage(n)
	if err != nil || !stage.Valid() {
		logger.Debug(ctx, logger.CompFlow, "verify.bad_payload",
			slog.String("payload", logger.SanitizeLimit(callbacks.CallbackPayload(c), 32)),
		)
		router.SetOutcome(c, "bad_payload")
		return callbacks.Answer(c, &tele.CallbackResponse{Text: t.Stale})
	}

	res := h.flow.Verify(ctx, u, stage)
	router.SetOutcome(c, res.Outcome.String())

	switch res.Outcome {
	case flow.OutcomeNoSession:
		return callbacks.Answer(c, &tele.CallbackResponse{Text: t.NoSession, ShowAlert: true})
	case flow.OutcomeStale:
		return callbacks.Answer(c, &tele.CallbackResponse{Text: t.Stale})
	case flow.OutcomePartial:
		return callbacks.Answer(c, &tele.CallbackResponse{Text: t.PartialNotice(res.Completed, res.Total), ShowAlert: true})
	case flow.OutcomeAdvanceUnavailable:
		return callbacks.Answer(c, &tele.CallbackResponse{Text: t.AdvanceNotYet, ShowAlert: true})
	case flow.OutcomeAdvanced:
		_ = callbacks.Answer(c, nil)
		return tghelpers.EditOrSendHTML(c, t.StageTwoMessage(h.flow.BatchSize()), TasksMarkup(t, res.Tasks, res.Stage))
	case flow.OutcomeCompleted:
		_ = callbacks.Answer(c, nil)
		return tghelpers.EditOrSendHTML(c, t.CompletedMessage(res.RewardURL), RewardMarkup(t, res.RewardURL))
	}
	return nil
}

// Stats answers the admin with controller counters.
func (h *Handlers) Stats(c tele.Context) error {
	st := h.flow.Stats()
	t := textsFor(c)
	return tghelpers.SendHTML(c, t.StatsMessage(st.ActiveSessions, st.BatchSize, st.Started, st.Completed))
}

// UnknownText points users to /start.
func (h *Handlers) UnknownText(c tele.Context) error {
	return tghelpers.SendHTML(c, format.Escape(textsFor(c).UnknownText))
}

// UnknownCallback answers buttons the bot no longer knows.
func (h *Handlers) UnknownCallback(c tele.Context) error {
	return callbacks.Answer(c, &tele.CallbackResponse{Text: textsFor(c).UnknownAction})
}

// RateLimited tells a throttled user to slow down. Only callbacks get an
// answer; throttled messages are dropped silently.
func (h *Handlers) RateLimited(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return callbacks.Answer(c, &tele.CallbackResponse{Text: textsFor(c).RateLimited})
}
