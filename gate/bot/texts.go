package bot

import (
	"fmt"

	"github.com/m3rciful/subgate/core/telegram/format"

	"golang.org/x/text/language"
)

// Texts is the user-facing copy in one language. Fields holding a verb
// such as %d are formatted by the helper methods below.
type Texts struct {
	StartTitle    string
	StartSteps    string // %d: batch size
	StageTwoTitle string
	StageTwoSteps string // %d: batch size
	Unavailable   string
	AdvanceNotYet string
	Partial       string // %d completed, %d total
	Stale         string
	NoSession     string
	Completed     string
	RewardButton  string
	VerifyButton  string
	TaskFallback  string // %d: position
	UnknownText   string
	RateLimited   string
	UnknownAction string
	StatsTitle    string
	StatsBody     string // %d active, %d batch, %d started, %d completed
}

var ruTexts = Texts{
	StartTitle:    "Доступ к функционалу",
	StartSteps:    "1) Подпишись на %d каналов ниже\n2) Нажми «Проверить выполнение»\nПосле этого я попрошу подписаться ещё на такую же пачку — и открою доступ.",
	StageTwoTitle: "Почти готово!",
	StageTwoSteps: "Осталась вторая пачка: подпишись ещё на %d каналов и снова нажми «Проверить выполнение».",
	Unavailable:   "Пока нет доступных заданий. Попробуй позже.",
	AdvanceNotYet: "Первая пачка выполнена, но новых заданий пока нет. Нажми «Проверить выполнение» чуть позже.",
	Partial:       "Выполнено %d из %d. Подпишись на все каналы и попробуй снова.",
	Stale:         "Эта кнопка устарела. Используй последнее сообщение.",
	NoSession:     "Сессия не найдена. Нажми /start, чтобы начать заново.",
	Completed:     "Готово! Доступ открыт.",
	RewardButton:  "🚀 Перейти",
	VerifyButton:  "✅ Проверить выполнение",
	TaskFallback:  "Задание %d",
	UnknownText:   "Чтобы получить доступ, нажми /start.",
	RateLimited:   "Слишком часто. Подожди секунду.",
	UnknownAction: "Неизвестное действие",
	StatsTitle:    "Статистика",
	StatsBody:     "Активных сессий: %d\nЗаданий в пачке: %d\nНачато: %d\nЗавершено: %d",
}

var enTexts = Texts{
	StartTitle:    "Unlock access",
	StartSteps:    "1) Subscribe to the %d channels below\n2) Tap “Check completion”\nThen I will ask for one more batch of the same size and unlock access.",
	StageTwoTitle: "Almost there!",
	StageTwoSteps: "One more batch: subscribe to %d more channels and tap “Check completion” again.",
	Unavailable:   "No tasks are available right now. Please try again later.",
	AdvanceNotYet: "The first batch is done, but there are no new tasks yet. Tap “Check completion” a bit later.",
	Partial:       "Completed %d of %d. Subscribe to every channel and try again.",
	Stale:         "This button is outdated. Use the latest message.",
	NoSession:     "Session not found. Send /start to begin again.",
	Completed:     "Done! Access unlocked.",
	RewardButton:  "🚀 Open",
	VerifyButton:  "✅ Check completion",
	TaskFallback:  "Task %d",
	UnknownText:   "Send /start to get access.",
	RateLimited:   "Too fast. Wait a second.",
	UnknownAction: "Unsupported action",
	StatsTitle:    "Stats",
	StatsBody:     "Active sessions: %d\nTasks per batch: %d\nStarted: %d\nCompleted: %d",
}

// Russian is the default: it is listed first in the matcher.
var (
	supported = []language.Tag{language.Russian, language.English}
	catalog   = map[language.Tag]*Texts{
		language.Russian: &ruTexts,
		language.English: &enTexts,
	}
	matcher = language.NewMatcher(supported)
)

// TextsFor picks the copy closest to a Telegram language code.
func TextsFor(code string) *Texts {
	if code == "" {
		return &ruTexts
	}
	_, idx, conf := matcher.Match(language.Make(code))
	if conf == language.No {
		return &ruTexts
	}
	return catalog[supported[idx]]
}

// StartMessage renders the stage-one intro.
func (t *Texts) StartMessage(batch int) string {
	return format.Bold(t.StartTitle) + "\n\n" + format.Escape(fmt.Sprintf(t.StartSteps, batch))
}

// StageTwoMessage renders the stage-two intro.
func (t *Texts) StageTwoMessage(batch int) string {
	return format.Bold(t.StageTwoTitle) + "\n\n" + format.Escape(fmt.Sprintf(t.StageTwoSteps, batch))
}

// PartialNotice renders the partial-completion alert (plain text).
func (t *Texts) PartialNotice(done, total int) string {
	return fmt.Sprintf(t.Partial, done, total)
}

// CompletedMessage renders the reward message.
func (t *Texts) CompletedMessage(rewardURL string) string {
	return format.Lines(format.Bold(t.Completed), format.Link(rewardURL, rewardURL))
}

// StatsMessage renders the admin stats block.
func (t *Texts) StatsMessage(active, batch int, started, completed uint64) string {
	return format.Lines(format.Bold(t.StatsTitle), fmt.Sprintf(t.StatsBody, active, batch, started, completed))
}

// TaskLabel returns a button label for the task at 1-based position n.
func (t *Texts) TaskLabel(title string, n int) string {
	if title == "" {
		title = fmt.Sprintf(t.TaskFallback, n)
	}
	return "🔗 " + title
}

