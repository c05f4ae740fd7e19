package bot

import (
	"strconv"

	"github.com/m3rciful/subgate/core/telegram/keyboard"
	"github.com/m3rciful/subgate/gate/provider"
	"github.com/m3rciful/subgate/gate/session"

	tele "gopkg.in/telebot.v4"
)

// VerifyKey is the callback unique of the "check completion" button.
const VerifyKey = "verify"

// TasksMarkup lists one link button per task followed by the verify button
// bound to stage.
func TasksMarkup(t *Texts, tasks []provider.Task, stage session.Stage) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(tasks)+1)
	for i, task := range tasks {
		btns = append(btns, keyboard.InlineBtn{
			Text: t.TaskLabel(task.DisplayTitle(), i+1),
			URL:  task.Destination(),
		})
	}
	btns = append(btns, keyboard.InlineBtn{
		Text:   t.VerifyButton,
		Unique: VerifyKey,
		Data:   strconv.Itoa(int(stage)),
	})
	return keyboard.InlineButtons(btns)
}

// RewardMarkup is a single link button to the reward.
func RewardMarkup(t *Texts, rewardURL string) *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{{Text: t.RewardButton, URL: rewardURL}})
}
