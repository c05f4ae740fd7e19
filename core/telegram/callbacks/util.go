package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

const answeredKey = "cb_answered"

// ParseCallbackData splits raw callback data of the form \f<unique>|<payload>.
// Returns unique and payload (may be empty).
func ParseCallbackData(data string) (string, string) {
	raw := strings.TrimPrefix(data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// Parse returns the callback key and payload. Telebot already splits
// \f-prefixed data into Unique and Data; plain data is parsed here.
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseCallbackData(cb.Data)
}

// CallbackPayload returns the payload of the current callback.
func CallbackPayload(c tele.Context) string {
	_, payload := Parse(c.Callback())
	return payload
}

// PayloadInt parses callback payload as int.
func PayloadInt(c tele.Context) (int, error) {
	return strconv.Atoi(strings.TrimSpace(CallbackPayload(c)))
}

// Answer responds to the callback query once and marks it answered so the
// router does not send a second, empty answer.
func Answer(c tele.Context, resp *tele.CallbackResponse) error {
	if c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredKey, true)
	if resp == nil {
		return c.Respond()
	}
	return c.Respond(resp)
}

// Answered reports whether Answer already ran for this update.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}
