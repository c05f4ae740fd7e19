package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	key, payload := Parse(&tele.Callback{Unique: "verify", Data: "2"})
	assert.Equal(t, "verify", key)
	assert.Equal(t, "2", payload)

	key, payload = Parse(&tele.Callback{Data: "\fverify|1"})
	assert.Equal(t, "verify", key)
	assert.Equal(t, "1", payload)

	key, payload = Parse(&tele.Callback{Data: "legacy"})
	assert.Equal(t, "legacy", key)
	assert.Empty(t, payload)

	key, payload = Parse(nil)
	assert.Empty(t, key)
	assert.Empty(t, payload)
}
