package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsMixesURLAndData(t *testing.T) {
	m := InlineButtons([]InlineBtn{
		{Text: "Channel", URL: "https://t.me/chan"},
		{Text: "Check", Unique: "verify", Data: "1"},
	})
	require.Len(t, m.InlineKeyboard, 2)

	link := m.InlineKeyboard[0][0]
	assert.Equal(t, "https://t.me/chan", link.URL)
	assert.Empty(t, link.Data)

	check := m.InlineKeyboard[1][0]
	assert.Equal(t, "verify", check.Unique)
	assert.Equal(t, "1", check.Data)
	assert.Empty(t, check.URL)
}

func TestInlineButtonsRowsSkipsEmptyRows(t *testing.T) {
	m := InlineButtonsRows(nil, []InlineBtn{{Text: "x", Unique: "x"}})
	assert.Len(t, m.InlineKeyboard, 1)
}
