package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; &#34;c&#34;", Escape(`a <b> & "c"`))
}

func TestBoldAndLink(t *testing.T) {
	assert.Equal(t, "<b>x &amp; y</b>", Bold("x & y"))
	assert.Equal(t, `<a href="https://t.me/a?b=1&amp;c=2">chan</a>`, Link("https://t.me/a?b=1&c=2", "chan"))
}

func TestLinesSkipsBlank(t *testing.T) {
	assert.Equal(t, "a\nb", Lines("a", "", "  ", "b"))
	assert.Empty(t, Lines())
}
