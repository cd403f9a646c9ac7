package ascii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaint(t *testing.T) {
	assert.Equal(t, Red+"boom"+Reset, Paint(Red, "boom"))
	assert.Equal(t, "boom", Paint("", "boom"))
	assert.Equal(t, "", Paint(Red, ""))
	assert.Equal(t, Cyan+"3 rules"+Reset, Color(Cyan, "%d rules", 3))
}

func TestPlainTheme(t *testing.T) {
	for _, color := range []string{
		PlainTheme.Error, PlainTheme.Warning, PlainTheme.Info,
		PlainTheme.Operator, PlainTheme.Literal, PlainTheme.Comment,
	} {
		assert.Equal(t, "text", Paint(color, "text"))
	}
}
