package pegc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterner(t *testing.T) {
	t.Run("equal values share an index", func(t *testing.T) {
		in := NewValueInterner[string]()
		assert.Equal(t, 0, in.Add("a"))
		assert.Equal(t, 1, in.Add("b"))
		assert.Equal(t, 0, in.Add("a"))
		assert.Equal(t, 2, in.Len())
		assert.Equal(t, []string{"a", "b"}, in.Values())
	})

	t.Run("zero values are not stored", func(t *testing.T) {
		in := NewValueInterner[string]()
		assert.Equal(t, -1, in.Add(""))
		assert.Equal(t, 0, in.Len())
	})

	t.Run("get reports indexes out of range", func(t *testing.T) {
		in := NewValueInterner[int]()
		in.Add(42)

		v, ok := in.Get(0)
		require.True(t, ok)
		assert.Equal(t, 42, v)

		_, ok = in.Get(1)
		assert.False(t, ok)
		_, ok = in.Get(-1)
		assert.False(t, ok)
	})

	t.Run("structured values are compared by content", func(t *testing.T) {
		in := NewInterner(identity[*Expectation], jsonKey[*Expectation])
		first := in.Add(&Expectation{Type: ExpectLiteral, Value: "a"})
		second := in.Add(&Expectation{Type: ExpectLiteral, Value: "a"})
		third := in.Add(&Expectation{Type: ExpectLiteral, Value: "a", IgnoreCase: true})
		assert.Equal(t, first, second)
		assert.NotEqual(t, first, third)
	})

	t.Run("custom policies convert and skip inputs", func(t *testing.T) {
		in := NewInterner(
			func(s string) (string, bool) { return strings.ToLower(s), s != "skip" },
			func(s string) string { return s },
		)
		assert.Equal(t, 0, in.Add("ABC"))
		assert.Equal(t, 0, in.Add("abc"))
		assert.Equal(t, -1, in.Add("skip"))
		assert.Equal(t, []string{"abc"}, in.Values())
	})

	t.Run("values are a copy", func(t *testing.T) {
		in := NewValueInterner[string]()
		in.Add("a")
		values := in.Values()
		values[0] = "changed"
		v, _ := in.Get(0)
		assert.Equal(t, "a", v)
	})
}
