package pegc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.True(t, cfg.GetBool("check.suggestions"))
	assert.Equal(t, 2, cfg.GetInt("check.suggestions.max_distance"))
	assert.Equal(t, "  ", cfg.GetString("generate.js.indent"))
	assert.True(t, cfg.GetBool("host.text_encoding"))
	assert.True(t, cfg.GetBool("host.eval"))
	assert.Equal(t, 0, cfg.GetInt("vm.max_steps"))
}

func TestConfigParse(t *testing.T) {
	t.Run("values are converted to the type of the setting", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.Parse("vm.max_steps", "1000"))
		require.NoError(t, cfg.Parse("host.eval", "false"))
		require.NoError(t, cfg.Parse("generate.js.indent", "\t"))
		assert.Equal(t, 1000, cfg.GetInt("vm.max_steps"))
		assert.False(t, cfg.GetBool("host.eval"))
		assert.Equal(t, "\t", cfg.GetString("generate.js.indent"))
	})

	for _, test := range []struct {
		name, path, value, message string
	}{
		{"unknown settings", "vm.speed", "1", "setting `vm.speed` does not exist"},
		{"bad ints", "vm.max_steps", "many", "setting `vm.max_steps` expects an int"},
		{"bad bools", "host.eval", "maybe", "setting `host.eval` expects a bool"},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := NewConfig().Parse(test.path, test.value)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.message)
		})
	}
}

func TestConfigWrite(t *testing.T) {
	var buf bytes.Buffer
	NewConfig().Write(&buf)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"check.suggestions              : true (bool)",
		"check.suggestions.max_distance : 2 (int)",
		`generate.js.indent             : "  " (string)`,
		"host.eval                      : true (bool)",
		"host.text_encoding             : true (bool)",
		"vm.max_steps                   : 0 (int)",
	}, lines)
}

func TestConfigClone(t *testing.T) {
	cfg := NewConfig()
	clone := cfg.Clone()
	clone.SetInt("vm.max_steps", 5)
	clone.SetBool("extra", true)
	assert.Equal(t, 0, cfg.GetInt("vm.max_steps"))
	assert.NotContains(t, cfg.Keys(), "extra")
	assert.Equal(t, 5, clone.GetInt("vm.max_steps"))
}

func TestConfigTypes(t *testing.T) {
	cfg := NewConfig()
	assert.PanicsWithValue(t, "Can't assign `int` to type `bool`", func() { cfg.SetInt("host.eval", 1) })
	assert.PanicsWithValue(t, "Can't retrieve `string` from `int` variable", func() { cfg.GetString("vm.max_steps") })
	assert.PanicsWithValue(t, "Bool setting `missing` does not exist", func() { cfg.GetBool("missing") })
}
