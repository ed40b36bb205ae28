package admonition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsEnableAll(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, Types(), s.EnabledTypes())
}

func TestSettingsToggle(t *testing.T) {
	s := DefaultSettings()
	assert.False(t, s.Toggle(Info))
	assert.False(t, s.Enabled(Info))
	assert.True(t, s.Toggle(Info))

	s.Set(Note, false)
	s.Set(Danger, false)
	assert.Equal(t, []Type{Tip, Info, Warning}, s.EnabledTypes())
}

func TestSettingsIgnoreInvalidType(t *testing.T) {
	s := DefaultSettings()
	s.Set(Type(42), false)
	assert.False(t, s.Enabled(Type(42)))
	assert.Equal(t, DefaultSettings(), s)
}

func TestParseType(t *testing.T) {
	for _, typ := range Types() {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	_, err := ParseType("Note")
	assert.Error(t, err)
	_, err = ParseType("caution")
	assert.Error(t, err)
}

func TestTypeTitle(t *testing.T) {
	assert.Equal(t, "NOTE", Note.Title())
	assert.Equal(t, "WARNING", Warning.Title())
	assert.Equal(t, "Type(9)", Type(9).String())
}
