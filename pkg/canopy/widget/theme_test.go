package widget

import (
	"os"
	"path/filepath"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTheme(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "theme.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultTheme(t *testing.T) {
	th := DefaultTheme()
	assert.Equal(t, lipgloss.Color("252"), th.FG)
	assert.Nil(t, th.BG)
	assert.Equal(t, lipgloss.RoundedBorder(), th.Border)
}

func TestLoadThemeOverlaysDefaults(t *testing.T) {
	path := writeTheme(t, `
fg = "#ff0000"
accent-fg = "120"
border = "double"
`)

	th, err := LoadTheme(path)
	require.NoError(t, err)
	assert.Equal(t, lipgloss.Color("#ff0000"), th.FG)
	assert.Equal(t, lipgloss.Color("120"), th.AccentFG)
	assert.Equal(t, lipgloss.DoubleBorder(), th.Border)

	// Unset fields keep the defaults.
	assert.Equal(t, DefaultTheme().MutedFG, th.MutedFG)
	assert.Equal(t, DefaultTheme().FocusBG, th.FocusBG)
	assert.Nil(t, th.BG)
}

func TestLoadThemeUnknownBorder(t *testing.T) {
	path := writeTheme(t, `border = "wavy"`)

	_, err := LoadTheme(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, `unknown border style "wavy"`)
}

func TestLoadThemeMissingFile(t *testing.T) {
	_, err := LoadTheme(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "parsing")
}

func TestLoadThemeBadTOML(t *testing.T) {
	path := writeTheme(t, `fg = [`)

	_, err := LoadTheme(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "parsing")
}
