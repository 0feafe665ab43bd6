package widget

import (
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/canopy/pkg/canopy"
)

func TestButtonPressKeys(t *testing.T) {
	pressed := 0
	b := NewButton(DefaultTheme(), "OK", func() { pressed++ })
	app := mountApp(b.Node(), 20, 4)
	app.Focus(b.Node())

	assert.True(t, app.Dispatch(b.Node(), key(uv.KeyEnter)))
	assert.Equal(t, 1, pressed)

	assert.True(t, app.Dispatch(b.Node(), keyText(" ")))
	assert.Equal(t, 2, pressed)

	assert.False(t, app.Dispatch(b.Node(), keyText("x")))
	assert.Equal(t, 2, pressed)
}

func TestButtonReleaseInsideActivates(t *testing.T) {
	pressed := 0
	b := NewButton(DefaultTheme(), "OK", func() { pressed++ })
	app := mountApp(b.Node(), 20, 4)

	rect := b.Node().Rect()
	require.False(t, rect.Empty())

	inside := canopy.Position{X: rect.X + 1, Y: rect.Y}
	assert.True(t, app.Dispatch(b.Node(), canopy.PointerEvent{
		Kind:   canopy.PointerUp,
		Pos:    inside,
		Button: uv.MouseLeft,
	}))
	assert.Equal(t, 1, pressed)

	// Releasing after dragging off the button does not count.
	outside := canopy.Position{X: rect.X + rect.W + 2, Y: rect.Y}
	app.Dispatch(b.Node(), canopy.PointerEvent{
		Kind:   canopy.PointerUp,
		Pos:    outside,
		Button: uv.MouseLeft,
	})
	assert.Equal(t, 1, pressed)

	// Nor does a non-left release.
	app.Dispatch(b.Node(), canopy.PointerEvent{
		Kind:   canopy.PointerUp,
		Pos:    inside,
		Button: uv.MouseWheelUp,
	})
	assert.Equal(t, 1, pressed)
}

func TestButtonHoverRestyles(t *testing.T) {
	th := DefaultTheme()
	b := NewButton(th, "OK", nil)
	app := mountApp(b.Node(), 20, 4)

	assert.Equal(t, th.FG, b.Node().Style.FG)
	assert.Nil(t, b.Node().Style.BG)

	app.Dispatch(b.Node(), canopy.PointerEvent{Kind: canopy.PointerEnter})
	assert.Equal(t, th.HoverBG, b.Node().Style.BG)

	app.Dispatch(b.Node(), canopy.PointerEvent{Kind: canopy.PointerLeave})
	assert.Nil(t, b.Node().Style.BG)
}

func TestButtonFocusRestyles(t *testing.T) {
	th := DefaultTheme()
	b := NewButton(th, "OK", nil)
	app := mountApp(b.Node(), 20, 4)

	app.Focus(b.Node())
	assert.Equal(t, th.FocusFG, b.Node().Style.FG)
	assert.Equal(t, th.FocusBG, b.Node().Style.BG)

	// Focus styling wins over hover.
	app.Dispatch(b.Node(), canopy.PointerEvent{Kind: canopy.PointerEnter})
	assert.Equal(t, th.FocusBG, b.Node().Style.BG)

	app.Focus(nil)
	assert.Equal(t, th.FG, b.Node().Style.FG)
	assert.Equal(t, th.HoverBG, b.Node().Style.BG)
}

func TestButtonSetLabel(t *testing.T) {
	b := NewButton(DefaultTheme(), "OK", nil)
	b.SetLabel("Cancel")
	assert.Equal(t, "Cancel", b.Node().Text.String())
}
