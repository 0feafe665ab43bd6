package widget

import (
	"strings"
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/canopy/pkg/canopy"
)

func TestAnchorMath(t *testing.T) {
	// h 5 in 20 available rows, top margin 1.
	assert.Equal(t, 1, anchorRow(AnchorTopLeft, 5, 20, 1))
	assert.Equal(t, 1, anchorRow(AnchorTopCenter, 5, 20, 1))
	assert.Equal(t, 16, anchorRow(AnchorBottomCenter, 5, 20, 1))
	assert.Equal(t, 8, anchorRow(AnchorCenter, 5, 20, 1))
	assert.Equal(t, 8, anchorRow(AnchorLeftCenter, 5, 20, 1))

	// w 10 in 30 available columns, left margin 2.
	assert.Equal(t, 2, anchorCol(AnchorTopLeft, 10, 30, 2))
	assert.Equal(t, 2, anchorCol(AnchorBottomLeft, 10, 30, 2))
	assert.Equal(t, 22, anchorCol(AnchorTopRight, 10, 30, 2))
	assert.Equal(t, 12, anchorCol(AnchorCenter, 10, 30, 2))

	assert.Equal(t, 5, clamp(5, 0, 10))
	assert.Equal(t, 0, clamp(-3, 0, 10))
	assert.Equal(t, 10, clamp(42, 0, 10))
	// An oversized dialog pins to the near edge.
	assert.Equal(t, 5, clamp(7, 5, 3))
}

func TestDialogShowHide(t *testing.T) {
	app := newTestApp(40, 12)
	d := NewDialog(DefaultTheme(), "Title", canopy.NewTextNode("content"))
	assert.False(t, d.Visible())

	d.Show(app)
	assert.True(t, d.Visible())
	assert.Same(t, app.Root(), d.Node().Parent())

	// Title, gap, body, padding, and border total 11 by 7, centered.
	require.Equal(t, 11, d.Node().Rect().W)
	require.Equal(t, 7, d.Node().Rect().H)
	assert.Equal(t, 14, d.Node().Style.Offset.X)
	assert.Equal(t, 2, d.Node().Style.Offset.Y)

	// Showing again is a no-op.
	d.Show(app)
	assert.True(t, d.Visible())

	d.Hide(app)
	assert.False(t, d.Visible())
	assert.Nil(t, d.Node().Parent())

	d.Hide(app)
	assert.False(t, d.Visible())
}

func TestDialogAnchorsAndMargins(t *testing.T) {
	app := newTestApp(40, 12)
	d := NewDialog(DefaultTheme(), "Title", canopy.NewTextNode("content"))
	d.Anchor = AnchorBottomRight
	d.Margin = Margin{Bottom: 1, Right: 2}

	d.Show(app)
	assert.Equal(t, 27, d.Node().Style.Offset.X)
	assert.Equal(t, 4, d.Node().Style.Offset.Y)
}

func TestDialogOffsetNudge(t *testing.T) {
	app := newTestApp(40, 12)
	d := NewDialog(DefaultTheme(), "Title", canopy.NewTextNode("content"))
	d.Anchor = AnchorTopLeft
	d.OffsetX = 3
	d.OffsetY = 1

	d.Show(app)
	assert.Equal(t, 3, d.Node().Style.Offset.X)
	assert.Equal(t, 1, d.Node().Style.Offset.Y)
}

func TestDialogClampsToScreen(t *testing.T) {
	app := newTestApp(20, 6)
	d := NewDialog(DefaultTheme(), "Big", canopy.NewTextNode(strings.Repeat("x", 40)))

	d.Show(app)
	// Wider and taller than the screen, so it pins to the top left.
	assert.Equal(t, 0, d.Node().Style.Offset.X)
	assert.Equal(t, 0, d.Node().Style.Offset.Y)
}

func TestDialogEscapeDismisses(t *testing.T) {
	app := newTestApp(40, 12)
	d := NewDialog(DefaultTheme(), "Title", canopy.NewTextNode("content"))

	dismissed := 0
	d.OnDismiss = func() { dismissed++ }

	d.Show(app)
	assert.True(t, app.Dispatch(d.Node(), key(uv.KeyEscape)))
	assert.False(t, d.Visible())
	assert.Nil(t, d.Node().Parent())
	assert.Equal(t, 1, dismissed)

	// Other keys fall through.
	d.Show(app)
	assert.False(t, app.Dispatch(d.Node(), key(uv.KeyEnter)))
	assert.True(t, d.Visible())
}
