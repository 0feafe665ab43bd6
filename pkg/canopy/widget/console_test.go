package widget

import (
	"fmt"
	"strings"
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/canopy/pkg/canopy"
)

func TestConsoleAppendLines(t *testing.T) {
	c := NewConsole(DefaultTheme(), 10, 5)
	assert.Equal(t, 0, c.Lines())

	c.Append("one")
	assert.Equal(t, 1, c.Lines())

	c.Append("two\nthree")
	assert.Equal(t, 3, c.Lines())
	assert.Equal(t, "one\ntwo\nthree", c.log.Text.String())
}

func TestConsoleAppendSpansShiftToBlock(t *testing.T) {
	th := DefaultTheme()
	c := NewConsole(th, 20, 5)

	c.Append("plain")
	c.Append("red line\nmore", canopy.StyleSpan{
		Code: canopy.FGCode(th.AccentFG),
		Line: 1,
		Len:  4,
	})

	spans := c.log.Text.Spans()
	require.Len(t, spans, 1)
	// Line 1 of the appended block is line 2 of the log.
	assert.Equal(t, 2, spans[0].Line)
	assert.Equal(t, 4, spans[0].Len)
}

func TestConsoleMaxLines(t *testing.T) {
	c := NewConsole(DefaultTheme(), 10, 4)
	c.MaxLines = 3

	for i := 1; i <= 4; i++ {
		c.Append(fmt.Sprint(i))
	}
	assert.Equal(t, 3, c.Lines())
	assert.Equal(t, "2\n3\n4", c.log.Text.String())
}

func TestConsoleFlattensSpans(t *testing.T) {
	th := DefaultTheme()
	c := NewConsole(th, 20, 5)

	var spans []canopy.StyleSpan
	for i := 0; i < 140; i++ {
		spans = append(spans, canopy.StyleSpan{
			Code: canopy.FGCode(th.AccentFG),
			Len:  4,
		})
	}
	c.Append("text", spans...)

	// Past the cap the identical overlapping spans compact to one run.
	got := c.log.Text.Spans()
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, 4, got[0].Len)
}

func TestConsoleScrollClampAndStick(t *testing.T) {
	c := NewConsole(DefaultTheme(), 10, 5) // 3 content rows

	for i := 1; i <= 6; i++ {
		c.Append(fmt.Sprintf("line %d", i))
	}
	assert.True(t, c.stick)
	assert.Equal(t, 3, c.top)
	assert.Equal(t, canopy.Offset{Kind: canopy.OffsetTranslate, Y: -3}, c.log.Style.Offset)

	c.ScrollBy(-2)
	assert.Equal(t, 1, c.top)
	assert.False(t, c.stick)

	// Scrolled away, appends no longer move the window.
	c.Append("line 7")
	assert.Equal(t, 1, c.top)

	c.ScrollBy(100)
	assert.Equal(t, 4, c.top)
	assert.True(t, c.stick)

	c.ScrollBy(-100)
	assert.Equal(t, 0, c.top)
	assert.False(t, c.stick)

	c.ScrollToEnd()
	assert.Equal(t, 4, c.top)
	assert.True(t, c.stick)
}

func TestConsoleWheelAndKeys(t *testing.T) {
	c := NewConsole(DefaultTheme(), 10, 5)
	app := mountApp(c.Node(), 20, 10)

	for i := 1; i <= 6; i++ {
		c.Append(fmt.Sprintf("line %d", i))
	}
	require.Equal(t, 3, c.top)

	assert.True(t, app.Dispatch(c.Node(), canopy.PointerEvent{
		Kind:   canopy.PointerWheel,
		Button: uv.MouseWheelUp,
	}))
	assert.Equal(t, 0, c.top)

	assert.True(t, app.Dispatch(c.Node(), canopy.PointerEvent{
		Kind:   canopy.PointerWheel,
		Button: uv.MouseWheelDown,
	}))
	assert.Equal(t, 3, c.top)

	assert.True(t, app.Dispatch(c.Node(), key(uv.KeyPgUp)))
	assert.Equal(t, 0, c.top)
	assert.True(t, app.Dispatch(c.Node(), key(uv.KeyPgDown)))
	assert.Equal(t, 3, c.top)

	c.ScrollBy(-2)
	assert.True(t, app.Dispatch(c.Node(), key(uv.KeyEnd)))
	assert.Equal(t, 3, c.top)
	assert.True(t, c.stick)

	// Non-wheel pointers and other buttons pass through.
	assert.False(t, app.Dispatch(c.Node(), canopy.PointerEvent{Kind: canopy.PointerMove}))
	assert.False(t, app.Dispatch(c.Node(), canopy.PointerEvent{
		Kind:   canopy.PointerWheel,
		Button: uv.MouseLeft,
	}))
}

func TestConsoleClear(t *testing.T) {
	c := NewConsole(DefaultTheme(), 10, 5)

	for i := 1; i <= 6; i++ {
		c.Append(fmt.Sprintf("line %d", i))
	}
	c.ScrollBy(-2)

	c.Clear()
	assert.Equal(t, 0, c.Lines())
	assert.Equal(t, 0, c.top)
	assert.True(t, c.stick)
	assert.Equal(t, "", c.log.Text.String())

	c.Append("fresh")
	assert.Equal(t, 1, c.Lines())
	assert.Equal(t, "fresh", c.log.Text.String())
}

func TestConsoleSetSizeRewraps(t *testing.T) {
	c := NewConsole(DefaultTheme(), 12, 5) // 10 content columns

	c.Append(strings.Repeat("a", 15))
	assert.Equal(t, 2, c.log.Text.VisualLines())

	c.SetSize(7, 5) // 5 content columns
	assert.Equal(t, 3, c.log.Text.VisualLines())
	assert.Equal(t, canopy.Cells(7), c.node.Style.Size.W)
	assert.Equal(t, canopy.Cells(5), c.node.Style.Size.H)
}
