package widget

import (
	"strings"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/vito/canopy/pkg/canopy"
)

// wheelStep is how many visual lines one wheel notch scrolls.
const wheelStep = 3

// flattenAfter caps the span list; past it the console compacts the
// spans into minimal per-line runs.
const flattenAfter = 128

// Console is a bordered scrolling log. Appended lines wrap at the
// content width, the view follows the tail until scrolled away, and the
// wheel or PageUp/PageDown move the window.
type Console struct {
	node *canopy.Node // bordered frame
	view *canopy.Node // clip box filling the frame content
	log  *canopy.Node // wrapped lines, shifted up by the scroll

	theme Theme
	w, h  int

	// MaxLines caps the retained logical lines; older lines fall off
	// the top. Zero keeps everything.
	MaxLines int

	top   int  // first visible visual line
	stick bool // follow the tail on append
	empty bool // nothing appended yet
}

// NewConsole builds a w by h cell log view.
func NewConsole(th Theme, w, h int) *Console {
	c := &Console{theme: th, w: w, h: h, MaxLines: 1000, stick: true, empty: true}

	c.log = canopy.NewTextNode("")
	c.log.Style.FG = th.FG

	c.view = canopy.NewNode()
	c.view.Style.Size = canopy.Size{W: canopy.Pct(100), H: canopy.Pct(100)}
	c.view.Style.Grow = true
	c.view.AttachChild(c.log)

	c.node = canopy.NewNode()
	c.node.Focusable = true
	c.node.Style.Size = canopy.Size{W: canopy.Cells(w), H: canopy.Cells(h)}
	c.node.Style.Grow = true
	c.node.Style.Border = canopy.BorderAll()
	c.node.Style.Border.Set = th.Border
	c.node.Style.Border.Color = th.BorderFG
	c.node.Style.BG = th.BG
	c.node.AttachChild(c.view)
	c.node.OnBubble(c.handle)

	c.log.Text.WrapText(c.contentW())
	return c
}

// Node returns the console's tree node.
func (c *Console) Node() *canopy.Node { return c.node }

// Lines returns the number of retained logical lines.
func (c *Console) Lines() int {
	if c.empty {
		return 0
	}
	return c.log.Text.NumLines()
}

// Append adds s as new log lines, splitting on newlines. Spans style
// ranges of the appended block; their Line index is relative to its
// first line.
func (c *Console) Append(s string, spans ...canopy.StyleSpan) {
	t := c.log.Text
	parts := strings.Split(s, "\n")
	var first int
	if c.empty {
		t.SetLine(0, parts[0])
		c.empty = false
	} else {
		t.AppendLine(parts[0])
		first = t.NumLines() - 1
	}
	for _, p := range parts[1:] {
		t.AppendLine(p)
	}
	for _, sp := range spans {
		sp.Line += first
		t.AddSpan(sp)
	}
	if c.MaxLines > 0 {
		for t.NumLines() > c.MaxLines {
			t.RemoveLine(0)
		}
	}
	if len(t.Spans()) > flattenAfter {
		t.FlattenSpans()
	}
	c.sync()
}

// Clear drops every line.
func (c *Console) Clear() {
	c.log.Text.SetString("")
	c.log.Text.ClearSpans()
	c.log.Text.WrapText(c.contentW())
	c.empty = true
	c.top = 0
	c.stick = true
	c.sync()
}

// SetSize resizes the frame and re-wraps the log at the new content
// width.
func (c *Console) SetSize(w, h int) {
	c.w, c.h = w, h
	c.node.Style.Size = canopy.Size{W: canopy.Cells(w), H: canopy.Cells(h)}
	c.log.Text.WrapText(c.contentW())
	c.sync()
}

// ScrollBy moves the window by delta visual lines, negative toward the
// oldest. Reaching the tail re-engages follow mode.
func (c *Console) ScrollBy(delta int) {
	c.top += delta
	c.stick = false
	c.sync()
	c.stick = c.top == c.maxTop()
}

// ScrollToEnd jumps to the tail and follows it again.
func (c *Console) ScrollToEnd() {
	c.stick = true
	c.sync()
}

func (c *Console) handle(_ *canopy.DispatchContext, _ *canopy.Node, ev canopy.Event) bool {
	switch ev := ev.(type) {
	case canopy.PointerEvent:
		if ev.Kind != canopy.PointerWheel {
			return false
		}
		switch ev.Button {
		case uv.MouseWheelUp:
			c.ScrollBy(-wheelStep)
		case uv.MouseWheelDown:
			c.ScrollBy(wheelStep)
		default:
			return false
		}
		return true
	case canopy.KeyEvent:
		switch uv.Key(ev.KeyPressEvent).Code {
		case uv.KeyPgUp:
			c.ScrollBy(-c.contentH())
			return true
		case uv.KeyPgDown:
			c.ScrollBy(c.contentH())
			return true
		case uv.KeyEnd:
			c.ScrollToEnd()
			return true
		}
	}
	return false
}

// sync clamps the window, applies it as the log's upward shift, and
// requests a repaint.
func (c *Console) sync() {
	maxTop := c.maxTop()
	if c.stick || c.top > maxTop {
		c.top = maxTop
	}
	if c.top < 0 {
		c.top = 0
	}
	c.log.Style.Offset = canopy.Offset{Kind: canopy.OffsetTranslate, Y: -c.top}
	refresh(c.node)
}

func (c *Console) maxTop() int {
	return max(0, c.log.Text.VisualLines()-c.contentH())
}

func (c *Console) contentW() int { return max(1, c.w-2) }
func (c *Console) contentH() int { return max(1, c.h-2) }
