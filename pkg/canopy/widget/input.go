package widget

import (
	"strings"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/vito/canopy/pkg/canopy"
)

// Input is a single-line text editor in a fixed-width window. The value
// scrolls horizontally to keep the cursor in view, the cursor renders as
// a reverse-video cell, and all editing moves by grapheme cluster.
type Input struct {
	node  *canopy.Node
	theme Theme
	width int

	// Placeholder shows in the muted color while the value is empty and
	// the input is unfocused.
	Placeholder string

	// OnSubmit is called with the trimmed value when Enter is pressed,
	// and again when focus leaves after edits. Return true to clear the
	// input.
	OnSubmit func(value string) bool

	// OnChange is called after the value changes. It is not called for
	// cursor-only movement.
	OnChange func()

	value  string
	cursor int // grapheme index into value
	scroll int // first visible grapheme index

	focused bool
	edited  bool // value changed since focus was gained
}

// NewInput builds an input showing width cells of text.
func NewInput(th Theme, width int) *Input {
	in := &Input{theme: th, width: width}
	n := canopy.NewTextNode("")
	n.Focusable = true
	n.Style.Size.W = canopy.Cells(width)
	n.Style.Grow = true
	n.Style.FG = th.FG
	n.Style.BG = th.BG
	in.node = n
	n.OnBubble(in.handle)
	in.sync()
	return in
}

// Node returns the input's tree node.
func (in *Input) Node() *canopy.Node { return in.node }

// Value returns the current text.
func (in *Input) Value() string { return in.value }

// SetValue replaces the text and moves the cursor to the end.
func (in *Input) SetValue(s string) {
	in.value = s
	in.cursor = canopy.NewBufferLine(s).Count()
	in.sync()
}

func (in *Input) line() canopy.BufferLine { return canopy.NewBufferLine(in.value) }

func (in *Input) handle(_ *canopy.DispatchContext, _ *canopy.Node, ev canopy.Event) bool {
	switch ev := ev.(type) {
	case canopy.KeyEvent:
		return in.handleKey(uv.Key(ev.KeyPressEvent))
	case canopy.PasteEvent:
		in.insert(strings.ReplaceAll(ev.Text(), "\n", " "))
		return true
	case canopy.FocusEvent:
		in.focused = ev.Gained
		if !ev.Gained && in.edited {
			in.commit()
		}
		in.sync()
	case canopy.PointerEvent:
		if ev.Kind == canopy.PointerDown {
			in.seek(ev.Pos)
			return true
		}
	}
	return false
}

func (in *Input) handleKey(key uv.Key) bool {
	line := in.line()
	switch {
	case key.Code == uv.KeyEnter:
		in.commit()
	case key.Code == uv.KeyBackspace:
		in.deleteRange(in.cursor-1, in.cursor)
	case key.Code == uv.KeyDelete:
		in.deleteRange(in.cursor, in.cursor+1)

	// Word movement binds before the bare arrows.
	case key.Code == uv.KeyLeft && key.Mod == uv.ModCtrl,
		key.Code == uv.KeyLeft && key.Mod == uv.ModAlt,
		key.Code == 'b' && key.Mod == uv.ModAlt:
		in.moveTo(in.wordLeft())
	case key.Code == uv.KeyRight && key.Mod == uv.ModCtrl,
		key.Code == uv.KeyRight && key.Mod == uv.ModAlt,
		key.Code == 'f' && key.Mod == uv.ModAlt:
		in.moveTo(in.wordRight())

	case key.Code == uv.KeyLeft, key.Code == 'b' && key.Mod == uv.ModCtrl:
		in.moveTo(in.cursor - 1)
	case key.Code == uv.KeyRight, key.Code == 'f' && key.Mod == uv.ModCtrl:
		in.moveTo(in.cursor + 1)
	case key.Code == uv.KeyHome, key.Code == 'a' && key.Mod == uv.ModCtrl:
		in.moveTo(0)
	case key.Code == uv.KeyEnd, key.Code == 'e' && key.Mod == uv.ModCtrl:
		in.moveTo(line.Count())

	case key.Code == 'u' && key.Mod == uv.ModCtrl:
		in.deleteRange(0, in.cursor)
	case key.Code == 'k' && key.Mod == uv.ModCtrl:
		in.deleteRange(in.cursor, line.Count())
	case key.Code == 'w' && key.Mod == uv.ModCtrl:
		in.deleteRange(in.wordLeft(), in.cursor)
	case key.Code == 'd' && key.Mod == uv.ModAlt:
		in.deleteRange(in.cursor, in.wordRight())

	case key.Code == 't' && key.Mod == uv.ModCtrl:
		in.transpose(line)

	case key.Text != "" && key.Mod&(uv.ModCtrl|uv.ModAlt) == 0:
		in.insert(key.Text)

	default:
		return false
	}
	return true
}

func (in *Input) insert(s string) {
	if s == "" {
		return
	}
	line := in.line()
	in.value = line.Slice(0, in.cursor) + s + line.Slice(in.cursor, line.Count())
	in.cursor += canopy.NewBufferLine(s).Count()
	in.changed()
}

func (in *Input) deleteRange(from, to int) {
	line := in.line()
	if from < 0 {
		from = 0
	}
	if to > line.Count() {
		to = line.Count()
	}
	if from >= to {
		return
	}
	in.value = line.Slice(0, from) + line.Slice(to, line.Count())
	in.cursor = from
	in.changed()
}

func (in *Input) transpose(line canopy.BufferLine) {
	if in.cursor == 0 || in.cursor >= line.Count() {
		return
	}
	a := line.Cluster(in.cursor - 1)
	b := line.Cluster(in.cursor)
	in.value = line.Slice(0, in.cursor-1) + b + a + line.Slice(in.cursor+1, line.Count())
	in.cursor++
	in.changed()
}

func (in *Input) moveTo(j int) {
	line := in.line()
	if j < 0 {
		j = 0
	}
	if j > line.Count() {
		j = line.Count()
	}
	in.cursor = j
	in.sync()
}

func (in *Input) wordLeft() int {
	line := in.line()
	j := in.cursor
	for j > 0 && isBlank(line.Cluster(j-1)) {
		j--
	}
	for j > 0 && !isBlank(line.Cluster(j-1)) {
		j--
	}
	return j
}

func (in *Input) wordRight() int {
	line := in.line()
	j := in.cursor
	for j < line.Count() && !isBlank(line.Cluster(j)) {
		j++
	}
	for j < line.Count() && isBlank(line.Cluster(j)) {
		j++
	}
	return j
}

// seek moves the cursor to the clicked cell.
func (in *Input) seek(pos canopy.Position) {
	line := in.line()
	col := pos.X - in.node.Rect().X
	j := in.scroll
	for j < line.Count() && line.WidthTo(j+1)-line.WidthTo(in.scroll) <= col {
		j++
	}
	in.cursor = j
	in.sync()
}

func (in *Input) changed() {
	in.edited = true
	in.sync()
	if in.OnChange != nil {
		in.OnChange()
	}
}

func (in *Input) commit() {
	in.edited = false
	if in.OnSubmit == nil {
		return
	}
	if in.OnSubmit(strings.TrimSpace(in.value)) {
		in.value = ""
		in.cursor = 0
		in.scroll = 0
		in.sync()
	}
}

// sync rebuilds the node's text and spans: the visible window of the
// value plus a reverse-video cursor cell while focused, or the muted
// placeholder while empty and blurred.
func (in *Input) sync() {
	t := in.node.Text
	t.ClearSpans()
	if in.value == "" && !in.focused && in.Placeholder != "" {
		t.SetString(in.Placeholder)
		if in.theme.MutedFG != nil {
			t.AddSpan(canopy.StyleSpan{
				Code: canopy.FGCode(in.theme.MutedFG),
				Line: 0,
				Len:  canopy.NewBufferLine(in.Placeholder).Count(),
			})
		}
		refresh(in.node)
		return
	}

	line := in.line()
	in.clampScroll(line)
	end := in.scroll
	for end < line.Count() && line.WidthTo(end+1)-line.WidthTo(in.scroll) <= in.width {
		end++
	}
	visible := line.Slice(in.scroll, end)
	if in.focused && in.cursor == line.Count() {
		visible += " "
	}
	t.SetString(visible)
	if in.focused {
		t.AddSpan(canopy.StyleSpan{
			Code:  canopy.AttrCode(canopy.AttrReverse),
			Line:  0,
			Start: in.cursor - in.scroll,
			Len:   1,
		})
	}
	refresh(in.node)
}

// clampScroll slides the window so the cursor cell fits inside it.
func (in *Input) clampScroll(line canopy.BufferLine) {
	if in.scroll > in.cursor {
		in.scroll = in.cursor
	}
	cw := 1
	if in.cursor < line.Count() {
		cw = line.ClusterWidth(in.cursor)
	}
	for in.scroll < in.cursor && line.WidthTo(in.cursor)+cw-line.WidthTo(in.scroll) > in.width {
		in.scroll++
	}
}

func isBlank(cluster string) bool { return strings.TrimSpace(cluster) == "" }
