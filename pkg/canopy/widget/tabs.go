package widget

import (
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/vito/canopy/pkg/canopy"
)

// Tab is one labelled page of a Tabs strip.
type Tab struct {
	Title   string
	Content *canopy.Node
}

// Tabs is a header row over a single content slot. Clicking a header
// selects its page, Left/Right switch pages while the header row is
// focused, and Tab/Shift+Tab cycle focus among the focusable nodes of
// the strip.
type Tabs struct {
	node   *canopy.Node
	header *canopy.Node
	slot   *canopy.Node
	theme  Theme

	tabs     []Tab
	labels   []*canopy.Node
	selected int
	focused  bool

	// OnSelect runs after the selection changes.
	OnSelect func(index int)
}

// NewTabs builds a strip over the given pages; the first is selected.
func NewTabs(th Theme, tabs ...Tab) *Tabs {
	t := &Tabs{theme: th, tabs: tabs}

	t.header = canopy.NewNode()
	t.header.Focusable = true
	t.header.Style.Direction = canopy.Row
	t.header.Style.Gap = canopy.Gap{Col: 1}
	t.header.OnBubble(t.handleHeader)

	for i, tab := range tabs {
		label := canopy.NewTextNode(tab.Title)
		label.Style.Padding = canopy.Padding{Left: 1, Right: 1}
		t.labels = append(t.labels, label)
		t.header.AttachChild(label)

		label.OnBubble(func(_ *canopy.DispatchContext, _ *canopy.Node, ev canopy.Event) bool {
			pe, ok := ev.(canopy.PointerEvent)
			if ok && pe.Kind == canopy.PointerDown {
				t.Select(i)
				return true
			}
			return false
		})
	}

	t.slot = canopy.NewNode()

	t.node = canopy.NewNode()
	t.node.Style.Direction = canopy.Column
	t.node.AttachChild(t.header)
	t.node.AttachChild(t.slot)
	t.node.OnBubble(t.handle)

	if len(tabs) > 0 {
		t.slot.AttachChild(tabs[0].Content)
	}
	t.restyle()
	return t
}

// Node returns the strip's root node.
func (t *Tabs) Node() *canopy.Node { return t.node }

// Selected returns the index of the current page.
func (t *Tabs) Selected() int { return t.selected }

// Select switches to page i.
func (t *Tabs) Select(i int) {
	if i < 0 || i >= len(t.tabs) || i == t.selected {
		return
	}
	t.slot.DetachChild(t.tabs[t.selected].Content)
	t.selected = i
	t.slot.AttachChild(t.tabs[i].Content)
	t.restyle()

	// Detaching the old page drops focus if it was inside; land it on
	// the header instead of leaving nothing focused.
	if app := t.node.App(); app != nil {
		if app.Focused() == nil {
			app.Focus(t.header)
		}
		app.RequestRecompute(t.node)
	}
	if t.OnSelect != nil {
		t.OnSelect(i)
	}
}

// handleHeader reacts to focus and arrow keys on the header row.
func (t *Tabs) handleHeader(_ *canopy.DispatchContext, _ *canopy.Node, ev canopy.Event) bool {
	switch ev := ev.(type) {
	case canopy.FocusEvent:
		t.focused = ev.Gained
		t.restyle()
	case canopy.KeyEvent:
		key := uv.Key(ev.KeyPressEvent)
		switch key.Code {
		case uv.KeyLeft:
			t.Select(t.selected - 1)
			return true
		case uv.KeyRight:
			t.Select(t.selected + 1)
			return true
		}
	}
	return false
}

// handle cycles focus within the strip on Tab and Shift+Tab.
func (t *Tabs) handle(dc *canopy.DispatchContext, _ *canopy.Node, ev canopy.Event) bool {
	ke, ok := ev.(canopy.KeyEvent)
	if !ok {
		return false
	}
	key := uv.Key(ke.KeyPressEvent)
	if key.Code != uv.KeyTab {
		return false
	}
	backward := key.Mod == uv.ModShift
	return dc.App().CycleFocus(backward, true, func(n *canopy.Node) bool {
		return n == t.node
	})
}

// restyle recolors every header label for the current selection.
func (t *Tabs) restyle() {
	for i, label := range t.labels {
		s := &label.Style
		s.FG, s.BG, s.Attrs = t.theme.MutedFG, nil, 0
		if i != t.selected {
			continue
		}
		s.FG = t.theme.AccentFG
		s.Attrs = canopy.AttrBold
		if t.focused {
			s.FG, s.BG = t.theme.FocusFG, t.theme.FocusBG
		}
	}
	refresh(t.header)
}
