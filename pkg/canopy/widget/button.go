package widget

import (
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/vito/canopy/pkg/canopy"
)

// Button is a focusable click target. It activates on Enter or space
// while focused, or on a left-button release over it.
type Button struct {
	node  *canopy.Node
	theme Theme

	// OnPress runs on the UI goroutine when the button activates.
	OnPress func()

	hovered bool
	focused bool
}

// NewButton builds a button with the given label.
func NewButton(th Theme, label string, onPress func()) *Button {
	b := &Button{theme: th, OnPress: onPress}
	n := canopy.NewTextNode(label)
	n.Focusable = true
	n.Style.Padding = canopy.Padding{Left: 1, Right: 1}
	b.node = n
	b.restyle()
	n.OnBubble(b.handle)
	return b
}

// Node returns the button's tree node.
func (b *Button) Node() *canopy.Node { return b.node }

// SetLabel replaces the button text.
func (b *Button) SetLabel(s string) {
	b.node.Text.SetString(s)
	refresh(b.node)
}

func (b *Button) handle(_ *canopy.DispatchContext, _ *canopy.Node, ev canopy.Event) bool {
	switch ev := ev.(type) {
	case canopy.KeyEvent:
		key := uv.Key(ev.KeyPressEvent)
		if key.Code == uv.KeyEnter || key.Text == " " {
			b.press()
			return true
		}
	case canopy.PointerEvent:
		switch ev.Kind {
		case canopy.PointerEnter:
			b.hovered = true
			b.restyle()
			refresh(b.node)
		case canopy.PointerLeave:
			b.hovered = false
			b.restyle()
			refresh(b.node)
		case canopy.PointerUp:
			// Releases come back to the pressed node even after a drag
			// away, so require the pointer to still be over the button.
			if ev.Button == uv.MouseLeft && b.node.Rect().Contains(ev.Pos) {
				b.press()
				return true
			}
		}
	case canopy.FocusEvent:
		b.focused = ev.Gained
		b.restyle()
		refresh(b.node)
	}
	return false
}

func (b *Button) press() {
	if b.OnPress != nil {
		b.OnPress()
	}
}

// restyle recolors the node for the current hover and focus state.
func (b *Button) restyle() {
	s := &b.node.Style
	s.FG, s.BG = b.theme.FG, b.theme.BG
	if b.hovered {
		s.BG = b.theme.HoverBG
	}
	if b.focused {
		s.FG, s.BG = b.theme.FocusFG, b.theme.FocusBG
	}
}
