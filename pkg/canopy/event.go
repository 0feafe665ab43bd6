package canopy

import (
	uv "github.com/charmbracelet/ultraviolet"
)

// Event is anything the dispatcher delivers to node handlers: key presses,
// pointer activity, focus changes, and bracketed pastes. The set is closed;
// handlers switch on the concrete type.
type Event interface {
	event()
}

// KeyEvent is a decoded key press.
//
// The embedded [uv.KeyPressEvent] carries the key code, text, and
// modifiers. Match keys the ultraviolet way:
//
//	key := uv.Key(ev.KeyPressEvent)
//	if key.Code == uv.KeyEnter { ... }
type KeyEvent struct {
	uv.KeyPressEvent
}

func (KeyEvent) event() {}

// PasteEvent is a bracketed paste. The embedded [uv.PasteEvent] is the
// pasted text.
type PasteEvent struct {
	uv.PasteEvent
}

func (PasteEvent) event() {}

// Text returns the pasted text.
func (e PasteEvent) Text() string { return e.PasteEvent.Content }

// PointerKind distinguishes pointer event subtypes.
type PointerKind int

const (
	// PointerDown is a button press. It starts a hold: until the matching
	// release, further pointer events are delivered to the pressed node.
	PointerDown PointerKind = iota
	// PointerUp is a button release. It ends the current hold.
	PointerUp
	// PointerMove is motion with no button held.
	PointerMove
	// PointerDrag is motion while a hold is active. It is delivered to the
	// held node even when the pointer has left its bounds.
	PointerDrag
	// PointerWheel is a scroll tick; Button tells the direction.
	PointerWheel
	// PointerEnter is synthesized when motion first brings the pointer
	// over a node.
	PointerEnter
	// PointerLeave is synthesized when motion takes the pointer off a
	// node it previously entered.
	PointerLeave
)

// String returns the kind's wire name as used in debug logs.
func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerUp:
		return "up"
	case PointerMove:
		return "move"
	case PointerDrag:
		return "drag"
	case PointerWheel:
		return "wheel"
	case PointerEnter:
		return "enter"
	case PointerLeave:
		return "leave"
	}
	return "unknown"
}

// PointerEvent is a decoded mouse event routed through the hit-map.
//
// Pos is in screen cells. For PointerDrag, Delta is the displacement from
// the position where the hold began; it is zero for every other kind.
// Button is meaningful for down, up, and wheel events.
type PointerEvent struct {
	Kind   PointerKind
	Pos    Position
	Delta  Position
	Button uv.MouseButton
	Mod    uv.KeyMod
}

func (PointerEvent) event() {}

// FocusEvent reports a focus transition. Gained is true on the newly
// focused path and false on the path losing focus. Ancestors common to
// both paths receive neither.
type FocusEvent struct {
	Gained bool
}

func (FocusEvent) event() {}

// Handler reacts to an event during dispatch. Returning true marks the
// event handled, which stops the current phase and skips the remaining
// ones.
type Handler func(dc *DispatchContext, n *Node, ev Event) bool
