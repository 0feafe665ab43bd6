package canopy

// DispatchContext is handed to every handler during a dispatch. It exposes
// the app, the event's target, and whether the handler is running in the
// target phase.
type DispatchContext struct {
	app      *App
	target   *Node
	isTarget bool
}

// App returns the dispatching app.
func (dc *DispatchContext) App() *App { return dc.app }

// Target returns the node the event is aimed at.
func (dc *DispatchContext) Target() *Node { return dc.target }

// IsTarget reports whether the current handler runs in the target phase,
// as opposed to capture or bubble on an ancestor.
func (dc *DispatchContext) IsTarget() bool { return dc.isTarget }

// pointerHold pins pointer delivery to one node between a button press and
// its release. pos is where the press happened; drag deltas are measured
// from it.
type pointerHold struct {
	pos Position
	id  NodeID
}

// Dispatch runs the three-phase protocol: capture handlers from the root
// down to the target's parent, then the target's capture and bubble
// handlers, then bubble handlers from the target's parent back to the
// root. The first handler returning true marks the event handled and
// aborts the remaining phases. Reports whether the event was handled.
func (a *App) Dispatch(target *Node, ev Event) bool {
	if target == nil {
		return false
	}
	dc := &DispatchContext{app: a, target: target}
	path := target.path()

	for _, n := range path[:len(path)-1] {
		for _, h := range n.capture {
			if h(dc, n, ev) {
				return true
			}
		}
	}

	dc.isTarget = true
	for _, h := range target.capture {
		if h(dc, target, ev) {
			return true
		}
	}
	for _, h := range target.bubble {
		if h(dc, target, ev) {
			return true
		}
	}
	dc.isTarget = false

	for i := len(path) - 2; i >= 0; i-- {
		n := path[i]
		for _, h := range n.bubble {
			if h(dc, n, ev) {
				return true
			}
		}
	}
	return false
}

// deliver runs n's own handlers without propagation, used for events that
// address one node directly (focus transitions, enter and leave).
func (a *App) deliver(n *Node, ev Event) {
	dc := &DispatchContext{app: a, target: n, isTarget: true}
	for _, h := range n.capture {
		if h(dc, n, ev) {
			return
		}
	}
	for _, h := range n.bubble {
		if h(dc, n, ev) {
			return
		}
	}
}

// nodeAt resolves a screen position to the topmost node via the hit-map.
// Misses fall through to the root, which owns the whole screen.
func (a *App) nodeAt(pos Position) *Node {
	if id := a.hits.At(pos.X, pos.Y); id != 0 {
		if n, ok := a.nodes[id]; ok {
			return n
		}
	}
	return a.root
}

// dispatchPointer routes a pointer event. Presses record a hold and move
// focus to the nearest focusable node at the press position. While a hold
// is active, motion re-targets to the held node as a drag with the
// displacement from the press position; the release is delivered to the
// held node and clears the hold. Free motion synthesizes enter and leave
// transitions against the previously hovered node.
func (a *App) dispatchPointer(ev PointerEvent) bool {
	switch ev.Kind {
	case PointerDown:
		t := a.nodeAt(ev.Pos)
		a.hold = &pointerHold{pos: ev.Pos, id: t.id}
		a.focusFromPointer(t)
		return a.Dispatch(t, ev)

	case PointerUp:
		t := a.nodeAt(ev.Pos)
		if a.hold != nil {
			if held, ok := a.nodes[a.hold.id]; ok {
				t = held
			}
			a.hold = nil
		}
		return a.Dispatch(t, ev)

	case PointerMove:
		if a.hold != nil {
			if held, ok := a.nodes[a.hold.id]; ok {
				drag := ev
				drag.Kind = PointerDrag
				drag.Delta = ev.Pos.Sub(a.hold.pos)
				return a.Dispatch(held, drag)
			}
			// The held node was removed mid-drag.
			a.hold = nil
		}
		t := a.nodeAt(ev.Pos)
		a.syncHover(t, ev)
		return a.Dispatch(t, ev)

	case PointerWheel:
		return a.Dispatch(a.nodeAt(ev.Pos), ev)
	}
	return false
}

// syncHover compares the node under the pointer with the one hovered last
// time and synthesizes leave and enter events on a change. Neither
// propagates.
func (a *App) syncHover(t *Node, ev PointerEvent) {
	if t != nil && t.id == a.hoverID {
		return
	}
	if old, ok := a.nodes[a.hoverID]; ok {
		leave := ev
		leave.Kind = PointerLeave
		a.deliver(old, leave)
	}
	a.hoverID = 0
	if t != nil {
		a.hoverID = t.id
		enter := ev
		enter.Kind = PointerEnter
		a.deliver(t, enter)
	}
}

// focusFromPointer walks from the pressed node to the root and focuses the
// first focusable node found. A press with no focusable node above it
// leaves focus alone.
func (a *App) focusFromPointer(t *Node) {
	for n := t; n != nil; n = n.parent {
		if n.Focusable {
			a.Focus(n)
			return
		}
	}
}

// Focused returns the currently focused node, or nil when focus is empty
// or the focused node has been removed.
func (a *App) Focused() *Node {
	return a.nodes[a.focusID]
}

// Focus moves focus to n (nil clears it). It diffs the old and new
// root-to-focus paths below their common ancestors and delivers a lost
// event to each node leaving the focus path, deepest first, then a gained
// event to each node joining it, shallowest first. Common ancestors
// receive nothing; focusing the focused node again is a no-op.
func (a *App) Focus(n *Node) {
	var oldPath []*Node
	if old := a.Focused(); old != nil {
		oldPath = old.path()
	}
	var newPath []*Node
	var newID NodeID
	if n != nil {
		newPath = n.path()
		newID = n.id
	}

	common := 0
	for common < len(oldPath) && common < len(newPath) && oldPath[common] == newPath[common] {
		common++
	}

	a.focusID = newID
	for i := len(oldPath) - 1; i >= common; i-- {
		a.deliver(oldPath[i], FocusEvent{Gained: false})
	}
	for i := common; i < len(newPath); i++ {
		a.deliver(newPath[i], FocusEvent{Gained: true})
	}
}

// CycleFocus moves focus through the focusable nodes in document order,
// the flat tab-cycle. The scope is the subtree under the nearest ancestor
// of the current focus matching boundary, or the whole tree when boundary
// is nil or never matches. Reports whether focus moved; hitting an edge
// without wrap, or computing the node already focused, moves nothing.
func (a *App) CycleFocus(backward, wrap bool, boundary func(*Node) bool) bool {
	cur := a.Focused()
	scope := a.root
	if boundary != nil && cur != nil {
		for n := cur; n != nil; n = n.parent {
			if boundary(n) {
				scope = n
				break
			}
		}
	}
	if scope == nil {
		return false
	}

	var order []*Node
	scope.walk(func(n *Node) bool {
		if n.Focusable {
			order = append(order, n)
		}
		return true
	})
	if len(order) == 0 {
		return false
	}

	idx := -1
	for i, n := range order {
		if n == cur {
			idx = i
			break
		}
	}
	var next int
	if idx < 0 {
		next = 0
		if backward {
			next = len(order) - 1
		}
	} else {
		next = idx + 1
		if backward {
			next = idx - 1
		}
		if next < 0 || next >= len(order) {
			if !wrap {
				return false
			}
			next = (next + len(order)) % len(order)
		}
	}
	if order[next] == cur {
		return false
	}
	a.Focus(order[next])
	return true
}
