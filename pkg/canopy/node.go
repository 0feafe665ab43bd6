package canopy

import "fmt"

// Node is one element of the retained tree. Hosts mutate Style, Text, and
// children between frames and ask the owning [App] (or [Node.Compute]
// directly for detached measurement) to lay the tree out again.
//
// Ownership is single: a node has at most one parent, and attaching an
// already-attached node panics. Nodes are reachable by id through the App
// registry while attached; detaching a subtree unregisters it, so stale
// ids stop resolving.
type Node struct {
	id    NodeID
	Style Style
	Text  *Text

	// Focusable marks the node as a focus target for pointer-down focus
	// and focus cycling.
	Focusable bool

	parent   *Node
	children []*Node

	capture []Handler
	bubble  []Handler

	workers []*worker
	app     *App

	canvas *Canvas
	cache  layoutCache

	// paintOrder is the pasted-children ordering of the last canvas pass,
	// reused by hit-map stamping.
	paintOrder []*Node
}

// layoutCache snapshots the inputs and outputs of the last layout so
// recompute can restart from any node and the invalidation walk can tell
// whether size or offset typing changed.
type layoutCache struct {
	valid      bool
	parentPos  Position
	avail      Avail
	offsetKind OffsetKind
	sizeW      SizeVal
	sizeH      SizeVal
	rect       Rect
}

// NewNode allocates a node with a fresh id and a zero style.
func NewNode() *Node {
	return &Node{id: nextNodeID()}
}

// NewTextNode allocates a node holding the given text.
func NewTextNode(s string) *Node {
	n := NewNode()
	n.Text = NewText(s)
	return n
}

// ID returns the node's process-unique id.
func (n *Node) ID() NodeID { return n.id }

// Parent returns the owning node, or nil for a root or detached node.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child list. The slice is the node's own; treat it
// as read-only and mutate through Attach/Detach.
func (n *Node) Children() []*Node { return n.children }

// AttachChild appends child to n's children. Child order is significant:
// it is flow order and the z tie-break. Attaching a node that already has
// a parent panics.
func (n *Node) AttachChild(child *Node) {
	if child.parent != nil {
		panic(fmt.Sprintf("canopy: node %d is already attached to node %d", child.id, child.parent.id))
	}
	child.parent = n
	n.children = append(n.children, child)
	if n.app != nil {
		n.app.registerTree(child)
	}
}

// InsertChild places child at index i in flow order.
func (n *Node) InsertChild(i int, child *Node) {
	if child.parent != nil {
		panic(fmt.Sprintf("canopy: node %d is already attached to node %d", child.id, child.parent.id))
	}
	i = max(0, min(i, len(n.children)))
	child.parent = n
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = child
	if n.app != nil {
		n.app.registerTree(child)
	}
}

// DetachChild removes child from n. The detached subtree is unregistered
// from the app and its workers are flagged to shut down. Detaching a node
// that is not a child is a no-op.
func (n *Node) DetachChild(child *Node) {
	for i, ch := range n.children {
		if ch == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			if n.app != nil {
				n.app.unregisterTree(child)
			}
			return
		}
	}
}

// Detach removes n from its parent, if any.
func (n *Node) Detach() {
	if n.parent != nil {
		n.parent.DetachChild(n)
	}
}

// OnCapture registers a handler for the capture phase, which runs from the
// root toward the target before the target sees the event.
func (n *Node) OnCapture(h Handler) {
	n.capture = append(n.capture, h)
}

// OnBubble registers a handler for the target and bubble phases.
func (n *Node) OnBubble(h Handler) {
	n.bubble = append(n.bubble, h)
}

// Rect returns the node's absolute canvas rectangle from the last layout.
func (n *Node) Rect() Rect { return n.cache.rect }

// Canvas returns the node's canvas from the last layout, or nil before the
// first one.
func (n *Node) Canvas() *Canvas { return n.canvas }

// App returns the app this node is attached to, or nil while detached.
func (n *Node) App() *App { return n.app }

// path returns root-to-n, inclusive.
func (n *Node) path() []*Node {
	var rev []*Node
	for cur := n; cur != nil; cur = cur.parent {
		rev = append(rev, cur)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// walk visits n and every descendant pre-order until fn returns false.
func (n *Node) walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, ch := range n.children {
		if !ch.walk(fn) {
			return false
		}
	}
	return true
}
