// Package canopy is a retained-mode terminal UI engine. Hosts build a tree
// of [Node]s carrying text, styles, and sizes; the engine resolves layout in
// two sizing passes, composites each node into a styled-line [Canvas], and
// renders the result as ANSI with redundant style codes pruned. Input is
// routed through capture, target, and bubble phases with focus tracking and
// pointer hold, and each node can run background workers that post closures
// back to the owning loop.
//
// An [App] ties a tree to a [Terminal] and owns all cross-node state: the
// node registry, the hit-map, focus, and the worker message channel. Nodes
// are only safe to mutate from the loop that owns the App, either directly
// or via closures posted from workers.
package canopy

import "sync/atomic"

// NodeID identifies a node for the lifetime of the process. The zero value
// is reserved: hit-map cells with no node under them report 0, and no node
// is ever allocated id 0.
type NodeID uint64

var idCounter atomic.Uint64

func nextNodeID() NodeID {
	return NodeID(idCounter.Add(1))
}

// Position is a screen- or canvas-space cell coordinate, 0-based, X growing
// right and Y growing down.
type Position struct {
	X, Y int
}

// Add returns p shifted by q.
func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p minus q.
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// Rect is a rectangle of cells anchored at Position.
type Rect struct {
	Position
	W, H int
}

// Empty reports whether r covers no cells.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Contains reports whether p falls inside r.
func (r Rect) Contains(p Position) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Intersect returns the overlap of r and o, which may be empty.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.W, o.X+o.W)
	y1 := min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{Position: Position{X: x0, Y: y0}, W: x1 - x0, H: y1 - y0}
}

// Union returns the smallest rectangle covering both r and o. An empty rect
// contributes nothing, so the union with one is the other.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Rect{Position: Position{X: x0, Y: y0}, W: x1 - x0, H: y1 - y0}
}
