package canopy

// affectsParent reports whether a change to n can alter its parent's
// layout: true when n is auto-sized on either axis or its size or offset
// kind differs from the last cached layout. A node that was and still is
// absolutely positioned never affects its parent, whatever changed; its
// box is outside the parent's accumulation.
func (n *Node) affectsParent() bool {
	s := &n.Style
	if n.cache.valid && n.cache.offsetKind == OffsetAbsolute && s.Offset.Kind == OffsetAbsolute {
		return false
	}
	if s.Size.W.Kind == SizeAuto || s.Size.H.Kind == SizeAuto {
		return true
	}
	if !n.cache.valid {
		return true
	}
	return sizeChanged(n.cache.sizeW, s.Size.W) ||
		sizeChanged(n.cache.sizeH, s.Size.H) ||
		n.cache.offsetKind != s.Offset.Kind
}

func sizeChanged(was, is SizeVal) bool {
	return was.Kind != is.Kind || was.Val != is.Val
}

// RequestRecompute re-lays-out the smallest subtree affected by a change
// to n and queues the smallest screen region covering the visual result.
//
// The walk ascends from n while affectsParent holds and recomputes from
// the stopping ancestor using its cached layout inputs, not from the
// root. The queued region is the union of that ancestor's old and new
// canvas rectangles, clipped to its parent's rectangle: every cell that
// changed lies inside it, including siblings the re-layout shifted. When
// the recomputed subtree itself moved, its old pixels are still present
// in the ancestor composites, so the parent's canvas pass runs too and
// repaints the vacated cells; the region stays the moved subtree's
// union. The fresh canvas is pasted back into each remaining ancestor
// composite so a later render of any enclosing region stays consistent.
//
// A node that has never been laid out falls back to a full render.
func (a *App) RequestRecompute(n *Node) {
	if n == nil || a.root == nil {
		return
	}
	cur := n
	for cur.parent != nil && cur.affectsParent() {
		cur = cur.parent
	}
	if !cur.cache.valid {
		a.RequestRender()
		return
	}
	oldRect := cur.cache.rect
	cur.Compute(cur.cache.parentPos, cur.cache.avail)

	vp := oldRect.Union(cur.cache.rect)
	if p := cur.parent; p != nil && p.cache.valid {
		vp = vp.Intersect(p.cache.rect)
	}
	if cur.parent != nil && cur.cache.rect.Position != oldRect.Position {
		cur = cur.parent
		if !cur.cache.valid {
			a.RequestRender()
			return
		}
		cur.Compute(cur.cache.parentPos, cur.cache.avail)
	}
	for p := cur.parent; p != nil; p = p.parent {
		if p.canvas != nil {
			p.canvas.PasteOnTop(cur.canvas)
		}
	}
	a.restampHits(vp)
	a.addDirty(vp)
	a.requestFlush()
}

// addDirty widens the pending partial region to cover r. Regions queued
// in the same loop iteration coalesce into their union and are flushed by
// a single write.
func (a *App) addDirty(r Rect) {
	if r.Empty() {
		return
	}
	if a.dirty == nil {
		a.dirty = &r
		return
	}
	u := a.dirty.Union(r)
	a.dirty = &u
}

// restampHits rebuilds the hit-map within r only; cells outside keep
// their previous owners.
func (a *App) restampHits(r Rect) {
	if a.hits == nil || a.root == nil {
		return
	}
	w, h := a.hits.Size()
	r = r.Intersect(Rect{W: w, H: h})
	if r.Empty() {
		return
	}
	a.hits.Clear(r)
	a.root.stampHits(a.hits, r)
}
