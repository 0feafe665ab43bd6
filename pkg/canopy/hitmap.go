package canopy

// HitMap maps every screen cell to the topmost node covering it. Cells
// under no node hold 0. Stamping happens in composite order, later stamps
// winning, so z-order falls out of the walk that fills it.
type HitMap struct {
	w, h  int
	cells []NodeID
}

// NewHitMap returns a map covering w by h cells.
func NewHitMap(w, h int) *HitMap {
	m := &HitMap{}
	m.Reset(w, h)
	return m
}

// Reset resizes the map and clears every cell, reusing the backing slice
// when it is large enough.
func (m *HitMap) Reset(w, h int) {
	w = max(w, 0)
	h = max(h, 0)
	m.w, m.h = w, h
	n := w * h
	if cap(m.cells) < n {
		m.cells = make([]NodeID, n)
		return
	}
	m.cells = m.cells[:n]
	clear(m.cells)
}

// Size returns the map's extent.
func (m *HitMap) Size() (w, h int) { return m.w, m.h }

// At returns the node covering the cell, or 0 for misses and out-of-bounds
// positions.
func (m *HitMap) At(x, y int) NodeID {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return 0
	}
	return m.cells[y*m.w+x]
}

// Clear zeroes a rectangle, clipped to the map.
func (m *HitMap) Clear(r Rect) {
	m.Stamp(r, 0)
}

// Stamp fills a rectangle with id, clipped to the map.
func (m *HitMap) Stamp(r Rect, id NodeID) {
	r = r.Intersect(Rect{W: m.w, H: m.h})
	if r.Empty() {
		return
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		row := m.cells[y*m.w : (y+1)*m.w]
		for x := r.X; x < r.X+r.W; x++ {
			row[x] = id
		}
	}
}
