package canopy

import "sort"

// Avail is the space a parent offers for percentage resolution. An axis is
// undefined when the parent is auto-sized on it, which makes percent
// children resolve to 0 (they cannot be satisfied).
type Avail struct {
	W, H       int
	DefW, DefH bool
}

// Defined returns an availability with both axes known, as the screen
// offers the root.
func Defined(w, h int) Avail {
	return Avail{W: w, H: h, DefW: true, DefH: true}
}

// Compute lays out the subtree rooted at n: the intrinsic pass resolves
// auto axes bottom-up without clamping, the percentage pass resolves
// percent axes top-down and clamps everything to [min,max], and the canvas
// pass assigns absolute positions and builds every node's canvas.
// parentPos is where the node's flow slot sits (the origin for a root);
// avail is the content space percentages resolve against.
//
// Computing a detached subtree is allowed and is how hosts measure.
func (n *Node) Compute(parentPos Position, avail Avail) {
	n.computeIntrinsic()
	n.computePercent(avail)
	n.layoutAt(parentPos, avail)
}

// ── pass 1: intrinsic ────────────────────────────────────────────────────

// computeIntrinsic resolves every auto axis to its accumulated content
// size, children first. Cells axes resolve to their value and percent axes
// to 0 for the parent accumulation. No clamping happens here.
func (n *Node) computeIntrinsic() {
	for _, ch := range n.children {
		ch.computeIntrinsic()
	}
	s := &n.Style
	resolveFixed(&s.Size.W)
	resolveFixed(&s.Size.H)
	if s.Size.W.Kind == SizeAuto || s.Size.H.Kind == SizeAuto {
		cw, chh := n.accumulateContent()
		if s.Size.W.Kind == SizeAuto {
			s.Size.W.resolved = satAdd(cw, s.edgesH())
		}
		if s.Size.H.Kind == SizeAuto {
			s.Size.H.resolved = satAdd(chh, s.edgesV())
		}
	}
}

func resolveFixed(v *SizeVal) {
	switch v.Kind {
	case SizeCells:
		v.resolved = v.Val
	case SizePercent:
		v.resolved = 0
	}
}

// accumulateContent sums the node's text and in-flow children: along the
// main axis children add up with one gap per sibling after the first,
// along the cross axis the widest wins. Out-of-flow children contribute
// nothing.
func (n *Node) accumulateContent() (w, h int) {
	tw, th := 0, 0
	if n.Text != nil {
		tw, th = n.Text.naturalSize()
	}
	mainSum, crossMax, flowCount := 0, 0, 0
	for _, ch := range n.children {
		if !ch.Style.Offset.InFlow() {
			continue
		}
		cw := ch.Style.Size.W.resolved
		chh := ch.Style.Size.H.resolved
		var m, x int
		if n.Style.Direction == Row {
			m, x = cw, chh
		} else {
			m, x = chh, cw
		}
		mainSum = satAdd(mainSum, m)
		if x > crossMax {
			crossMax = x
		}
		flowCount++
	}
	if flowCount > 1 {
		mainSum = satAdd(mainSum, n.Style.Gap.main(n.Style.Direction)*(flowCount-1))
	}
	if n.Style.Direction == Row {
		return satAdd(tw, mainSum), max(th, crossMax)
	}
	return max(tw, crossMax), satAdd(th, mainSum)
}

// ── pass 2: percentages ──────────────────────────────────────────────────

// computePercent resolves percent axes against avail top-down, recurses
// with the node's own content availability, re-accumulates auto axes now
// that descendants' percentages are known, and clamps to [min,max] last.
func (n *Node) computePercent(avail Avail) {
	s := &n.Style
	resolvePct(&s.Size.W, avail.W, avail.DefW)
	resolvePct(&s.Size.H, avail.H, avail.DefH)
	if s.Size.W.Kind != SizeAuto {
		s.Size.W.resolved = clampAxis(s.Size.W.resolved, s.MinSize.W, s.MaxSize.W, avail.W, avail.DefW)
	}
	if s.Size.H.Kind != SizeAuto {
		s.Size.H.resolved = clampAxis(s.Size.H.resolved, s.MinSize.H, s.MaxSize.H, avail.H, avail.DefH)
	}

	flowAvail, absAvail := n.childAvail()
	for _, ch := range n.children {
		if ch.Style.Offset.InFlow() {
			ch.computePercent(flowAvail)
		} else {
			ch.computePercent(absAvail)
		}
	}

	if s.Size.W.Kind == SizeAuto || s.Size.H.Kind == SizeAuto {
		cw, chh := n.accumulateContent()
		if s.Size.W.Kind == SizeAuto {
			s.Size.W.resolved = clampAxis(satAdd(cw, s.edgesH()), s.MinSize.W, s.MaxSize.W, avail.W, avail.DefW)
		}
		if s.Size.H.Kind == SizeAuto {
			s.Size.H.resolved = clampAxis(satAdd(chh, s.edgesV()), s.MinSize.H, s.MaxSize.H, avail.H, avail.DefH)
		}
	}
}

func resolvePct(v *SizeVal, avail int, defined bool) {
	switch v.Kind {
	case SizeCells:
		v.resolved = v.Val
	case SizePercent:
		if defined {
			v.resolved = min(avail*v.Val/100, maxSizeCells)
		} else {
			v.resolved = 0
		}
	}
}

// childAvail derives the availability offered to children: the content box
// with, for in-flow children, the gaps reserved for siblings subtracted
// from the main axis. An auto axis stays undefined for them.
func (n *Node) childAvail() (flow, abs Avail) {
	s := &n.Style
	contentW := max(0, s.Size.W.resolved-s.edgesH())
	contentH := max(0, s.Size.H.resolved-s.edgesV())
	defW := s.Size.W.Kind != SizeAuto
	defH := s.Size.H.Kind != SizeAuto

	abs = Avail{W: contentW, H: contentH, DefW: defW, DefH: defH}

	flowCount := 0
	for _, ch := range n.children {
		if ch.Style.Offset.InFlow() {
			flowCount++
		}
	}
	gaps := 0
	if flowCount > 1 {
		gaps = n.Style.Gap.main(n.Style.Direction) * (flowCount - 1)
	}
	flow = abs
	if n.Style.Direction == Row {
		flow.W = max(0, flow.W-gaps)
	} else {
		flow.H = max(0, flow.H-gaps)
	}
	return flow, abs
}

// ── pass 3: canvas ───────────────────────────────────────────────────────

// layoutAt records the layout inputs, computes the node's absolute
// position from its offset kind, and builds the canvas: own text, flow
// children extended in order with justify and align applied, normalize,
// then padding, attributes, foreground, background, and border, and
// finally out-of-flow children pasted on top in z order.
func (n *Node) layoutAt(base Position, avail Avail) {
	s := &n.Style
	n.cache = layoutCache{
		valid:      true,
		parentPos:  base,
		avail:      avail,
		offsetKind: s.Offset.Kind,
		sizeW:      s.Size.W,
		sizeH:      s.Size.H,
	}

	var pos Position
	if s.Offset.Kind == OffsetAbsolute {
		pos = Position{X: s.Offset.X, Y: s.Offset.Y}
	} else {
		pos = base.Add(Position{X: s.Offset.X, Y: s.Offset.Y})
	}

	w := s.Size.W.resolved
	h := s.Size.H.resolved
	contentW := max(0, w-s.edgesH())
	contentH := max(0, h-s.edgesV())
	contentOrigin := pos.Add(Position{X: leftEdge(s), Y: topEdge(s)})

	c := NewCanvas(pos)
	tw, th := 0, 0
	if n.Text != nil {
		tw, th = n.Text.naturalSize()
		th = min(th, contentH)
		c.AddText(n.Text.PrepareText(contentH))
	}

	var flow, pasted []*Node
	for _, ch := range n.children {
		if ch.Style.Offset.InFlow() {
			flow = append(flow, ch)
		} else {
			pasted = append(pasted, ch)
		}
	}
	flowAvail, absAvail := n.childAvail()

	dir := s.Direction
	mainContent := contentH
	crossContent := contentW
	textMain := th
	if dir == Row {
		mainContent = contentW
		crossContent = contentH
		textMain = tw
	}
	gap := s.Gap.main(dir)
	childrenMain := 0
	for _, ch := range flow {
		childrenMain = satAdd(childrenMain, mainAxis(ch, dir))
	}
	gaps := 0
	if len(flow) > 1 {
		gaps = gap * (len(flow) - 1)
	}
	leftover := mainContent - textMain - childrenMain - gaps
	if leftover < 0 {
		leftover = 0
	}
	lead, extras := justifyOffsets(s.Justify, leftover, len(flow))

	cursor := satAdd(textMain, lead)
	if lead > 0 {
		c.extendBlank(dir, false, 0, lead)
	}
	for i, ch := range flow {
		if i > 0 {
			cursor += gap
		}
		cursor += extras[i]
		if extras[i] > 0 {
			c.extendBlank(dir, false, 0, extras[i])
		}
		chMain := mainAxis(ch, dir)
		chCross := crossAxis(ch, dir)
		alignOff := alignOffset(s.Align, crossContent, chCross)

		var slot Position
		if dir == Row {
			slot = contentOrigin.Add(Position{X: cursor, Y: alignOff})
		} else {
			slot = contentOrigin.Add(Position{X: alignOff, Y: cursor})
		}
		ch.layoutAt(slot, flowAvail)

		if ch.Style.Offset.X == 0 && ch.Style.Offset.Y == 0 {
			c.ExtendChild(ch.canvas, dir, i > 0, gap, alignOff)
		} else {
			// A shifted slot still occupies its flow extent; the content
			// is pasted at slot+offset afterwards.
			c.extendBlank(dir, i > 0, gap, chMain)
			pasted = append(pasted, ch)
		}
		cursor += chMain
	}

	natW, natH := c.Width(), c.Height()
	targetW, targetH := contentW, contentH
	if !s.Grow {
		targetW = min(natW, contentW)
		targetH = min(natH, contentH)
	}
	c.Normalize(targetW, targetH)
	c.AddPadding(s.Padding)
	if s.Attrs != 0 {
		c.AddAttrs(s.Attrs)
	}
	if s.FG != nil {
		c.AddFG(fgCode(s.FG))
	}
	if s.BG != nil {
		c.AddBG(bgCode(s.BG))
	}
	c.AddBorder(s.Border)

	ordered := orderPasted(pasted)
	for _, ch := range ordered {
		if !ch.Style.Offset.InFlow() {
			ch.layoutAt(contentOrigin, absAvail)
		}
		c.PasteOnTop(ch.canvas)
	}

	n.paintOrder = ordered
	n.canvas = c
	n.cache.rect = c.Rect()
}

func leftEdge(s *Style) int {
	e := s.Padding.Left
	if s.Border.Left {
		e++
	}
	return e
}

func topEdge(s *Style) int {
	e := s.Padding.Top
	if s.Border.Top {
		e++
	}
	return e
}

func mainAxis(n *Node, dir Direction) int {
	if dir == Row {
		return n.Style.Size.W.resolved
	}
	return n.Style.Size.H.resolved
}

func crossAxis(n *Node, dir Direction) int {
	if dir == Row {
		return n.Style.Size.H.resolved
	}
	return n.Style.Size.W.resolved
}

// justifyOffsets converts leftover main-axis space into a leading offset
// plus per-child extra gaps. Division is integer; space-between spreads
// its remainder one cell per slot from the first, the around and evenly
// variants leave any remainder trailing.
func justifyOffsets(j Justify, leftover, count int) (lead int, extras []int) {
	extras = make([]int, max(count, 1))
	if leftover <= 0 || count == 0 {
		return 0, extras
	}
	switch j {
	case JustifyCenter:
		lead = leftover / 2
	case JustifyEnd:
		lead = leftover
	case JustifySpaceBetween:
		if count < 2 {
			return 0, extras
		}
		share := leftover / (count - 1)
		rem := leftover % (count - 1)
		for i := 1; i < count; i++ {
			extras[i] = share
			if i <= rem {
				extras[i]++
			}
		}
	case JustifySpaceAround:
		unit := leftover / (2 * count)
		lead = unit
		for i := 1; i < count; i++ {
			extras[i] = 2 * unit
		}
	case JustifySpaceEvenly:
		unit := leftover / (count + 1)
		lead = unit
		for i := 1; i < count; i++ {
			extras[i] = unit
		}
	}
	return lead, extras
}

// alignOffset positions a child on the cross axis from the leftover cross
// space.
func alignOffset(a Align, cross, child int) int {
	left := cross - child
	if left <= 0 {
		return 0
	}
	switch a {
	case AlignCenter:
		return left / 2
	case AlignEnd:
		return left
	}
	return 0
}

// orderPasted sorts overlay children for compositing: by z, then
// absolute-positioned after the rest at equal z, then child order. The
// sort is stable so the incoming order is the final tie-break.
func orderPasted(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	copy(out, nodes)
	class := func(n *Node) int {
		if n.Style.Offset.Kind == OffsetAbsolute {
			return 1
		}
		return 0
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Style.Z != out[j].Style.Z {
			return out[i].Style.Z < out[j].Style.Z
		}
		return class(out[i]) < class(out[j])
	})
	return out
}

// stampHits fills the hit-map in composite order: the node's rectangle,
// then flow children, then pasted children in their paint order, each
// clipped to the node. Later stamps win, matching what is visible.
func (n *Node) stampHits(hm *HitMap, clip Rect) {
	r := n.cache.rect.Intersect(clip)
	if r.Empty() {
		return
	}
	hm.Stamp(r, n.id)
	inPaint := make(map[*Node]bool, len(n.paintOrder))
	for _, ch := range n.paintOrder {
		inPaint[ch] = true
	}
	for _, ch := range n.children {
		if !inPaint[ch] {
			ch.stampHits(hm, r)
		}
	}
	for _, ch := range n.paintOrder {
		ch.stampHits(hm, r)
	}
}
