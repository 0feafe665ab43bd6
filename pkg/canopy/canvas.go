package canopy

import (
	"fmt"
	"strings"
)

// Line is one canvas row: grapheme units interleaved with style codes.
type Line []Unit

// Width returns the display width of the row.
func (l Line) Width() int {
	w := 0
	for _, u := range l {
		w += u.Width
	}
	return w
}

// Canvas is a node's rendered output: an absolute position plus styled
// lines. Lines are independent styling domains; every operation that cuts
// or joins them keeps each line self-contained, re-establishing active
// codes on the left and closing them on the right.
type Canvas struct {
	Pos   Position
	Lines []Line
}

// NewCanvas returns an empty canvas anchored at pos.
func NewCanvas(pos Position) *Canvas {
	return &Canvas{Pos: pos}
}

// Height returns the number of rows.
func (c *Canvas) Height() int { return len(c.Lines) }

// Width returns the widest row. Rows are ragged until Normalize.
func (c *Canvas) Width() int {
	w := 0
	for _, l := range c.Lines {
		if lw := l.Width(); lw > w {
			w = lw
		}
	}
	return w
}

// Rect returns the canvas extent in screen space.
func (c *Canvas) Rect() Rect {
	return Rect{Position: c.Pos, W: c.Width(), H: c.Height()}
}

// AddText appends prepared visual lines as canvas rows.
func (c *Canvas) AddText(vls []VisualLine) {
	for _, vl := range vls {
		c.Lines = append(c.Lines, Line(vl.Units))
	}
}

// AddPadding inserts blank rows above and below and blank cells left and
// right of every row. An empty canvas still gains its blank rows and
// columns.
func (c *Canvas) AddPadding(p Padding) {
	cw := c.Width()
	if p.Left > 0 || p.Right > 0 {
		for i, l := range c.Lines {
			padded := make(Line, 0, len(l)+p.Left+p.Right)
			padded = append(padded, blankUnits(p.Left)...)
			padded = append(padded, l...)
			padded = append(padded, blankUnits(p.Right)...)
			c.Lines[i] = padded
		}
	}
	full := p.Left + cw + p.Right
	if p.Top > 0 || p.Bottom > 0 {
		rows := make([]Line, 0, len(c.Lines)+p.Top+p.Bottom)
		for i := 0; i < p.Top; i++ {
			rows = append(rows, blankUnits(full))
		}
		rows = append(rows, c.Lines...)
		for i := 0; i < p.Bottom; i++ {
			rows = append(rows, blankUnits(full))
		}
		c.Lines = rows
	}
}

func blankUnits(n int) Line {
	if n <= 0 {
		return Line{}
	}
	l := make(Line, n)
	for i := range l {
		l[i] = spaceUnit()
	}
	return l
}

// wrapCodes prepends start codes and appends end codes to every row.
func (c *Canvas) wrapCodes(start, end []string) {
	for i, l := range c.Lines {
		wrapped := make(Line, 0, len(l)+len(start)+len(end))
		for _, s := range start {
			wrapped = append(wrapped, codeUnit(s))
		}
		wrapped = append(wrapped, l...)
		for _, e := range end {
			wrapped = append(wrapped, codeUnit(e))
		}
		c.Lines[i] = wrapped
	}
}

// AddFG wraps every row in a foreground start code and its reset.
func (c *Canvas) AddFG(code string) {
	c.wrapCodes([]string{code}, []string{resetFor(code)})
}

// AddBG pads every row to uniform width first, so the fill is rectangular,
// then wraps rows in a background start code and its reset.
func (c *Canvas) AddBG(code string) {
	c.padToWidth(c.Width())
	c.wrapCodes([]string{code}, []string{resetFor(code)})
}

// AddAttrs wraps every row in attribute set codes and their resets.
func (c *Canvas) AddAttrs(a Attr) {
	codes := attrCodes(a)
	if len(codes) == 0 {
		return
	}
	c.wrapCodes(codes, ResetCodesFor(codes))
}

func (c *Canvas) padToWidth(w int) {
	for i, l := range c.Lines {
		if lw := l.Width(); lw < w {
			c.Lines[i] = append(l, blankUnits(w-lw)...)
		}
	}
}

// AddBorder draws glyph rows and columns outside the current content,
// after any background fill. Corners appear only where both adjacent edges
// are on. A border on a zero-area canvas draws nothing.
func (c *Canvas) AddBorder(b Border) {
	if !b.Any() {
		return
	}
	cw := c.Width()
	if cw == 0 && len(c.Lines) == 0 {
		return
	}
	c.padToWidth(cw)
	g := b.glyphs()

	glyph := func(s string) []Unit {
		u := textUnit(s, clusterWidth(s), -1)
		if b.Color == nil {
			return []Unit{u}
		}
		return []Unit{codeUnit(fgCode(b.Color)), u, codeUnit(fgResetCode)}
	}

	if b.Left || b.Right {
		for i, l := range c.Lines {
			row := make(Line, 0, len(l)+6)
			if b.Left {
				row = append(row, glyph(g.Left)...)
			}
			row = append(row, l...)
			if b.Right {
				row = append(row, glyph(g.Right)...)
			}
			c.Lines[i] = row
		}
	}

	edgeRow := func(left, mid, right string, leftOn, rightOn bool) Line {
		row := Line{}
		if b.Color != nil {
			row = append(row, codeUnit(fgCode(b.Color)))
		}
		if leftOn {
			row = append(row, textUnit(left, clusterWidth(left), -1))
		}
		for i := 0; i < cw; i++ {
			row = append(row, textUnit(mid, clusterWidth(mid), -1))
		}
		if rightOn {
			row = append(row, textUnit(right, clusterWidth(right), -1))
		}
		if b.Color != nil {
			row = append(row, codeUnit(fgResetCode))
		}
		return row
	}

	if b.Top {
		c.Lines = append([]Line{edgeRow(g.TopLeft, g.Top, g.TopRight, b.Left, b.Right)}, c.Lines...)
	}
	if b.Bottom {
		c.Lines = append(c.Lines, edgeRow(g.BottomLeft, g.Bottom, g.BottomRight, b.Left, b.Right))
	}
}

// ExtendChild appends a child canvas into the flow: as new rows in Column
// flow, or concatenated onto existing rows in Row flow. includeGap inserts
// gap blank rows or cells before the child; it is set for every flow child
// after the first. crossOffset shifts the child along the cross axis, which
// is how align lands on the canvas.
func (c *Canvas) ExtendChild(child *Canvas, dir Direction, includeGap bool, gap, crossOffset int) {
	if dir == Column {
		if includeGap {
			for i := 0; i < gap; i++ {
				c.Lines = append(c.Lines, Line{})
			}
		}
		for _, l := range child.Lines {
			row := make(Line, 0, len(l)+crossOffset)
			row = append(row, blankUnits(crossOffset)...)
			row = append(row, l...)
			c.Lines = append(c.Lines, row)
		}
		return
	}

	w0 := c.Width()
	c.padToWidth(w0)
	lead := 0
	if includeGap {
		lead = gap
	}
	childW := child.Width()
	childH := child.Height()
	newH := max(len(c.Lines), crossOffset+childH)
	for len(c.Lines) < newH {
		c.Lines = append(c.Lines, blankUnits(w0))
	}
	for r := 0; r < newH; r++ {
		row := c.Lines[r]
		row = append(row, blankUnits(lead)...)
		if r >= crossOffset && r < crossOffset+childH {
			src := child.Lines[r-crossOffset]
			row = append(row, src...)
			if sw := src.Width(); sw < childW {
				row = append(row, blankUnits(childW-sw)...)
			}
		} else {
			row = append(row, blankUnits(childW)...)
		}
		c.Lines[r] = row
	}
}

// extendBlank reserves a flow slot of the given main-axis extent without
// drawing anything, used when a translated child leaves its slot.
func (c *Canvas) extendBlank(dir Direction, includeGap bool, gap, main int) {
	if dir == Column {
		n := main
		if includeGap {
			n += gap
		}
		for i := 0; i < n; i++ {
			c.Lines = append(c.Lines, Line{})
		}
		return
	}
	add := main
	if includeGap {
		add += gap
	}
	// A rowless canvas still has to reserve the columns.
	if len(c.Lines) == 0 {
		if add > 0 {
			c.Lines = append(c.Lines, blankUnits(add))
		}
		return
	}
	c.padToWidth(c.Width())
	for i, l := range c.Lines {
		c.Lines[i] = append(l, blankUnits(add)...)
	}
}

// Normalize pads or trims every row to width w and the row count to height
// h. Trimming slices through codes correctly, closing whatever is active.
func (c *Canvas) Normalize(w, h int) {
	w = max(w, 0)
	h = max(h, 0)
	if len(c.Lines) > h {
		c.Lines = c.Lines[:h]
	}
	for len(c.Lines) < h {
		c.Lines = append(c.Lines, Line{})
	}
	for i, l := range c.Lines {
		lw := l.Width()
		switch {
		case lw > w:
			c.Lines[i] = sliceLine(l, 0, w)
		case lw < w:
			c.Lines[i] = append(l, blankUnits(w-lw)...)
		}
	}
}

// PasteOnTop overlays child onto c at the child's absolute position,
// clipped to c's extent. Styling to the left and right of the pasted span
// survives: slices re-establish active codes and close them again.
func (c *Canvas) PasteOnTop(child *Canvas) {
	inter := c.Rect().Intersect(child.Rect())
	if inter.Empty() {
		return
	}
	for y := inter.Y; y < inter.Y+inter.H; y++ {
		src := child.Lines[y-child.Pos.Y]
		srcFrom := inter.X - child.Pos.X
		srcTo := min(srcFrom+inter.W, src.Width())
		if srcTo <= srcFrom {
			continue
		}
		row := y - c.Pos.Y
		target := c.Lines[row]
		from := inter.X - c.Pos.X
		to := from + (srcTo - srcFrom)

		var merged Line
		left := sliceLine(target, 0, from)
		if lw := left.Width(); lw < from {
			left = append(left, blankUnits(from-lw)...)
		}
		merged = append(merged, left...)
		merged = append(merged, sliceLine(src, srcFrom, srcTo)...)
		merged = append(merged, sliceLine(target, to, target.Width())...)
		c.Lines[row] = merged
	}
}

// Cutout returns a copy of the region r as its own canvas, each row
// self-contained.
func (c *Canvas) Cutout(r Rect) *Canvas {
	inter := c.Rect().Intersect(r)
	out := NewCanvas(inter.Position)
	if inter.Empty() {
		out.Pos = r.Position
		return out
	}
	for y := inter.Y; y < inter.Y+inter.H; y++ {
		l := c.Lines[y-c.Pos.Y]
		from := inter.X - c.Pos.X
		out.Lines = append(out.Lines, sliceLine(l, from, from+inter.W))
	}
	return out
}

// ActiveCodesAt returns the minimal codes in effect for the cell at the
// given row and column: the active foreground, background, and attribute
// escapes in stable order. Out-of-bounds rows report nothing.
func (c *Canvas) ActiveCodesAt(row, col int) []string {
	if row < 0 || row >= len(c.Lines) {
		return nil
	}
	st := newSGRState()
	x := 0
	for _, u := range c.Lines[row] {
		if u.IsCode() {
			st.apply(u.Code)
			continue
		}
		if x >= col {
			break
		}
		x += u.Width
	}
	return st.codes()
}

// Prune removes redundant style codes row by row: duplicate sets, resets
// with nothing active, and codes overridden before the next grapheme. It
// is idempotent. Codes the tracker cannot interpret are passed through
// verbatim.
func (c *Canvas) Prune() {
	for i, l := range c.Lines {
		c.Lines[i] = pruneLine(l)
	}
}

func pruneLine(l Line) Line {
	out := make(Line, 0, len(l))
	emitted := newSGRState()
	cur := emitted
	var pendingRaw []Unit

	flush := func() {
		if cur == emitted {
			pendingRaw = nil
			return
		}
		if diff, ok := emitted.diff(&cur); ok {
			for _, d := range diff {
				out = append(out, codeUnit(d))
			}
		} else {
			out = append(out, pendingRaw...)
		}
		emitted = cur
		pendingRaw = nil
	}

	for _, u := range l {
		if u.IsCode() {
			cur.apply(u.Code)
			pendingRaw = append(pendingRaw, u)
			continue
		}
		flush()
		out = append(out, u)
	}
	flush()
	return out
}

// RenderTo writes the viewport-visible part of the canvas to sb, emitting
// one cursor-position escape per visible row. Rows are clipped to the
// viewport with code-correct slicing. A viewport entirely outside the
// canvas emits nothing.
func (c *Canvas) RenderTo(sb *strings.Builder, viewport Rect) {
	vp := viewport.Intersect(c.Rect())
	if vp.Empty() {
		return
	}
	for y := vp.Y; y < vp.Y+vp.H; y++ {
		l := c.Lines[y-c.Pos.Y]
		from := vp.X - c.Pos.X
		slice := sliceLine(l, from, from+vp.W)
		if len(slice) == 0 {
			continue
		}
		fmt.Fprintf(sb, "\x1b[%d;%dH", y+1, vp.X+1)
		for _, u := range slice {
			if u.IsCode() {
				sb.WriteString(u.Code)
			} else {
				sb.WriteString(u.Text)
			}
		}
	}
}

// sliceLine extracts the half-open column range [from, to) of a row as a
// self-contained line: codes active at the left edge are re-established,
// codes active at the right edge are closed. A grapheme straddling either
// edge is replaced by blank cells for the columns inside the range, so
// geometry is preserved without splitting the cluster.
func sliceLine(l Line, from, to int) Line {
	if to <= from {
		return nil
	}
	var out Line
	st := newSGRState()
	opened := false
	open := func() {
		if opened {
			return
		}
		for _, code := range st.codes() {
			out = append(out, codeUnit(code))
		}
		opened = true
	}
	col := 0
	for _, u := range l {
		if u.IsCode() {
			if opened {
				out = append(out, u)
			}
			st.apply(u.Code)
			continue
		}
		w := u.Width
		if w == 0 {
			if opened {
				out = append(out, u)
			}
			continue
		}
		if col+w <= from {
			col += w
			continue
		}
		if col >= to {
			break
		}
		if col >= from && col+w <= to {
			open()
			out = append(out, u)
		} else {
			lo := max(col, from)
			hi := min(col+w, to)
			if hi > lo {
				open()
				out = append(out, blankUnits(hi-lo)...)
			}
		}
		col += w
	}
	if !opened {
		return nil
	}
	def := newSGRState()
	if resets, ok := st.diff(&def); ok {
		for _, r := range resets {
			out = append(out, codeUnit(r))
		}
	} else if !st.isDefault() {
		out = append(out, codeUnit(ResetCode))
	}
	return out
}
