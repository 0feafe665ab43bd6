package canopy

import (
	"image/color"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/pkg/errors"
)

// maxSizeCells is the saturation ceiling for size arithmetic. Accumulation
// and clamping never exceed it, so pathological styles (Cells(1<<40), deep
// auto chains) degrade to a huge-but-finite size instead of overflowing.
const maxSizeCells = 1 << 30

// satAdd adds two non-negative cell counts, saturating at maxSizeCells.
func satAdd(a, b int) int {
	s := a + b
	if s < 0 || s > maxSizeCells {
		return maxSizeCells
	}
	return s
}

// SizeKind discriminates the three ways an axis can be sized.
type SizeKind uint8

const (
	// SizeAuto sizes the axis to its content: text plus in-flow children.
	SizeAuto SizeKind = iota
	// SizeCells is a fixed number of terminal cells.
	SizeCells
	// SizePercent resolves against the parent's available content size.
	SizePercent
)

// SizeVal is a single-axis size. The zero value is Auto. Whatever the kind,
// it remembers the cell count it last resolved to, readable via [SizeVal.Resolved].
type SizeVal struct {
	Kind SizeKind
	Val  int

	resolved int
}

// Auto sizes an axis to fit its content.
func Auto() SizeVal { return SizeVal{Kind: SizeAuto} }

// Cells sizes an axis to a fixed cell count. Negative values clamp to zero.
func Cells(n int) SizeVal {
	if n < 0 {
		n = 0
	}
	if n > maxSizeCells {
		n = maxSizeCells
	}
	return SizeVal{Kind: SizeCells, Val: n}
}

// Pct sizes an axis to a percentage of the parent's available content size.
// Values above 100 are allowed; negative values clamp to zero.
func Pct(p int) SizeVal {
	if p < 0 {
		p = 0
	}
	return SizeVal{Kind: SizePercent, Val: p}
}

// Resolved returns the cell count this axis resolved to in the most recent
// layout, or 0 if it has never been laid out.
func (v SizeVal) Resolved() int { return v.resolved }

// ParseSize parses the size mini-language: "auto", a non-negative integer
// cell count like "12", or a percentage like "50%".
func ParseSize(s string) (SizeVal, error) {
	t := strings.TrimSpace(s)
	if strings.EqualFold(t, "auto") {
		return Auto(), nil
	}
	if p, ok := strings.CutSuffix(t, "%"); ok {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return SizeVal{}, errors.Errorf("invalid size %q: percent must be a non-negative integer", s)
		}
		return Pct(n), nil
	}
	n, err := strconv.Atoi(t)
	if err != nil || n < 0 {
		return SizeVal{}, errors.Errorf("invalid size %q: want \"auto\", a cell count, or a percentage", s)
	}
	return Cells(n), nil
}

// Size pairs the two axes of a node. The zero value is Auto in both.
type Size struct {
	W, H SizeVal
}

// OffsetKind discriminates how a node is positioned.
type OffsetKind uint8

const (
	// OffsetTranslate participates in flow; X/Y shift the flowed position.
	OffsetTranslate OffsetKind = iota
	// OffsetRelative positions at parent content origin + X/Y, out of flow.
	OffsetRelative
	// OffsetAbsolute positions at screen coordinates X/Y, out of flow.
	OffsetAbsolute
)

// Offset positions a node. The zero value is an unshifted in-flow node.
type Offset struct {
	Kind OffsetKind
	X, Y int
}

// InFlow reports whether the offset participates in parent flow layout.
func (o Offset) InFlow() bool { return o.Kind == OffsetTranslate }

// Padding is blank space inserted inside a node's border, around its
// content.
type Padding struct {
	Top, Right, Bottom, Left int
}

// Pad returns uniform padding on all four sides.
func Pad(n int) Padding {
	return Padding{Top: n, Right: n, Bottom: n, Left: n}
}

// Horizontal returns left plus right padding.
func (p Padding) Horizontal() int { return p.Left + p.Right }

// Vertical returns top plus bottom padding.
func (p Padding) Vertical() int { return p.Top + p.Bottom }

// Border draws box-drawing glyphs outside a node's background fill. Edges
// are individually switchable; corners appear only where both adjacent
// edges are on. A zero Set falls back to a rounded border.
type Border struct {
	Top, Right, Bottom, Left bool
	Set                      lipgloss.Border
	Color                    color.Color
}

// BorderAll returns a border on all four edges with the default glyph set.
func BorderAll() Border {
	return Border{Top: true, Right: true, Bottom: true, Left: true}
}

// Any reports whether at least one edge is drawn.
func (b Border) Any() bool { return b.Top || b.Right || b.Bottom || b.Left }

// Horizontal returns the columns occupied by the left and right edges.
func (b Border) Horizontal() int {
	n := 0
	if b.Left {
		n++
	}
	if b.Right {
		n++
	}
	return n
}

// Vertical returns the rows occupied by the top and bottom edges.
func (b Border) Vertical() int {
	n := 0
	if b.Top {
		n++
	}
	if b.Bottom {
		n++
	}
	return n
}

func (b Border) glyphs() lipgloss.Border {
	if b.Set.Top == "" && b.Set.Left == "" {
		return lipgloss.RoundedBorder()
	}
	return b.Set
}

// Direction is the main axis for in-flow children.
type Direction uint8

const (
	// Column stacks children vertically. This is the default.
	Column Direction = iota
	// Row lays children side by side.
	Row
)

// Gap is blank space between adjacent in-flow children: Col cells between
// columns in Row flow, Row cells between rows in Column flow.
type Gap struct {
	Col, Row int
}

// GapAll returns the same gap on both axes.
func GapAll(n int) Gap { return Gap{Col: n, Row: n} }

// main returns the gap applied along dir.
func (g Gap) main(dir Direction) int {
	if dir == Row {
		return g.Col
	}
	return g.Row
}

// Justify distributes leftover main-axis space among in-flow children.
type Justify uint8

const (
	JustifyStart Justify = iota
	JustifyCenter
	JustifyEnd
	JustifySpaceBetween
	JustifySpaceAround
	JustifySpaceEvenly
)

// Align positions each in-flow child on the cross axis.
type Align uint8

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

// Style is everything the layout and canvas passes read off a node. The
// zero value is an unstyled auto-sized column container.
//
// Sizes are border-box: a Cells(10) width covers content, padding, and
// border edges together. MinSize and MaxSize clamp the computed size after
// every resolution pass; an Auto min means 0 and an Auto max means
// unconstrained. When min exceeds max, min wins.
type Style struct {
	Offset  Offset
	Size    Size
	MinSize Size
	MaxSize Size
	Padding Padding
	Border  Border

	// FG and BG are applied around the node's content; nil leaves the
	// terminal default. Attrs style the node's text.
	FG, BG color.Color
	Attrs  Attr

	Direction Direction
	Gap       Gap
	Justify   Justify
	Align     Align

	// Z orders overlapping out-of-flow siblings; higher renders later.
	Z int

	// Grow forces the canvas to the style's full resolved size even when
	// content is smaller. Without it the canvas clamps to the smaller of
	// content and style size.
	Grow bool
}

// edgesH returns the horizontal cells consumed by padding plus border.
func (s *Style) edgesH() int { return s.Padding.Horizontal() + s.Border.Horizontal() }

// edgesV returns the vertical cells consumed by padding plus border.
func (s *Style) edgesV() int { return s.Padding.Vertical() + s.Border.Vertical() }

// clampAxis clamps a computed cell count to the style's min/max for one
// axis, resolving percent bounds against the same availability the size
// itself resolved against.
func clampAxis(computed int, minV, maxV SizeVal, avail int, defined bool) int {
	lo := 0
	switch minV.Kind {
	case SizeCells:
		lo = minV.Val
	case SizePercent:
		if defined {
			lo = avail * minV.Val / 100
		}
	}
	hi := maxSizeCells
	switch maxV.Kind {
	case SizeCells:
		hi = maxV.Val
	case SizePercent:
		if defined {
			hi = avail * maxV.Val / 100
		}
	}
	if computed > hi {
		computed = hi
	}
	if computed < lo {
		computed = lo
	}
	if computed < 0 {
		computed = 0
	}
	if computed > maxSizeCells {
		computed = maxSizeCells
	}
	return computed
}
