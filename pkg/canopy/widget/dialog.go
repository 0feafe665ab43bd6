package widget

import (
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/vito/canopy/pkg/canopy"
)

// Anchor names the screen position a dialog snaps to.
type Anchor uint8

const (
	// AnchorCenter centers on both axes. This is the default.
	AnchorCenter Anchor = iota
	AnchorTopLeft
	AnchorTopCenter
	AnchorTopRight
	AnchorLeftCenter
	AnchorRightCenter
	AnchorBottomLeft
	AnchorBottomCenter
	AnchorBottomRight
)

// Margin keeps a dialog away from the screen edges.
type Margin struct {
	Top, Right, Bottom, Left int
}

// Dialog floats a bordered layer over the tree at an anchored screen
// position. Show measures the dialog against the terminal, resolves the
// anchor, and attaches it to the root; Hide detaches it.
type Dialog struct {
	node  *canopy.Node
	title *canopy.Node
	body  *canopy.Node

	// Anchor positions the dialog; the zero value centers it.
	Anchor Anchor
	// Margin keeps the dialog off the screen edges.
	Margin Margin
	// OffsetX and OffsetY nudge the resolved position.
	OffsetX, OffsetY int

	// OnDismiss runs after Escape closes a shown dialog.
	OnDismiss func()

	visible bool
}

// NewDialog wraps body in a bordered, titled layer.
func NewDialog(th Theme, title string, body *canopy.Node) *Dialog {
	d := &Dialog{body: body}

	d.title = canopy.NewTextNode(title)
	d.title.Style.FG = th.AccentFG
	d.title.Style.Attrs = canopy.AttrBold

	n := canopy.NewNode()
	n.Style.Offset.Kind = canopy.OffsetAbsolute
	n.Style.Z = 100
	n.Style.Border = canopy.BorderAll()
	n.Style.Border.Set = th.Border
	n.Style.Border.Color = th.BorderFG
	n.Style.BG = th.BG
	n.Style.Padding = canopy.Pad(1)
	n.Style.Gap = canopy.Gap{Row: 1}
	n.AttachChild(d.title)
	n.AttachChild(body)
	n.OnBubble(d.handle)
	d.node = n
	return d
}

// Node returns the dialog's tree node.
func (d *Dialog) Node() *canopy.Node { return d.node }

// Visible reports whether the dialog is currently shown.
func (d *Dialog) Visible() bool { return d.visible }

// Show resolves the anchor against the terminal size and attaches the
// dialog to the root.
func (d *Dialog) Show(app *canopy.App) {
	if d.visible {
		return
	}
	d.Reanchor(app)
	app.Root().AttachChild(d.node)
	d.visible = true
	app.RequestRender()
}

// Hide detaches the dialog. The vacated region repaints on the next
// full render.
func (d *Dialog) Hide(app *canopy.App) {
	if !d.visible {
		return
	}
	app.Root().DetachChild(d.node)
	d.visible = false
	app.RequestRender()
}

// Reanchor re-resolves the dialog's screen position, for hosts that
// reposition after a resize.
func (d *Dialog) Reanchor(app *canopy.App) {
	termW, termH := app.Size()

	mTop := max(0, d.Margin.Top)
	mRight := max(0, d.Margin.Right)
	mBottom := max(0, d.Margin.Bottom)
	mLeft := max(0, d.Margin.Left)

	availW := max(1, termW-mLeft-mRight)
	availH := max(1, termH-mTop-mBottom)

	// Measure detached so the anchor math sees the final size.
	d.node.Compute(canopy.Position{}, canopy.Defined(availW, availH))
	w, h := d.node.Rect().W, d.node.Rect().H

	row := anchorRow(d.Anchor, h, availH, mTop) + d.OffsetY
	col := anchorCol(d.Anchor, w, availW, mLeft) + d.OffsetX

	row = clamp(row, mTop, termH-mBottom-h)
	col = clamp(col, mLeft, termW-mRight-w)

	d.node.Style.Offset.X = col
	d.node.Style.Offset.Y = row
	if d.visible {
		app.RequestRender()
	}
}

func (d *Dialog) handle(dc *canopy.DispatchContext, _ *canopy.Node, ev canopy.Event) bool {
	ke, ok := ev.(canopy.KeyEvent)
	if !ok {
		return false
	}
	if uv.Key(ke.KeyPressEvent).Code != uv.KeyEscape {
		return false
	}
	d.Hide(dc.App())
	if d.OnDismiss != nil {
		d.OnDismiss()
	}
	return true
}

func anchorRow(a Anchor, h, availH, mTop int) int {
	switch a {
	case AnchorTopLeft, AnchorTopCenter, AnchorTopRight:
		return mTop
	case AnchorBottomLeft, AnchorBottomCenter, AnchorBottomRight:
		return mTop + availH - h
	default:
		return mTop + (availH-h)/2
	}
}

func anchorCol(a Anchor, w, availW, mLeft int) int {
	switch a {
	case AnchorTopLeft, AnchorLeftCenter, AnchorBottomLeft:
		return mLeft
	case AnchorTopRight, AnchorRightCenter, AnchorBottomRight:
		return mLeft + availW - w
	default:
		return mLeft + (availW-w)/2
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}
