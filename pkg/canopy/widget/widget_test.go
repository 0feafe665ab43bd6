package widget

import (
	"strings"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/vito/canopy/pkg/canopy"
)

// fakeTerminal satisfies canopy.Terminal for synchronous widget tests.
type fakeTerminal struct {
	cols, rows int
	written    strings.Builder
}

func newFakeTerminal(cols, rows int) *fakeTerminal {
	return &fakeTerminal{cols: cols, rows: rows}
}

func (f *fakeTerminal) Start(onInput func([]byte), onResize func()) error { return nil }
func (f *fakeTerminal) Stop()                                             {}
func (f *fakeTerminal) Write(p []byte)                                    { f.written.Write(p) }
func (f *fakeTerminal) WriteString(s string)                              { f.written.WriteString(s) }
func (f *fakeTerminal) Columns() int                                      { return f.cols }
func (f *fakeTerminal) Rows() int                                         { return f.rows }
func (f *fakeTerminal) HideCursor()                                       {}
func (f *fakeTerminal) ShowCursor()                                       {}
func (f *fakeTerminal) EnableMouse()                                      {}
func (f *fakeTerminal) DisableMouse()                                     {}

// newTestApp builds an app over a full-screen root, laid out and ready
// for dispatch.
func newTestApp(cols, rows int) *canopy.App {
	root := canopy.NewNode()
	root.Style.Size = canopy.Size{W: canopy.Pct(100), H: canopy.Pct(100)}
	root.Style.Grow = true
	app := canopy.New(newFakeTerminal(cols, rows), root)
	root.Compute(canopy.Position{}, canopy.Defined(cols, rows))
	return app
}

// mountApp attaches the widget node under a test app and lays it out.
func mountApp(child *canopy.Node, cols, rows int) *canopy.App {
	app := newTestApp(cols, rows)
	app.Root().AttachChild(child)
	app.Root().Compute(canopy.Position{}, canopy.Defined(cols, rows))
	return app
}

func key(code rune) canopy.KeyEvent {
	return canopy.KeyEvent{KeyPressEvent: uv.KeyPressEvent{Code: code}}
}

func keyMod(code rune, mod uv.KeyMod) canopy.KeyEvent {
	return canopy.KeyEvent{KeyPressEvent: uv.KeyPressEvent{Code: code, Mod: mod}}
}

func keyText(s string) canopy.KeyEvent {
	r := []rune(s)[0]
	return canopy.KeyEvent{KeyPressEvent: uv.KeyPressEvent{Code: r, Text: s}}
}

// typeString delivers s one key press at a time.
func typeString(app *canopy.App, target *canopy.Node, s string) {
	for _, r := range s {
		app.Dispatch(target, keyText(string(r)))
	}
}
