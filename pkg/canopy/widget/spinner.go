package widget

import (
	"time"

	"github.com/vito/canopy/pkg/canopy"
)

// Spinner animates a glyph before a label. A node worker owns the
// ticker and posts each frame advance back to the UI goroutine, so the
// animation starts when the spinner is attached and stops when it
// detaches.
type Spinner struct {
	node  *canopy.Node
	theme Theme
	label string

	frames   []string
	interval time.Duration
	frame    int
}

// NewSpinner builds a dot-style spinner with the given label.
func NewSpinner(th Theme, label string) *Spinner {
	s := &Spinner{
		theme:    th,
		label:    label,
		frames:   []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"},
		interval: 80 * time.Millisecond,
	}
	s.node = canopy.NewTextNode("")
	s.node.Style.FG = th.FG
	s.syncText()
	s.node.Spawn(s.tick)
	return s
}

// Node returns the spinner's tree node.
func (s *Spinner) Node() *canopy.Node { return s.node }

// SetLabel replaces the text after the glyph.
func (s *Spinner) SetLabel(label string) {
	s.label = label
	s.syncText()
	refresh(s.node)
}

func (s *Spinner) tick(wc *canopy.WorkerCtx) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ok := wc.Post(func(n *canopy.Node, app *canopy.App) {
				s.frame = (s.frame + 1) % len(s.frames)
				s.syncText()
				app.RequestRecompute(n)
			})
			if !ok {
				return
			}
		case <-wc.Done():
			return
		}
	}
}

func (s *Spinner) syncText() {
	t := s.node.Text
	t.SetString(s.frames[s.frame] + " " + s.label)
	t.ClearSpans()
	if s.theme.AccentFG != nil {
		t.AddSpan(canopy.StyleSpan{Code: canopy.FGCode(s.theme.AccentFG), Line: 0, Len: 1})
	}
}
