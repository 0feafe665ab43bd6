package canopy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
)

// RenderStats captures performance metrics for a single flush.
type RenderStats struct {
	// LayoutTime is how long the layout passes took. Zero for region
	// flushes, whose layout already ran at recompute time.
	LayoutTime time.Duration

	// StampTime is how long hit-map stamping took.
	StampTime time.Duration

	// PruneTime is how long the cutout and redundant-code pruning took.
	PruneTime time.Duration

	// WriteTime is how long the terminal write took.
	WriteTime time.Duration

	// TotalTime is the wall-clock duration of the entire flush.
	TotalTime time.Duration

	// Full is true when the whole screen was cleared and repainted.
	Full bool

	// Region is the screen rectangle written.
	Region Rect

	// BytesWritten is the number of bytes sent to the terminal. Large
	// values indicate potential slowness over SSH or on slow terminals.
	BytesWritten int

	// Nodes is the number of registered nodes at flush time.
	Nodes int
}

// renderStatsJSON is the JSONL record written by the debug writer.
type renderStatsJSON struct {
	Ts       int64 `json:"ts"`
	TotalUs  int64 `json:"total_us"`
	LayoutUs int64 `json:"layout_us"`
	StampUs  int64 `json:"stamp_us"`
	PruneUs  int64 `json:"prune_us"`
	WriteUs  int64 `json:"write_us"`
	Full     bool  `json:"full"`
	X        int   `json:"x"`
	Y        int   `json:"y"`
	W        int   `json:"w"`
	H        int   `json:"h"`
	Bytes    int   `json:"bytes"`
	Nodes    int   `json:"nodes"`
}

// App owns a node tree and runs the event loop that lays it out, renders
// it, and routes input to it. The tree, layout, and dispatch state are
// only ever touched on the loop goroutine; background workers reach it
// exclusively through posted closures.
type App struct {
	term   Terminal
	logger *slog.Logger
	debugW io.Writer

	// frameMin is the minimum interval between terminal writes; 0 means
	// every flush writes immediately.
	frameMin time.Duration

	root  *Node
	nodes map[NodeID]*Node
	hits  *HitMap

	focusID NodeID
	hold    *pointerHold
	hoverID NodeID

	decoder uv.EventDecoder

	workerCh chan workerMsg
	inputCh  chan []byte
	resizeCh chan struct{}
	renderCh chan struct{}

	queued []func(*App)

	fullFlag   atomic.Bool
	dirty      *Rect
	lastFrame  time.Time
	frameTimer *time.Timer

	quitCh   chan struct{}
	stopOnce sync.Once
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used for worker and loop diagnostics. The
// default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithDebugWriter enables render performance logging. Each flush writes a
// single JSONL stats record to w.
func WithDebugWriter(w io.Writer) Option {
	return func(a *App) { a.debugW = w }
}

// WithFrameLimit caps the write rate: flushes closer together than min
// coalesce into one deferred write.
func WithFrameLimit(min time.Duration) Option {
	return func(a *App) { a.frameMin = min }
}

// New creates an app showing root on term. The root and its current
// descendants are registered immediately; focus starts at the root.
func New(term Terminal, root *Node, opts ...Option) *App {
	a := &App{
		term:     term,
		logger:   slog.Default(),
		root:     root,
		nodes:    make(map[NodeID]*Node),
		hits:     NewHitMap(0, 0),
		workerCh: make(chan workerMsg, 64),
		inputCh:  make(chan []byte, 16),
		resizeCh: make(chan struct{}, 1),
		renderCh: make(chan struct{}, 1),
		quitCh:   make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	if root != nil {
		a.registerTree(root)
		a.focusID = root.id
	}
	return a
}

// Root returns the tree's root node.
func (a *App) Root() *Node { return a.root }

// Logger returns the app's logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Size returns the terminal dimensions in cells.
func (a *App) Size() (w, h int) {
	return a.term.Columns(), a.term.Rows()
}

// registerTree adopts a subtree into the registry and starts any workers
// its nodes spawned while detached.
func (a *App) registerTree(n *Node) {
	n.walk(func(m *Node) bool {
		m.app = a
		a.nodes[m.id] = m
		for _, w := range m.workers {
			a.startWorker(m, w)
		}
		return true
	})
}

// unregisterTree removes a subtree from the registry, flags its workers
// to shut down, and clears any focus, hover, or hold state pointing into
// it.
func (a *App) unregisterTree(n *Node) {
	n.walk(func(m *Node) bool {
		delete(a.nodes, m.id)
		m.app = nil
		for _, w := range m.workers {
			w.shutdown()
		}
		m.workers = nil
		if a.focusID == m.id {
			a.focusID = 0
		}
		if a.hoverID == m.id {
			a.hoverID = 0
		}
		if a.hold != nil && a.hold.id == m.id {
			a.hold = nil
		}
		return true
	})
}

// Queue defers fn to run on the loop goroutine after the current dispatch
// finishes, which is where handlers put tree mutations.
func (a *App) Queue(fn func(*App)) {
	a.queued = append(a.queued, fn)
}

func (a *App) runQueued() {
	for len(a.queued) > 0 {
		q := a.queued
		a.queued = nil
		for _, fn := range q {
			fn(a)
		}
	}
}

// RequestRender schedules a full relayout and repaint. Safe to call from
// any goroutine.
func (a *App) RequestRender() {
	a.fullFlag.Store(true)
	a.requestFlush()
}

func (a *App) requestFlush() {
	select {
	case a.renderCh <- struct{}{}:
	default:
	}
}

// Stop makes Run return. Safe to call from any goroutine, more than once.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.quitCh) })
}

// Run starts the terminal and the event loop and blocks until Stop is
// called or ctx is cancelled. Each iteration handles one stimulus, drains
// worker posts, runs queued closures, and flushes pending paint work. On
// return every worker in the tree has been flagged to shut down.
func (a *App) Run(ctx context.Context) error {
	if err := a.term.Start(a.onInput, a.onResize); err != nil {
		return err
	}
	defer a.term.Stop()
	defer a.stopWorkers()
	a.term.HideCursor()
	defer a.term.ShowCursor()
	a.term.EnableMouse()

	a.RequestRender()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.quitCh:
			return nil
		case data := <-a.inputCh:
			a.handleInput(data)
		case <-a.resizeCh:
			a.fullFlag.Store(true)
		case m := <-a.workerCh:
			a.runPost(m)
		case <-a.renderCh:
		}
		a.drainWorkers()
		a.runQueued()
		a.flush()
	}
}

// stopWorkers flags every worker in the tree to shut down so background
// goroutines do not outlive the loop. The workers stay registered; a tree
// shown again through a new App starts fresh ones.
func (a *App) stopWorkers() {
	if a.root == nil {
		return
	}
	a.root.walk(func(n *Node) bool {
		for _, w := range n.workers {
			w.shutdown()
		}
		return true
	})
}

func (a *App) onInput(data []byte) {
	select {
	case a.inputCh <- data:
	case <-a.quitCh:
	}
}

func (a *App) onResize() {
	select {
	case a.resizeCh <- struct{}{}:
	default:
	}
	a.requestFlush()
}

func (a *App) runPost(m workerMsg) {
	n, ok := a.nodes[m.id]
	if !ok {
		a.logger.Debug("dropping post for removed node", "node", m.id)
		return
	}
	m.fn(n, a)
}

// handleInput decodes raw terminal bytes into events and dispatches each.
func (a *App) handleInput(data []byte) {
	buf := data
	for len(buf) > 0 {
		n, ev := a.decoder.Decode(buf)
		if n == 0 {
			break
		}
		buf = buf[n:]
		if ev == nil {
			continue
		}
		a.handleEvent(ev)
	}
}

func (a *App) handleEvent(ev uv.Event) {
	switch e := ev.(type) {
	case uv.KeyPressEvent:
		a.Dispatch(a.keyTarget(), KeyEvent{e})
	case uv.PasteEvent:
		a.Dispatch(a.keyTarget(), PasteEvent{e})
	case uv.MouseClickEvent:
		a.dispatchPointer(pointerFrom(PointerDown, e.Mouse()))
	case uv.MouseReleaseEvent:
		a.dispatchPointer(pointerFrom(PointerUp, e.Mouse()))
	case uv.MouseMotionEvent:
		a.dispatchPointer(pointerFrom(PointerMove, e.Mouse()))
	case uv.MouseWheelEvent:
		a.dispatchPointer(pointerFrom(PointerWheel, e.Mouse()))
	}
}

func pointerFrom(kind PointerKind, m uv.Mouse) PointerEvent {
	return PointerEvent{
		Kind:   kind,
		Pos:    Position{X: m.X, Y: m.Y},
		Button: m.Button,
		Mod:    m.Mod,
	}
}

// keyTarget is the focused node, or the root while nothing holds focus.
func (a *App) keyTarget() *Node {
	if n := a.Focused(); n != nil {
		return n
	}
	return a.root
}

// flush writes pending paint work: a full repaint when one was requested
// or the screen size changed, otherwise the coalesced dirty region from
// recompute requests. With a frame limit set, flushes arriving early are
// deferred and re-poked by a timer.
func (a *App) flush() {
	full := a.fullFlag.Swap(false)
	if !full && a.dirty == nil {
		return
	}
	if a.frameMin > 0 {
		if since := time.Since(a.lastFrame); since < a.frameMin {
			if full {
				a.fullFlag.Store(true)
			}
			if a.frameTimer == nil {
				a.frameTimer = time.AfterFunc(a.frameMin-since, a.requestFlush)
			}
			return
		}
	}
	if a.frameTimer != nil {
		a.frameTimer.Stop()
		a.frameTimer = nil
	}

	if full {
		a.dirty = nil
		a.renderFull()
	} else {
		vp := *a.dirty
		a.dirty = nil
		a.renderRegion(vp)
	}
	a.lastFrame = time.Now()
}

// renderFull relays the whole tree against the current terminal size,
// rebuilds the hit-map, and repaints the screen.
func (a *App) renderFull() {
	start := time.Now()
	w, h := a.term.Columns(), a.term.Rows()
	screen := Rect{W: w, H: h}

	layoutStart := time.Now()
	a.root.Compute(Position{}, Defined(w, h))
	layout := time.Since(layoutStart)

	stampStart := time.Now()
	a.hits.Reset(w, h)
	a.root.stampHits(a.hits, screen)
	stamp := time.Since(stampStart)

	a.writeRegion(screen, true, start, layout, stamp)
}

// renderRegion repaints one screen rectangle from the already-computed
// canvases.
func (a *App) renderRegion(vp Rect) {
	start := time.Now()
	w, h := a.term.Columns(), a.term.Rows()
	vp = vp.Intersect(Rect{W: w, H: h})
	if vp.Empty() {
		return
	}
	a.writeRegion(vp, false, start, 0, 0)
}

func (a *App) writeRegion(vp Rect, full bool, start time.Time, layout, stamp time.Duration) {
	if a.root.canvas == nil {
		return
	}

	pruneStart := time.Now()
	cut := a.root.canvas.Cutout(vp)
	cut.Normalize(vp.W, vp.H)
	cut.Prune()
	prune := time.Since(pruneStart)

	var sb strings.Builder
	sb.WriteString("\x1b[?2026h") // begin synchronized output
	if full {
		sb.WriteString("\x1b[2J\x1b[H") // clear screen, home
	}
	cut.RenderTo(&sb, vp)
	sb.WriteString("\x1b[?2026l") // end synchronized output

	writeStart := time.Now()
	a.term.WriteString(sb.String())
	write := time.Since(writeStart)

	a.emitStats(RenderStats{
		LayoutTime:   layout,
		StampTime:    stamp,
		PruneTime:    prune,
		WriteTime:    write,
		TotalTime:    time.Since(start),
		Full:         full,
		Region:       vp,
		BytesWritten: sb.Len(),
		Nodes:        len(a.nodes),
	})
}

// emitStats writes the stats as one JSONL record if a debug writer is
// configured.
func (a *App) emitStats(stats RenderStats) {
	if a.debugW == nil {
		return
	}
	rec := renderStatsJSON{
		Ts:       time.Now().UnixMilli(),
		TotalUs:  stats.TotalTime.Microseconds(),
		LayoutUs: stats.LayoutTime.Microseconds(),
		StampUs:  stats.StampTime.Microseconds(),
		PruneUs:  stats.PruneTime.Microseconds(),
		WriteUs:  stats.WriteTime.Microseconds(),
		Full:     stats.Full,
		X:        stats.Region.X,
		Y:        stats.Region.Y,
		W:        stats.Region.W,
		H:        stats.Region.H,
		Bytes:    stats.BytesWritten,
		Nodes:    stats.Nodes,
	}
	data, _ := json.Marshal(rec)
	data = append(data, '\n')
	a.debugW.Write(data) //nolint:errcheck
}
