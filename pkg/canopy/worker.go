package canopy

import (
	"sync/atomic"
)

// WorkerFn is the body of a background worker. It runs on its own
// goroutine and must never touch the tree directly; all effects go back
// through WorkerCtx.Post.
type WorkerFn func(wc *WorkerCtx)

// PostFn is a closure posted back to the event loop. It runs there with
// exclusive access to the owning node and the app, and normally ends by
// requesting a recompute.
type PostFn func(n *Node, app *App)

// workerMsg is one posted closure addressed to a node by id. The id is
// re-resolved at drain time; messages for removed nodes are dropped.
type workerMsg struct {
	id NodeID
	fn PostFn
}

// WorkerCtx is the only view a worker has of the app: a shutdown signal
// and the send half of the loop's message channel.
type WorkerCtx struct {
	id   NodeID
	ch   chan<- workerMsg
	done chan struct{}
	down atomic.Bool
}

// Done returns a channel closed when the worker should exit, for use in
// select alongside timers.
func (wc *WorkerCtx) Done() <-chan struct{} { return wc.done }

// ShuttingDown reports whether the owning node was detached or the app
// stopped. Workers poll it between waits and exit voluntarily.
func (wc *WorkerCtx) ShuttingDown() bool { return wc.down.Load() }

// Post sends fn to the event loop. It blocks while the loop's queue is
// full and reports false once the worker is shutting down, in which case
// fn is discarded.
func (wc *WorkerCtx) Post(fn PostFn) bool {
	select {
	case wc.ch <- workerMsg{id: wc.id, fn: fn}:
		return true
	case <-wc.done:
		return false
	}
}

// worker pairs a worker body with its running context. ctx is nil until
// the owning node is attached to an app, which is when the goroutine
// starts.
type worker struct {
	fn  WorkerFn
	ctx *WorkerCtx
}

func (w *worker) shutdown() {
	if w.ctx == nil {
		return
	}
	w.ctx.down.Store(true)
	close(w.ctx.done)
	w.ctx = nil
}

// Spawn registers fn as a background worker owned by n. The goroutine
// starts once n is attached to an app (immediately when it already is)
// and is flagged to shut down when n is detached. Workers detached this
// way are not restarted by a later attach.
func (n *Node) Spawn(fn WorkerFn) {
	w := &worker{fn: fn}
	n.workers = append(n.workers, w)
	if n.app != nil {
		n.app.startWorker(n, w)
	}
}

func (a *App) startWorker(n *Node, w *worker) {
	if w.ctx != nil {
		return
	}
	wc := &WorkerCtx{id: n.id, ch: a.workerCh, done: make(chan struct{})}
	w.ctx = wc
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("worker panicked", "node", wc.id, "panic", r)
			}
		}()
		w.fn(wc)
	}()
}

// drainWorkers runs every currently queued posted closure. Each message's
// node id is re-resolved; ids that no longer resolve are dropped silently
// apart from a debug log line.
func (a *App) drainWorkers() {
	for {
		select {
		case m := <-a.workerCh:
			n, ok := a.nodes[m.id]
			if !ok {
				a.logger.Debug("dropping post for removed node", "node", m.id)
				continue
			}
			m.fn(n, a)
		default:
			return
		}
	}
}
