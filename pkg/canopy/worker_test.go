package canopy

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting on channel")
	}
}

func recvBool(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting on channel")
		return false
	}
}

// syncBuffer is an io.Writer safe for a logger shared with worker
// goroutines.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestWorkerStartsOnAttach(t *testing.T) {
	root := NewNode()
	_ = New(newMockTerminal(10, 3), root)

	n := NewNode()
	started := make(chan struct{})
	n.Spawn(func(wc *WorkerCtx) {
		close(started)
		<-wc.Done()
	})

	// Detached nodes hold the worker without running it.
	require.Len(t, n.workers, 1)
	assert.Nil(t, n.workers[0].ctx)

	root.AttachChild(n)
	waitClosed(t, started)
}

func TestSpawnOnAttachedNodeStartsImmediately(t *testing.T) {
	root := NewNode()
	_ = New(newMockTerminal(10, 3), root)

	started := make(chan struct{})
	root.Spawn(func(wc *WorkerCtx) {
		close(started)
		<-wc.Done()
	})
	waitClosed(t, started)
}

func TestWorkerPostRunsOnDrain(t *testing.T) {
	root := NewNode()
	app := New(newMockTerminal(10, 3), root)

	n := NewNode()
	sent := make(chan struct{})
	var got *Node
	n.Spawn(func(wc *WorkerCtx) {
		assert.True(t, wc.Post(func(node *Node, a *App) { got = node }))
		close(sent)
	})
	root.AttachChild(n)
	waitClosed(t, sent)

	app.drainWorkers()
	assert.Same(t, n, got)
}

func TestPostAfterDetachIsDiscarded(t *testing.T) {
	root := NewNode()
	app := New(newMockTerminal(10, 3), root)

	n := NewNode()
	sent := make(chan struct{})
	executed := false
	n.Spawn(func(wc *WorkerCtx) {
		<-wc.Done()
		wc.Post(func(*Node, *App) { executed = true })
		close(sent)
	})
	root.AttachChild(n)
	root.DetachChild(n)
	waitClosed(t, sent)

	// Whether the post raced into the queue or was refused, it must not
	// run for the removed node.
	app.drainWorkers()
	assert.False(t, executed)
	assert.Nil(t, n.workers)
}

func TestShuttingDownFlag(t *testing.T) {
	root := NewNode()
	_ = New(newMockTerminal(10, 3), root)

	n := NewNode()
	states := make(chan bool, 2)
	n.Spawn(func(wc *WorkerCtx) {
		states <- wc.ShuttingDown()
		<-wc.Done()
		states <- wc.ShuttingDown()
	})
	root.AttachChild(n)
	assert.False(t, recvBool(t, states))

	root.DetachChild(n)
	assert.True(t, recvBool(t, states))
}

func TestDetachedWorkerNotRestarted(t *testing.T) {
	root := NewNode()
	_ = New(newMockTerminal(10, 3), root)

	n := NewNode()
	started := make(chan struct{})
	n.Spawn(func(wc *WorkerCtx) {
		close(started)
		<-wc.Done()
	})
	root.AttachChild(n)
	waitClosed(t, started)

	root.DetachChild(n)
	root.AttachChild(n)
	assert.Empty(t, n.workers)
}

func TestRunShutsDownWorkers(t *testing.T) {
	term := newMockTerminal(10, 3)
	root := NewNode()
	app := New(term, root)

	exited := make(chan struct{})
	root.Spawn(func(wc *WorkerCtx) {
		<-wc.Done()
		close(exited)
	})

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(context.Background()) }()
	waitFor(t, term.started)
	app.Stop()
	require.NoError(t, <-errCh)
	waitClosed(t, exited)
}

func TestWorkerPanicIsLogged(t *testing.T) {
	var buf syncBuffer
	root := NewNode()
	_ = New(newMockTerminal(10, 3), root, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	n := NewNode()
	n.Spawn(func(wc *WorkerCtx) { panic("boom") })
	root.AttachChild(n)

	waitFor(t, func() bool { return strings.Contains(buf.String(), "worker panicked") })
	assert.Contains(t, buf.String(), "boom")
}

func TestDrainDropsUnknownNode(t *testing.T) {
	var buf syncBuffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	app := New(newMockTerminal(10, 3), NewNode(), WithLogger(slog.New(handler)))

	ran := false
	app.workerCh <- workerMsg{id: NodeID(1 << 61), fn: func(*Node, *App) { ran = true }}
	app.drainWorkers()
	assert.False(t, ran)
	assert.Contains(t, buf.String(), "dropping post for removed node")
}
