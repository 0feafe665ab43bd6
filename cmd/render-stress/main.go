// Command render-stress drives the canopy renderer with scripted
// mutations: a grid of tinted cells cycles hues every tick while one
// cell roams off its flow slot, mixing region repaints with periodic
// full clears. Per-render timings stream to a JSONL file and are
// summarized on exit.
//
// Usage:
//
//	go run ./cmd/render-stress
//	go run ./cmd/render-stress -cols 32 -rows 12 -duration 30s
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/sync/errgroup"

	"github.com/vito/canopy/pkg/canopy"
)

func main() {
	var (
		cols      = flag.Int("cols", 16, "grid columns")
		rows      = flag.Int("rows", 8, "grid rows")
		duration  = flag.Duration("duration", 10*time.Second, "how long to run")
		interval  = flag.Duration("interval", 50*time.Millisecond, "time between mutations")
		debugPath = flag.String("debug-log", "/tmp/canopy_render_debug.log", "JSONL render timing output")
	)
	flag.Parse()

	if err := run(*cols, *rows, *duration, *interval, *debugPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cols, rows int, duration, interval time.Duration, debugPath string) error {
	debugFile, err := os.OpenFile(debugPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	defer debugFile.Close() //nolint:errcheck

	grid, cells := buildGrid(cols, rows)

	root := canopy.NewNode()
	root.Style.Size = canopy.Size{W: canopy.Pct(100), H: canopy.Pct(100)}
	root.Style.Grow = true
	root.Style.Padding = canopy.Pad(1)
	root.Style.Gap = canopy.Gap{Row: 1}
	root.AttachChild(canopy.NewTextNode("render-stress · q quits"))
	root.AttachChild(grid)

	root.OnBubble(func(dc *canopy.DispatchContext, _ *canopy.Node, ev canopy.Event) bool {
		ke, ok := ev.(canopy.KeyEvent)
		if !ok {
			return false
		}
		key := uv.Key(ke.KeyPressEvent)
		if key.Text == "q" || (key.Code == 'c' && key.Mod == uv.ModCtrl) {
			dc.App().Stop()
			return true
		}
		return false
	})

	// ticks and shifted are touched only inside posted closures, which
	// run one at a time on the loop goroutine.
	ticks := 0
	shifted := -1
	root.Spawn(func(wc *canopy.WorkerCtx) {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		phase := 0
		for {
			select {
			case <-tick.C:
				phase++
				p := phase
				ok := wc.Post(func(_ *canopy.Node, a *canopy.App) {
					ticks++
					retint(cells, p)
					if shifted >= 0 {
						cells[shifted].Style.Offset = canopy.Offset{}
						shifted = -1
					}
					if p%32 == 0 {
						a.RequestRender()
						return
					}
					// Shift one cell off its flow slot, exercising the
					// blank-slot-plus-paste path.
					shifted = p % len(cells)
					cells[shifted].Style.Offset = canopy.Offset{Kind: canopy.OffsetTranslate, X: 1, Y: 1}
					a.RequestRecompute(grid)
				})
				if !ok {
					return
				}
			case <-wc.Done():
				return
			}
		}
	})

	// The stats stream is forked: raw JSONL to the file, a second copy
	// through a pipe to the live aggregator.
	pr, pw := io.Pipe()
	app := canopy.New(canopy.NewProcessTerminal(), root,
		canopy.WithDebugWriter(io.MultiWriter(debugFile, pw)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var sum summary
	start := time.Now()

	eg := new(errgroup.Group)
	eg.Go(func() error {
		defer pw.Close() //nolint:errcheck
		return app.Run(ctx)
	})
	eg.Go(func() error {
		return sum.consume(pr)
	})

	err = eg.Wait()
	if errors.Is(err, context.DeadlineExceeded) {
		// Running out the clock is the normal ending.
		err = nil
	}

	sum.report(os.Stdout, time.Since(start), ticks)
	fmt.Printf("raw timings: %s\n", debugPath)
	return err
}

// buildGrid returns a rows-by-cols panel of two-cell-wide tinted cells.
func buildGrid(cols, rows int) (*canopy.Node, []*canopy.Node) {
	grid := canopy.NewNode()
	cells := make([]*canopy.Node, 0, cols*rows)
	for y := 0; y < rows; y++ {
		row := canopy.NewNode()
		row.Style.Direction = canopy.Row
		for x := 0; x < cols; x++ {
			cell := canopy.NewTextNode("  ")
			cells = append(cells, cell)
			row.AttachChild(cell)
		}
		grid.AttachChild(row)
	}
	retint(cells, 0)
	return grid, cells
}

// retint advances the hue wave one step across the grid.
func retint(cells []*canopy.Node, phase int) {
	n := len(cells)
	for i, cell := range cells {
		hue := math.Mod(float64(i*360/n+phase*7), 360)
		cell.Style.BG = colorful.Hsv(hue, 0.62, 0.74)
	}
}

// summary aggregates the JSONL debug stream as it is produced.
type summary struct {
	frames  int
	fulls   int
	bytes   int64
	totalUs int64
	writeUs int64
	maxUs   int64
}

type statLine struct {
	TotalUs int64 `json:"total_us"`
	WriteUs int64 `json:"write_us"`
	Full    bool  `json:"full"`
	Bytes   int   `json:"bytes"`
}

func (s *summary) consume(pr *io.PipeReader) error {
	// Closing the reader on the way out unblocks the writer if scanning
	// dies early.
	defer pr.Close() //nolint:errcheck
	sc := bufio.NewScanner(pr)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var line statLine
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			continue
		}
		s.frames++
		s.totalUs += line.TotalUs
		s.writeUs += line.WriteUs
		s.bytes += int64(line.Bytes)
		if line.TotalUs > s.maxUs {
			s.maxUs = line.TotalUs
		}
		if line.Full {
			s.fulls++
		}
	}
	return sc.Err()
}

func (s *summary) report(w io.Writer, elapsed time.Duration, ticks int) {
	if s.frames == 0 {
		fmt.Fprintln(w, "no frames rendered")
		return
	}
	fmt.Fprintf(w, "%d frames over %s (%.1f/s), %d driver ticks\n",
		s.frames, elapsed.Round(time.Millisecond),
		float64(s.frames)/elapsed.Seconds(), ticks)
	fmt.Fprintf(w, "render mean %s max %s, write mean %s, %d full repaints, %d bytes\n",
		time.Duration(s.totalUs/int64(s.frames))*time.Microsecond,
		time.Duration(s.maxUs)*time.Microsecond,
		time.Duration(s.writeUs/int64(s.frames))*time.Microsecond,
		s.fulls, s.bytes)
}
