// Command canopy-demo is an interactive tour of the canopy engine and
// widget set: a tabbed dashboard with buttons, a text input, a spinner,
// a worker-fed log console, and an anchored dialog.
//
// Usage:
//
//	go run ./cmd/canopy-demo
//	go run ./cmd/canopy-demo --theme mytheme.toml --render-debug /tmp/canopy_render.log
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/vito/canopy/pkg/canopy"
	"github.com/vito/canopy/pkg/canopy/widget"
)

// Config holds the demo's flag values.
type Config struct {
	Theme       string
	Log         string
	RenderDebug string
	FPS         int
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "canopy-demo",
		Short: "Interactive tour of the canopy TUI engine",
		Long: `canopy-demo drives every part of the canopy widget set: tab between
the dashboard and the log view, click or keyboard-activate the buttons,
type into the input, and open the about dialog. A background worker
feeds the log while a second one keeps the clock current.`,
		Example: `  # Run with the stock theme
  canopy-demo

  # Load a theme and write per-render timings
  canopy-demo --theme mytheme.toml --render-debug /tmp/canopy_render.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVar(&cfg.Theme, "theme", "", "TOML theme file")
	rootCmd.Flags().StringVar(&cfg.Log, "log", "", "write debug logs to this file")
	rootCmd.Flags().StringVar(&cfg.RenderDebug, "render-debug", "", "write per-render JSONL timings to this file")
	rootCmd.Flags().IntVar(&cfg.FPS, "fps", 60, "frame rate cap, 0 for unlimited")

	if err := fang.Execute(context.Background(), rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(slog.DiscardHandler)
	if cfg.Log != "" {
		f, err := os.Create(cfg.Log)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		logger = slog.New(tint.NewHandler(f, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.TimeOnly,
		}))
	}

	th := widget.DefaultTheme()
	if cfg.Theme != "" {
		var err error
		th, err = widget.LoadTheme(cfg.Theme)
		if err != nil {
			return err
		}
	}

	opts := []canopy.Option{canopy.WithLogger(logger)}
	if cfg.RenderDebug != "" {
		f, err := os.OpenFile(cfg.RenderDebug, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("open render debug log: %w", err)
		}
		defer f.Close() //nolint:errcheck
		opts = append(opts, canopy.WithDebugWriter(f))
	}
	if cfg.FPS > 0 {
		opts = append(opts, canopy.WithFrameLimit(time.Second/time.Duration(cfg.FPS)))
	}

	// Button and dialog closures need the app, which needs the tree; the
	// pointer is filled in before Run delivers any event.
	var app *canopy.App
	root := buildDashboard(th, &app)
	app = canopy.New(canopy.NewProcessTerminal(), root, opts...)

	// A signal-cancelled context is a normal way to leave.
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildDashboard(th widget.Theme, app **canopy.App) *canopy.Node {
	root := canopy.NewNode()
	root.Style.Size = canopy.Size{W: canopy.Pct(100), H: canopy.Pct(100)}
	root.Style.Grow = true
	root.Style.Padding = canopy.Pad(1)
	root.Style.Gap = canopy.Gap{Row: 1}
	root.Style.FG = th.FG
	root.Style.BG = th.BG

	console := widget.NewConsole(th, 64, 14)
	console.Append("INFO  console ready", accent(th, 4))

	spin := widget.NewSpinner(th, "watching for events")

	input := widget.NewInput(th, 32)
	input.Placeholder = "type a note, Enter logs it"
	input.OnSubmit = func(v string) bool {
		if v == "" {
			return false
		}
		console.Append("NOTE  "+v, canopy.StyleSpan{
			Code: canopy.AttrCode(canopy.AttrBold),
			Len:  4,
		})
		return true
	}

	dialog := widget.NewDialog(th, "About",
		canopy.NewTextNode("canopy composes retained nodes into\nterminal frames and routes input back\nthrough the same tree."))

	buttons := canopy.NewNode()
	buttons.Style.Direction = canopy.Row
	buttons.Style.Gap = canopy.Gap{Col: 2}
	about := widget.NewButton(th, "About", func() {
		if a := *app; a != nil {
			dialog.Show(a)
		}
	})
	clearLog := widget.NewButton(th, "Clear log", console.Clear)
	quit := widget.NewButton(th, "Quit", func() {
		if a := *app; a != nil {
			a.Stop()
		}
	})
	buttons.AttachChild(about.Node())
	buttons.AttachChild(clearLog.Node())
	buttons.AttachChild(quit.Node())

	page := canopy.NewNode()
	page.Style.Gap = canopy.Gap{Row: 1}
	page.AttachChild(spin.Node())
	page.AttachChild(buttons)
	page.AttachChild(input.Node())

	tabs := widget.NewTabs(th,
		widget.Tab{Title: "Dashboard", Content: page},
		widget.Tab{Title: "Logs", Content: console.Node()},
	)

	root.AttachChild(titleBar(th))
	root.AttachChild(tabs.Node())
	root.AttachChild(hintBar(th))

	// The feed lives on the root so it survives tab switches; the
	// console keeps accumulating while its page is detached.
	root.Spawn(func(wc *canopy.WorkerCtx) {
		tick := time.NewTicker(1200 * time.Millisecond)
		defer tick.Stop()
		seq := 0
		for {
			select {
			case <-tick.C:
				seq++
				msg := fmt.Sprintf("INFO  event %d processed", seq)
				if !wc.Post(func(*canopy.Node, *canopy.App) {
					console.Append(msg, accent(th, 4))
				}) {
					return
				}
			case <-wc.Done():
				return
			}
		}
	})

	root.OnBubble(func(dc *canopy.DispatchContext, _ *canopy.Node, ev canopy.Event) bool {
		ke, ok := ev.(canopy.KeyEvent)
		if !ok {
			return false
		}
		key := uv.Key(ke.KeyPressEvent)
		switch {
		case key.Text == "q", key.Code == 'c' && key.Mod == uv.ModCtrl:
			dc.App().Stop()
			return true
		case key.Code == uv.KeyTab:
			return dc.App().CycleFocus(key.Mod == uv.ModShift, true, nil)
		}
		return false
	})

	return root
}

func titleBar(th widget.Theme) *canopy.Node {
	bar := canopy.NewNode()
	bar.Style.Direction = canopy.Row
	bar.Style.Justify = canopy.JustifySpaceBetween
	bar.Style.Size.W = canopy.Pct(100)
	bar.Style.Grow = true

	brand := canopy.NewTextNode("canopy")
	brand.Style.FG = th.AccentFG
	brand.Style.Attrs = canopy.AttrBold

	clock := canopy.NewTextNode(time.Now().Format(time.Kitchen))
	clock.Style.FG = th.MutedFG
	clock.Spawn(func(wc *canopy.WorkerCtx) {
		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				ok := wc.Post(func(n *canopy.Node, a *canopy.App) {
					n.Text.SetString(time.Now().Format(time.Kitchen))
					a.RequestRecompute(n)
				})
				if !ok {
					return
				}
			case <-wc.Done():
				return
			}
		}
	})

	bar.AttachChild(brand)
	bar.AttachChild(clock)
	return bar
}

func hintBar(th widget.Theme) *canopy.Node {
	hints := canopy.NewTextNode("tab cycles focus · q quits · esc closes the dialog")
	hints.Style.FG = th.MutedFG
	return hints
}

// accent styles the first n graphemes of an appended line.
func accent(th widget.Theme, n int) canopy.StyleSpan {
	return canopy.StyleSpan{Code: canopy.FGCode(th.AccentFG), Len: n}
}
