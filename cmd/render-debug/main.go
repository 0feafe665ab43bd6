// Command render-debug serves a live dashboard for canopy render
// timings. It tails the JSONL stats file written through
// canopy.WithDebugWriter and streams each record to the browser over
// Server-Sent Events.
//
// Usage:
//
//	# Terminal 1: any canopy program with stats enabled
//	go run ./cmd/render-stress
//	go run ./cmd/canopy-demo --render-debug /tmp/canopy_render_debug.log
//
//	# Terminal 2: the dashboard
//	go run ./cmd/render-debug
//	go run ./cmd/render-debug -file /path/to/other.log
package main

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"time"
)

//go:embed dashboard.html
var dashboardFS embed.FS

func main() {
	addr := flag.String("addr", "127.0.0.1:0", "address to listen on (port 0 = auto)")
	statsFile := flag.String("file", "/tmp/canopy_render_debug.log", "path to the JSONL render stats file")
	noBrowser := flag.Bool("no-open", false, "don't open the browser automatically")
	flag.Parse()

	if err := run(*addr, *statsFile, !*noBrowser); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, statsFile string, openBrowser bool) error {
	h := newHub()
	go h.loop()
	go tail(statsFile, h)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		data, _ := dashboardFS.ReadFile("dashboard.html")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data) //nolint:errcheck
	})
	mux.HandleFunc("/events", h.serveSSE)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	url := fmt.Sprintf("http://%s", ln.Addr())
	fmt.Printf("Dashboard: %s\n", url)
	fmt.Printf("Tailing:   %s\n", statsFile)
	fmt.Println("Press Ctrl+C to stop.")

	if openBrowser {
		go openURL(url)
	}

	srv := &http.Server{Handler: mux}
	return srv.Serve(ln)
}

// maxHistory caps the replay sent to a freshly connected client.
const maxHistory = 2000

// hub fans tailed records out to SSE clients. A single goroutine owns
// both the client set and the history, so a subscriber's replay is
// atomic with its registration and no record can fall in between.
type hub struct {
	lines chan []byte
	sub   chan chan subscription
	unsub chan chan []byte
}

type subscription struct {
	history [][]byte
	live    chan []byte
}

func newHub() *hub {
	return &hub{
		lines: make(chan []byte, 256),
		sub:   make(chan chan subscription),
		unsub: make(chan chan []byte),
	}
}

func (h *hub) loop() {
	clients := make(map[chan []byte]struct{})
	var history [][]byte
	for {
		select {
		case line := <-h.lines:
			history = append(history, line)
			if len(history) > maxHistory {
				history = history[len(history)-maxHistory:]
			}
			for c := range clients {
				select {
				case c <- line:
				default: // slow client, drop the record
				}
			}
		case reply := <-h.sub:
			live := make(chan []byte, 64)
			clients[live] = struct{}{}
			reply <- subscription{history: slices.Clone(history), live: live}
		case c := <-h.unsub:
			delete(clients, c)
			close(c)
		}
	}
}

func (h *hub) serveSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	reply := make(chan subscription)
	h.sub <- reply
	s := <-reply
	defer func() { h.unsub <- s.live }()

	for _, line := range s.history {
		fmt.Fprintf(w, "data: %s\n\n", line)
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.live:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// tail follows the stats file forever, surviving the file not existing
// yet and being truncated or replaced underneath us.
func tail(path string, h *hub) {
	for {
		f, err := os.Open(path)
		if err != nil {
			time.Sleep(500 * time.Millisecond)
			continue
		}
		follow(f, h)
		f.Close()
	}
}

// follow reads appended lines until the file shrinks or stat fails,
// then returns so the caller reopens from scratch.
func follow(f *os.File, h *hub) {
	f.Seek(0, io.SeekEnd) //nolint:errcheck
	r := bufio.NewReader(f)
	var pending []byte
	for {
		chunk, err := r.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err == nil {
			line := bytes.TrimSuffix(pending, []byte("\n"))
			if json.Valid(line) {
				h.lines <- slices.Clone(line)
			}
			pending = pending[:0]
			continue
		}

		time.Sleep(50 * time.Millisecond)
		info, statErr := f.Stat()
		if statErr != nil {
			return
		}
		if pos, _ := f.Seek(0, io.SeekCurrent); info.Size() < pos {
			return
		}
	}
}

func openURL(url string) {
	time.Sleep(200 * time.Millisecond)
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	cmd.Run() //nolint:errcheck
}
