package canopy

import (
	"github.com/charmbracelet/x/ansi"
	"github.com/rivo/uniseg"
)

// VisibleWidth returns the terminal display width of a string, ignoring ANSI
// escape sequences and accounting for wide characters.
func VisibleWidth(s string) int {
	return ansi.StringWidth(s)
}

// Truncate truncates s to at most maxWidth visible columns, appending tail
// (e.g. "...") if truncation occurred.
func Truncate(s string, maxWidth int, tail string) string {
	return ansi.Truncate(s, maxWidth, tail)
}

// Grapheme locates one grapheme cluster inside its line's backing string
// together with its display width.
type Grapheme struct {
	Off   int
	Len   int
	Width int
}

// graphemes segments plain text (no escapes) into clusters, caching byte
// offset, byte length, and column width for each.
func graphemes(s string) []Grapheme {
	if s == "" {
		return nil
	}
	gs := make([]Grapheme, 0, len(s))
	state := -1
	var cluster string
	var width int
	off := 0
	rest := s
	for len(rest) > 0 {
		cluster, rest, width, state = uniseg.FirstGraphemeClusterInString(rest, state)
		gs = append(gs, Grapheme{Off: off, Len: len(cluster), Width: width})
		off += len(cluster)
	}
	return gs
}

// clusterWidth returns the display width of a single grapheme cluster.
func clusterWidth(cluster string) int {
	_, w := ansi.FirstGraphemeCluster(cluster, ansi.GraphemeWidth)
	return w
}
