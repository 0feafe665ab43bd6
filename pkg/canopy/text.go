package canopy

import (
	"sort"
	"strings"
)

// ── buffer lines ─────────────────────────────────────────────────────────

// BufferLine is one logical line of text with a per-grapheme cache of byte
// offset, byte length, and display width. C0 controls and DEL are cached at
// width 2, matching the caret notation they render as.
type BufferLine struct {
	text string
	gs   []Grapheme
}

// NewBufferLine segments s (which must not contain newlines) into grapheme
// clusters and builds the cache.
func NewBufferLine(s string) BufferLine {
	l := BufferLine{text: s, gs: graphemes(s)}
	for i := range l.gs {
		if isControlAt(s, l.gs[i]) {
			l.gs[i].Width = 2
		}
	}
	return l
}

func isControlAt(s string, g Grapheme) bool {
	if g.Len != 1 {
		return false
	}
	b := s[g.Off]
	return b < 0x20 || b == 0x7f
}

// String returns the backing text.
func (l BufferLine) String() string { return l.text }

// Count returns the number of grapheme clusters.
func (l BufferLine) Count() int { return len(l.gs) }

// Cluster returns the i-th grapheme cluster.
func (l BufferLine) Cluster(i int) string {
	g := l.gs[i]
	return l.text[g.Off : g.Off+g.Len]
}

// ClusterWidth returns the display width of the i-th grapheme cluster.
func (l BufferLine) ClusterWidth(i int) int { return l.gs[i].Width }

// Width returns the total display width of the line.
func (l BufferLine) Width() int {
	w := 0
	for _, g := range l.gs {
		w += g.Width
	}
	return w
}

// WidthTo returns the display width of the first i grapheme clusters, which
// is the column a cursor sitting before cluster i occupies.
func (l BufferLine) WidthTo(i int) int {
	w := 0
	for j := 0; j < i && j < len(l.gs); j++ {
		w += l.gs[j].Width
	}
	return w
}

// Slice returns the backing bytes of the half-open grapheme range [from, to).
func (l BufferLine) Slice(from, to int) string {
	from = max(0, min(from, len(l.gs)))
	to = max(from, min(to, len(l.gs)))
	if from == to {
		return ""
	}
	start := l.gs[from].Off
	last := l.gs[to-1]
	return l.text[start : last.Off+last.Len]
}

// ── spans and visual lines ───────────────────────────────────────────────

// StyleSpan attaches a style code to a half-open grapheme range [Start,
// Start+Len) of one logical line. Spans past the end of the line are
// clipped to its grapheme count when text is prepared.
type StyleSpan struct {
	Code  string
	Line  int
	Start int
	Len   int
}

// Unit is one element of a visual line: either a single grapheme cluster
// with its display width and originating grapheme index, or a zero-width
// style code. Synthesized units (padding, border glyphs) carry index -1.
type Unit struct {
	Text  string
	Code  string
	Width int
	Index int
}

// IsCode reports whether the unit is a non-printing style code.
func (u Unit) IsCode() bool { return u.Code != "" }

func textUnit(text string, width, index int) Unit {
	return Unit{Text: text, Width: width, Index: index}
}

func codeUnit(code string) Unit {
	return Unit{Code: code}
}

func spaceUnit() Unit {
	return Unit{Text: " ", Width: 1, Index: -1}
}

// VisualLine is one displayed row of prepared text. Offset is the number of
// source graphemes carried by earlier parts of the same logical line; 0
// marks the first (or only) part.
type VisualLine struct {
	Units  []Unit
	Offset int
}

// Width returns the total display width of the line.
func (v VisualLine) Width() int {
	w := 0
	for _, u := range v.Units {
		w += u.Width
	}
	return w
}

// ── text ─────────────────────────────────────────────────────────────────

// linePart is one visual line of the wrap structure: count graphemes of
// line starting at grapheme offset.
type linePart struct {
	line   int
	offset int
	count  int
}

// WrapMode selects how WrapText splits logical lines.
type WrapMode int

const (
	// WrapChars splits between grapheme clusters wherever the width runs
	// out.
	WrapChars WrapMode = iota
	// WrapWords is declared but not implemented. WrapText panics on it.
	WrapWords
)

// Text is the editable content of a node: logical lines, style spans, and
// the current wrap structure. The zero value is empty; NewText builds one
// from a string.
type Text struct {
	// Wrap is the split strategy WrapText applies.
	Wrap WrapMode

	lines []BufferLine
	spans []StyleSpan

	// parts is nil while unwrapped; wrapWidth is the width last given to
	// WrapText, 0 while unwrapped.
	parts     []linePart
	wrapWidth int
}

// NewText splits s on newlines into logical lines.
func NewText(s string) *Text {
	t := &Text{}
	t.SetString(s)
	return t
}

// SetString replaces all logical lines, keeping spans and re-applying the
// current wrap width if any.
func (t *Text) SetString(s string) {
	raw := strings.Split(s, "\n")
	t.lines = make([]BufferLine, len(raw))
	for i, r := range raw {
		t.lines[i] = NewBufferLine(r)
	}
	t.rewrap()
}

// String joins the logical lines back together.
func (t *Text) String() string {
	raw := make([]string, len(t.lines))
	for i, l := range t.lines {
		raw[i] = l.String()
	}
	return strings.Join(raw, "\n")
}

// NumLines returns the number of logical lines.
func (t *Text) NumLines() int { return len(t.lines) }

// Line returns the i-th logical line.
func (t *Text) Line(i int) BufferLine { return t.lines[i] }

// SetLine replaces the i-th logical line.
func (t *Text) SetLine(i int, s string) {
	t.lines[i] = NewBufferLine(s)
	t.rewrap()
}

// AppendLine adds a logical line at the end.
func (t *Text) AppendLine(s string) {
	t.lines = append(t.lines, NewBufferLine(s))
	t.rewrap()
}

// RemoveLine deletes the i-th logical line. Spans on later lines shift up;
// spans on the removed line are dropped.
func (t *Text) RemoveLine(i int) {
	t.lines = append(t.lines[:i], t.lines[i+1:]...)
	kept := t.spans[:0]
	for _, sp := range t.spans {
		switch {
		case sp.Line == i:
		case sp.Line > i:
			sp.Line--
			kept = append(kept, sp)
		default:
			kept = append(kept, sp)
		}
	}
	t.spans = kept
	t.rewrap()
}

// AddSpan attaches a style span. Spans render in sorted (line, start)
// order; ties keep insertion order.
func (t *Text) AddSpan(sp StyleSpan) {
	if sp.Len <= 0 || sp.Line < 0 {
		return
	}
	t.spans = append(t.spans, sp)
}

// ClearSpans drops every span.
func (t *Text) ClearSpans() { t.spans = nil }

// VisualLines returns the number of visual lines under the current wrap
// structure: the logical line count while unwrapped.
func (t *Text) VisualLines() int { return len(t.partsOrDefault()) }

// Spans returns the current spans.
func (t *Text) Spans() []StyleSpan { return t.spans }

// rewrap re-applies the current wrap width after a mutation.
func (t *Text) rewrap() {
	if t.parts == nil {
		return
	}
	w := t.wrapWidth
	t.parts = nil
	t.wrapWidth = 0
	t.WrapText(w)
}

// partsOrDefault returns the wrap structure, synthesizing the unwrapped one
// part per line when no wrap is active.
func (t *Text) partsOrDefault() []linePart {
	if t.parts != nil {
		return t.parts
	}
	ps := make([]linePart, len(t.lines))
	for i, l := range t.lines {
		ps[i] = linePart{line: i, offset: 0, count: l.Count()}
	}
	return ps
}

// WrapText re-joins any previously wrapped continuation lines into their
// logical lines, then splits each logical line into the minimum number of
// visual lines whose accumulated display width does not exceed width. No
// grapheme is ever split; a grapheme wider than width occupies a visual
// line alone. A width of zero or less keeps one part per logical line but
// with empty content, the documented degenerate case. Returns the net
// change in visual-line count, which callers use to adjust reserved
// height.
func (t *Text) WrapText(width int) int {
	if t.Wrap == WrapWords {
		panic("canopy: word wrapping is not implemented")
	}
	prev := len(t.partsOrDefault())
	if width <= 0 {
		parts := make([]linePart, len(t.lines))
		for i := range t.lines {
			parts[i] = linePart{line: i}
		}
		t.parts = parts
		t.wrapWidth = 0
		return len(parts) - prev
	}
	var parts []linePart
	for li, line := range t.lines {
		n := line.Count()
		if n == 0 {
			parts = append(parts, linePart{line: li})
			continue
		}
		start, acc := 0, 0
		for gi := 0; gi < n; gi++ {
			w := line.ClusterWidth(gi)
			if acc > 0 && acc+w > width {
				parts = append(parts, linePart{line: li, offset: start, count: gi - start})
				start, acc = gi, 0
			}
			acc += w
		}
		parts = append(parts, linePart{line: li, offset: start, count: n - start})
	}
	t.parts = parts
	t.wrapWidth = width
	return len(parts) - prev
}

// Unwrap restores one visual line per logical line. Returns the net change
// in visual-line count.
func (t *Text) Unwrap() int {
	prev := len(t.partsOrDefault())
	t.parts = nil
	t.wrapWidth = 0
	return len(t.lines) - prev
}

// naturalSize returns the display extent of the prepared text: the widest
// visual line and the visual line count.
func (t *Text) naturalSize() (w, h int) {
	for _, p := range t.partsOrDefault() {
		pw := 0
		line := t.lines[p.line]
		for gi := p.offset; gi < p.offset+p.count; gi++ {
			pw += line.ClusterWidth(gi)
		}
		if pw > w {
			w = pw
		}
		h++
	}
	return w, h
}

// PrepareText builds at most height visual lines (height < 0 means no
// limit). Every grapheme unit carries its source index; spans are consumed
// in sorted (line, start) order and inserted as a start code before their
// first grapheme and the matching reset after their last, clipped to the
// line's grapheme count. A span crossing a wrap boundary is closed at the
// end of each part and reopened on the next, so every visual line is
// self-contained. C0 controls and DEL render as caret notation.
func (t *Text) PrepareText(height int) []VisualLine {
	parts := t.partsOrDefault()
	if height >= 0 && len(parts) > height {
		parts = parts[:height]
	}
	spans := make([]StyleSpan, len(t.spans))
	copy(spans, t.spans)
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Line != spans[j].Line {
			return spans[i].Line < spans[j].Line
		}
		return spans[i].Start < spans[j].Start
	})

	out := make([]VisualLine, 0, len(parts))
	for _, p := range parts {
		line := t.lines[p.line]
		end := p.offset + p.count
		vl := VisualLine{Offset: p.offset}

		// Start and reset codes keyed by the grapheme position they
		// precede. Resets land before starts at a shared boundary.
		var starts, resets map[int][]string
		for _, sp := range spans {
			if sp.Line != p.line {
				continue
			}
			a := max(sp.Start, p.offset)
			b := min(sp.Start+sp.Len, line.Count())
			b = min(b, end)
			if a >= b {
				continue
			}
			if starts == nil {
				starts = make(map[int][]string)
				resets = make(map[int][]string)
			}
			starts[a] = append(starts[a], sp.Code)
			resets[b] = append(resets[b], resetFor(sp.Code))
		}

		for gi := p.offset; gi < end; gi++ {
			for _, c := range resets[gi] {
				vl.Units = append(vl.Units, codeUnit(c))
			}
			for _, c := range starts[gi] {
				vl.Units = append(vl.Units, codeUnit(c))
			}
			cluster := line.Cluster(gi)
			if isControlAt(line.text, line.gs[gi]) {
				cluster = caretNotation(line.text[line.gs[gi].Off])
			}
			vl.Units = append(vl.Units, textUnit(cluster, line.ClusterWidth(gi), gi))
		}
		for _, c := range resets[end] {
			vl.Units = append(vl.Units, codeUnit(c))
		}
		out = append(out, vl)
	}
	return out
}

// caretNotation renders a control byte as ^X: 0x1b becomes "^[", 0x7f
// becomes "^?".
func caretNotation(b byte) string {
	return "^" + string(rune(b^0x40))
}

// FlattenSpans sorts the spans, replays them onto dense per-grapheme state
// (foreground, background, attribute bits), and replaces them with the
// minimal set of contiguous spans per distinct code. Overlapping or
// duplicate input spans never produce overlapping output spans for the
// same code, and adjacent identical styles merge into one span. Codes the
// tracker cannot interpret pass through unchanged.
func (t *Text) FlattenSpans() {
	if len(t.spans) == 0 {
		return
	}
	sorted := make([]StyleSpan, len(t.spans))
	copy(sorted, t.spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Start < sorted[j].Start
	})

	var out []StyleSpan
	for li := range t.lines {
		n := t.lines[li].Count()
		var lineSpans []StyleSpan
		for _, sp := range sorted {
			if sp.Line == li {
				lineSpans = append(lineSpans, sp)
			}
		}
		if len(lineSpans) == 0 {
			continue
		}

		cols := make([]sgrState, n)
		for i := range cols {
			cols[i] = newSGRState()
		}
		for _, sp := range lineSpans {
			kind, _ := kindOf(sp.Code)
			if kind == codeOther {
				// Opaque code: keep verbatim, excluded from the replay.
				end := min(sp.Start+sp.Len, n)
				if sp.Start < end {
					out = append(out, StyleSpan{Code: sp.Code, Line: li, Start: sp.Start, Len: end - sp.Start})
				}
				continue
			}
			end := min(sp.Start+sp.Len, n)
			for i := sp.Start; i < end; i++ {
				cols[i].apply(sp.Code)
			}
		}

		emitRuns := func(code string, active func(i int) bool) {
			start := -1
			for i := 0; i <= n; i++ {
				on := i < n && active(i)
				if on && start < 0 {
					start = i
				}
				if !on && start >= 0 {
					out = append(out, StyleSpan{Code: code, Line: li, Start: start, Len: i - start})
					start = -1
				}
			}
		}

		// One run set per distinct foreground and background code.
		for _, distinct := range distinctCodes(cols, func(s *sgrState) string { return s.fg }) {
			emitRuns(distinct, func(i int) bool { return cols[i].fg == distinct })
		}
		for _, distinct := range distinctCodes(cols, func(s *sgrState) string { return s.bg }) {
			emitRuns(distinct, func(i int) bool { return cols[i].bg == distinct })
		}
		for bit := 0; bit < attrCount; bit++ {
			mask := Attr(1) << bit
			emitRuns(attrSetCode(bit), func(i int) bool { return cols[i].attrs&mask != 0 })
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Start < out[j].Start
	})
	t.spans = out
}

// distinctCodes returns every non-empty code value appearing in cols, in
// first-appearance order.
func distinctCodes(cols []sgrState, get func(*sgrState) string) []string {
	var out []string
	seen := map[string]bool{}
	for i := range cols {
		c := get(&cols[i])
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

