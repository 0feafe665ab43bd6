package canopy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatLine joins a visual line back into a string, codes included, so
// expectations can be written as plain ANSI text.
func flatLine(vl VisualLine) string {
	var sb strings.Builder
	for _, u := range vl.Units {
		if u.IsCode() {
			sb.WriteString(u.Code)
		} else {
			sb.WriteString(u.Text)
		}
	}
	return sb.String()
}

func flatLines(vls []VisualLine) []string {
	out := make([]string, len(vls))
	for i, vl := range vls {
		out[i] = flatLine(vl)
	}
	return out
}

func TestBufferLineClusters(t *testing.T) {
	l := NewBufferLine("a日b")
	assert.Equal(t, 3, l.Count())
	assert.Equal(t, "a", l.Cluster(0))
	assert.Equal(t, "日", l.Cluster(1))
	assert.Equal(t, "b", l.Cluster(2))
	assert.Equal(t, 1, l.ClusterWidth(0))
	assert.Equal(t, 2, l.ClusterWidth(1))
	assert.Equal(t, 4, l.Width())

	// WidthTo is the column before cluster i.
	assert.Equal(t, 0, l.WidthTo(0))
	assert.Equal(t, 1, l.WidthTo(1))
	assert.Equal(t, 3, l.WidthTo(2))
	assert.Equal(t, 4, l.WidthTo(3))
}

func TestBufferLineCombiningCluster(t *testing.T) {
	// e + combining acute is one grapheme, one column.
	l := NewBufferLine("xéy")
	assert.Equal(t, 3, l.Count())
	assert.Equal(t, "é", l.Cluster(1))
	assert.Equal(t, 1, l.ClusterWidth(1))
	assert.Equal(t, 3, l.Width())
}

func TestBufferLineControlWidth(t *testing.T) {
	// C0 controls occupy two columns, matching their caret rendering.
	l := NewBufferLine("a\tb")
	assert.Equal(t, 3, l.Count())
	assert.Equal(t, 2, l.ClusterWidth(1))
	assert.Equal(t, 4, l.Width())
}

func TestBufferLineSlice(t *testing.T) {
	l := NewBufferLine("a日b")
	assert.Equal(t, "日b", l.Slice(1, 3))
	assert.Equal(t, "a", l.Slice(0, 1))
	assert.Equal(t, "", l.Slice(2, 2))
	// Out-of-range indexes clamp instead of panicking.
	assert.Equal(t, "a日b", l.Slice(-5, 99))
	assert.Equal(t, "", l.Slice(7, 9))
}

func TestTextLineEditing(t *testing.T) {
	txt := NewText("one\ntwo")
	assert.Equal(t, 2, txt.NumLines())
	assert.Equal(t, "one\ntwo", txt.String())

	txt.AppendLine("three")
	txt.SetLine(1, "TWO")
	assert.Equal(t, "one\nTWO\nthree", txt.String())
	assert.Equal(t, "TWO", txt.Line(1).String())
}

func TestSetStringKeepsSpans(t *testing.T) {
	txt := NewText("abc")
	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: 0, Start: 0, Len: 2})
	txt.SetString("xyz\nq")
	assert.Equal(t, 2, txt.NumLines())
	require.Len(t, txt.Spans(), 1)
	assert.Equal(t, 0, txt.Spans()[0].Line)
}

func TestAddSpanDropsDegenerate(t *testing.T) {
	txt := NewText("abc")
	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: 0, Start: 1, Len: 0})
	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: 0, Start: 1, Len: -3})
	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: -1, Start: 0, Len: 1})
	assert.Empty(t, txt.Spans())

	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: 0, Start: 1, Len: 1})
	assert.Len(t, txt.Spans(), 1)

	txt.ClearSpans()
	assert.Empty(t, txt.Spans())
}

func TestRemoveLineShiftsSpans(t *testing.T) {
	txt := NewText("one\ntwo\nthree")
	bold := AttrCode(AttrBold)
	txt.AddSpan(StyleSpan{Code: bold, Line: 0, Start: 0, Len: 1})
	txt.AddSpan(StyleSpan{Code: bold, Line: 1, Start: 0, Len: 2})
	txt.AddSpan(StyleSpan{Code: bold, Line: 2, Start: 0, Len: 3})

	txt.RemoveLine(1)
	assert.Equal(t, "one\nthree", txt.String())
	require.Len(t, txt.Spans(), 2)
	assert.Equal(t, 0, txt.Spans()[0].Line)
	assert.Equal(t, 1, txt.Spans()[1].Line)
	assert.Equal(t, 3, txt.Spans()[1].Len)
}

func TestWrapChars(t *testing.T) {
	txt := NewText("hello world")
	assert.Equal(t, 1, txt.VisualLines())

	delta := txt.WrapText(5)
	assert.Equal(t, 2, delta)
	assert.Equal(t, 3, txt.VisualLines())

	vls := txt.PrepareText(-1)
	require.Len(t, vls, 3)
	assert.Equal(t, "hello", flatLine(vls[0]))
	assert.Equal(t, " worl", flatLine(vls[1]))
	assert.Equal(t, "d", flatLine(vls[2]))
	assert.Equal(t, 0, vls[0].Offset)
	assert.Equal(t, 5, vls[1].Offset)
	assert.Equal(t, 10, vls[2].Offset)
}

func TestWrapNeverSplitsClusters(t *testing.T) {
	txt := NewText("日本語")
	delta := txt.WrapText(3)
	assert.Equal(t, 2, delta)
	assert.Equal(t, []string{"日", "本", "語"}, flatLines(txt.PrepareText(-1)))
}

func TestWrapClusterWiderThanWidth(t *testing.T) {
	// A cluster wider than the wrap width gets a visual line to itself.
	txt := NewText("日")
	assert.Equal(t, 0, txt.WrapText(1))
	assert.Equal(t, []string{"日"}, flatLines(txt.PrepareText(-1)))
}

func TestWrapZeroWidth(t *testing.T) {
	txt := NewText("ab\ncd")
	assert.Equal(t, 0, txt.WrapText(0))
	assert.Equal(t, 2, txt.VisualLines())
	assert.Equal(t, []string{"", ""}, flatLines(txt.PrepareText(-1)))
}

func TestWrapKeepsEmptyLines(t *testing.T) {
	txt := NewText("a\n\nb")
	assert.Equal(t, 0, txt.WrapText(10))
	assert.Equal(t, 3, txt.VisualLines())
}

func TestRewrapAfterEdit(t *testing.T) {
	txt := NewText("hello world")
	txt.WrapText(5)
	assert.Equal(t, 3, txt.VisualLines())

	// Edits re-apply the active wrap width.
	txt.SetString("hi")
	assert.Equal(t, 1, txt.VisualLines())
	txt.AppendLine("worldwide")
	assert.Equal(t, 3, txt.VisualLines())

	assert.Equal(t, -1, txt.Unwrap())
	assert.Equal(t, 2, txt.VisualLines())
	assert.Equal(t, []string{"hi", "worldwide"}, flatLines(txt.PrepareText(-1)))
}

func TestPrepareTextSpanInsertion(t *testing.T) {
	txt := NewText("abc")
	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: 0, Start: 1, Len: 1})
	vls := txt.PrepareText(-1)
	require.Len(t, vls, 1)
	assert.Equal(t, "a\x1b[1mb\x1b[22mc", flatLine(vls[0]))
}

func TestPrepareTextSpanClipsToLine(t *testing.T) {
	txt := NewText("abc")
	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: 0, Start: 1, Len: 99})
	vls := txt.PrepareText(-1)
	require.Len(t, vls, 1)
	assert.Equal(t, "a\x1b[1mbc\x1b[22m", flatLine(vls[0]))
}

func TestPrepareTextResetBeforeStartAtBoundary(t *testing.T) {
	red := FGCode(redColor)
	txt := NewText("abcd")
	txt.AddSpan(StyleSpan{Code: red, Line: 0, Start: 0, Len: 2})
	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: 0, Start: 2, Len: 2})
	vls := txt.PrepareText(-1)
	require.Len(t, vls, 1)
	assert.Equal(t, red+"ab"+fgResetCode+"\x1b[1mcd\x1b[22m", flatLine(vls[0]))
}

func TestPrepareTextSpanAcrossWrap(t *testing.T) {
	txt := NewText("hello")
	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: 0, Start: 1, Len: 3})
	txt.WrapText(2)
	vls := txt.PrepareText(-1)
	require.Len(t, vls, 3)
	// The span closes at each wrap boundary and reopens on the next part,
	// keeping every visual line self-contained.
	assert.Equal(t, "h\x1b[1me\x1b[22m", flatLine(vls[0]))
	assert.Equal(t, "\x1b[1mll\x1b[22m", flatLine(vls[1]))
	assert.Equal(t, "o", flatLine(vls[2]))
}

func TestPrepareTextHeightLimit(t *testing.T) {
	txt := NewText("a\nb\nc")
	assert.Len(t, txt.PrepareText(2), 2)
	assert.Len(t, txt.PrepareText(0), 0)
	assert.Len(t, txt.PrepareText(-1), 3)
}

func TestPrepareTextCaretNotation(t *testing.T) {
	txt := NewText("x\x1by")
	vls := txt.PrepareText(-1)
	require.Len(t, vls, 1)
	assert.Equal(t, "x^[y", flatLine(vls[0]))
	assert.Equal(t, 2, vls[0].Units[1].Width)

	assert.Equal(t, []string{"^?"}, flatLines(NewText("\x7f").PrepareText(-1)))
	assert.Equal(t, []string{"^I"}, flatLines(NewText("\t").PrepareText(-1)))
}

func TestPrepareTextUnitIndexes(t *testing.T) {
	txt := NewText("ab")
	txt.AddSpan(StyleSpan{Code: AttrCode(AttrBold), Line: 0, Start: 0, Len: 1})
	vls := txt.PrepareText(-1)
	require.Len(t, vls, 1)

	var idx []int
	for _, u := range vls[0].Units {
		if !u.IsCode() {
			idx = append(idx, u.Index)
		}
	}
	assert.Equal(t, []int{0, 1}, idx)
}

func TestFlattenSpansMergesSameCode(t *testing.T) {
	txt := NewText("abcdef")
	bold := AttrCode(AttrBold)
	txt.AddSpan(StyleSpan{Code: bold, Line: 0, Start: 0, Len: 3})
	txt.AddSpan(StyleSpan{Code: bold, Line: 0, Start: 2, Len: 3})
	txt.FlattenSpans()
	require.Len(t, txt.Spans(), 1)
	assert.Equal(t, StyleSpan{Code: bold, Line: 0, Start: 0, Len: 5}, txt.Spans()[0])
}

func TestFlattenSpansLaterColorWins(t *testing.T) {
	red := FGCode(redColor)
	green := FGCode(greenColor)
	txt := NewText("abcdef")
	txt.AddSpan(StyleSpan{Code: red, Line: 0, Start: 0, Len: 4})
	txt.AddSpan(StyleSpan{Code: green, Line: 0, Start: 2, Len: 4})
	txt.FlattenSpans()
	require.Len(t, txt.Spans(), 2)
	assert.Equal(t, StyleSpan{Code: red, Line: 0, Start: 0, Len: 2}, txt.Spans()[0])
	assert.Equal(t, StyleSpan{Code: green, Line: 0, Start: 2, Len: 4}, txt.Spans()[1])
}

func TestFlattenSpansKeepsOpaqueCodes(t *testing.T) {
	link := "\x1b]8;;https://example.com\x1b\\"
	txt := NewText("abc")
	txt.AddSpan(StyleSpan{Code: link, Line: 0, Start: 0, Len: 10})
	txt.FlattenSpans()
	require.Len(t, txt.Spans(), 1)
	assert.Equal(t, StyleSpan{Code: link, Line: 0, Start: 0, Len: 3}, txt.Spans()[0])
}

func TestFlattenSpansMixedKinds(t *testing.T) {
	red := FGCode(redColor)
	bold := AttrCode(AttrBold)
	txt := NewText("abcd")
	txt.AddSpan(StyleSpan{Code: red, Line: 0, Start: 0, Len: 2})
	txt.AddSpan(StyleSpan{Code: bold, Line: 0, Start: 1, Len: 2})
	txt.FlattenSpans()
	require.Len(t, txt.Spans(), 2)
	assert.Equal(t, StyleSpan{Code: red, Line: 0, Start: 0, Len: 2}, txt.Spans()[0])
	assert.Equal(t, StyleSpan{Code: bold, Line: 0, Start: 1, Len: 2}, txt.Spans()[1])
}

func TestWordWrapNotImplemented(t *testing.T) {
	txt := NewText("hello world")
	txt.Wrap = WrapWords
	assert.PanicsWithValue(t, "canopy: word wrapping is not implemented", func() {
		txt.WrapText(5)
	})
}
