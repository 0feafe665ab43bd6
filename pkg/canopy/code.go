package canopy

import (
	"image/color"
	"strings"

	"github.com/muesli/termenv"
)

const (
	csi = "\x1b["

	// ResetCode clears every SGR attribute.
	ResetCode = "\x1b[0m"

	fgResetCode = "\x1b[39m"
	bgResetCode = "\x1b[49m"
)

// Attr is a bitmask of the independent boolean text attributes.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrFaint
	AttrItalic
	AttrUnderline
	AttrDoubleUnderline
	AttrCurlyUnderline
	AttrBlink
	AttrRapidBlink
	AttrReverse
	AttrConceal
	AttrStrike
	AttrOverline
	AttrSuperscript
	AttrSubscript

	attrCount = 14
)

// attrSetParams[i] is the SGR parameter that turns attribute bit i on;
// attrResetParams[i] the one that turns it off. Several attributes share a
// reset parameter (22 covers bold and faint, 24 every underline style, 25
// both blink speeds, 75 both scripts), which the state differ has to honor
// when only one member of a group goes off.
var (
	attrSetParams   = [attrCount]string{"1", "2", "3", "4", "21", "4:3", "5", "6", "7", "8", "9", "53", "73", "74"}
	attrResetParams = [attrCount]string{"22", "22", "23", "24", "24", "24", "25", "25", "27", "28", "29", "55", "75", "75"}
)

// attrBitsByReset returns the mask of attributes cleared by a reset param.
func attrBitsByReset(param string) Attr {
	var m Attr
	for i := 0; i < attrCount; i++ {
		if attrResetParams[i] == param {
			m |= 1 << i
		}
	}
	return m
}

func attrSetCode(bit int) string { return csi + attrSetParams[bit] + "m" }

// fgCode builds the SGR escape selecting c as the foreground.
func fgCode(c color.Color) string {
	return csi + termenv.TrueColor.FromColor(c).Sequence(false) + "m"
}

// bgCode builds the SGR escape selecting c as the background.
func bgCode(c color.Color) string {
	return csi + termenv.TrueColor.FromColor(c).Sequence(true) + "m"
}

// attrCodes returns one set escape per attribute bit in a.
func attrCodes(a Attr) []string {
	if a == 0 {
		return nil
	}
	out := make([]string, 0, 2)
	for i := 0; i < attrCount; i++ {
		if a&(1<<i) != 0 {
			out = append(out, attrSetCode(i))
		}
	}
	return out
}

// FGCode returns the escape selecting c as the foreground, for use as a
// style span code.
func FGCode(c color.Color) string { return fgCode(c) }

// BGCode returns the escape selecting c as the background, for use as a
// style span code.
func BGCode(c color.Color) string { return bgCode(c) }

// AttrCode returns the escape enabling a single attribute, for use as a
// style span code. It panics when a holds anything but one attribute bit.
func AttrCode(a Attr) string {
	for i := 0; i < attrCount; i++ {
		if a == 1<<i {
			return attrSetCode(i)
		}
	}
	panic("canopy: AttrCode wants exactly one attribute")
}

// splitCodes splits a unit's code string, which may hold several
// concatenated escapes, into individual escapes.
func splitCodes(s string) []string {
	if s == "" {
		return nil
	}
	if !strings.Contains(s[1:], "\x1b") {
		return []string{s}
	}
	var out []string
	for len(s) > 0 {
		i := strings.Index(s[1:], "\x1b")
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

// codeKind classifies a single-purpose SGR escape.
type codeKind uint8

const (
	codeOther codeKind = iota
	codeFG
	codeFGReset
	codeBG
	codeBGReset
	codeAttrSet
	codeAttrReset
	codeFullReset
	codeCompound
)

// sgrParams extracts the parameter list from one SGR escape, or ok=false
// for anything that is not an SGR escape.
func sgrParams(code string) ([]string, bool) {
	body, ok := strings.CutPrefix(code, csi)
	if !ok {
		return nil, false
	}
	body, ok = strings.CutSuffix(body, "m")
	if !ok || strings.ContainsRune(body, '\x1b') {
		return nil, false
	}
	if body == "" {
		return []string{"0"}, true
	}
	return strings.Split(body, ";"), true
}

// kindOf classifies one escape. Escapes carrying more than one logical
// change (like "0;31") report codeCompound; non-SGR escapes report
// codeOther. For attr kinds the affected bits are returned too.
func kindOf(code string) (codeKind, Attr) {
	params, ok := sgrParams(code)
	if !ok {
		return codeOther, 0
	}
	kind := codeKind(0)
	var bits Attr
	one := func(k codeKind, b Attr) bool {
		if kind != 0 {
			kind = codeCompound
			return false
		}
		kind, bits = k, b
		return true
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == "0":
			if !one(codeFullReset, 0) {
				return codeCompound, 0
			}
		case p == "38", p == "48":
			k := codeFG
			if p == "48" {
				k = codeBG
			}
			// 38;5;N or 38;2;R;G;B, consumed as one color selection.
			if i+1 < len(params) && params[i+1] == "5" {
				i += 2
			} else {
				i += 4
			}
			if !one(k, 0) {
				return codeCompound, 0
			}
		case p == "39":
			if !one(codeFGReset, 0) {
				return codeCompound, 0
			}
		case p == "49":
			if !one(codeBGReset, 0) {
				return codeCompound, 0
			}
		case isBasicFG(p):
			if !one(codeFG, 0) {
				return codeCompound, 0
			}
		case isBasicBG(p):
			if !one(codeBG, 0) {
				return codeCompound, 0
			}
		default:
			if b := attrBitsBySet(p); b != 0 {
				if !one(codeAttrSet, b) {
					return codeCompound, 0
				}
			} else if b := attrBitsByReset(p); b != 0 {
				if !one(codeAttrReset, b) {
					return codeCompound, 0
				}
			} else {
				return codeOther, 0
			}
		}
	}
	if kind == 0 {
		return codeOther, 0
	}
	return kind, bits
}

func attrBitsBySet(param string) Attr {
	for i := 0; i < attrCount; i++ {
		if attrSetParams[i] == param {
			return 1 << i
		}
	}
	return 0
}

func isBasicFG(p string) bool {
	if len(p) == 2 && (p[0] == '3' || p[0] == '9') && p[1] >= '0' && p[1] <= '7' {
		return p != "38" && p != "39"
	}
	return false
}

func isBasicBG(p string) bool {
	if len(p) == 2 && p[0] == '4' && p[1] >= '0' && p[1] <= '7' {
		return p != "48" && p != "49"
	}
	if len(p) == 3 && p[0] == '1' && p[1] == '0' && p[2] >= '0' && p[2] <= '7' {
		return true
	}
	return false
}

// resetFor returns the escape undoing a single start code: default
// foreground for a foreground code, default background for a background
// code, the group reset for an attribute. Anything else gets the full
// reset.
func resetFor(code string) string {
	kind, bits := kindOf(code)
	switch kind {
	case codeFG:
		return fgResetCode
	case codeBG:
		return bgResetCode
	case codeAttrSet:
		for i := 0; i < attrCount; i++ {
			if bits&(1<<i) != 0 {
				return csi + attrResetParams[i] + "m"
			}
		}
	}
	return ResetCode
}

// ── SGR state tracking ───────────────────────────────────────────────────

// sgrState tracks the style a terminal would hold after a sequence of
// codes: the active foreground and background escapes and the attribute
// bits. Codes the tracker cannot interpret (OSC links, unknown SGR
// parameters) flip known off, after which pruning and diffing become
// pass-through until a full reset re-synchronizes.
type sgrState struct {
	known  bool
	fg, bg string
	attrs  Attr
}

func newSGRState() sgrState {
	return sgrState{known: true}
}

func (s *sgrState) isDefault() bool {
	return s.known && s.fg == "" && s.bg == "" && s.attrs == 0
}

// apply interprets code (possibly several concatenated escapes) onto s.
func (s *sgrState) apply(code string) {
	for _, esc := range splitCodes(code) {
		s.applyOne(esc)
	}
}

func (s *sgrState) applyOne(esc string) {
	params, ok := sgrParams(esc)
	if !ok {
		s.known = false
		return
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == "0":
			s.known = true
			s.fg, s.bg, s.attrs = "", "", 0
		case p == "38", p == "48":
			end := i + 2
			if i+1 < len(params) && params[i+1] == "2" {
				end = i + 4
			}
			if end >= len(params) {
				end = len(params) - 1
			}
			sel := csi + strings.Join(params[i:end+1], ";") + "m"
			if p == "38" {
				s.fg = sel
			} else {
				s.bg = sel
			}
			i = end
		case p == "39":
			s.fg = ""
		case p == "49":
			s.bg = ""
		case isBasicFG(p):
			s.fg = csi + p + "m"
		case isBasicBG(p):
			s.bg = csi + p + "m"
		default:
			if b := attrBitsBySet(p); b != 0 {
				s.attrs |= b
			} else if b := attrBitsByReset(p); b != 0 {
				s.attrs &^= b
			} else {
				s.known = false
			}
		}
	}
}

// codes returns the escapes re-establishing s from a default terminal, in
// stable order: foreground, background, then attributes by bit.
func (s *sgrState) codes() []string {
	if !s.known {
		return nil
	}
	var out []string
	if s.fg != "" {
		out = append(out, s.fg)
	}
	if s.bg != "" {
		out = append(out, s.bg)
	}
	out = append(out, attrCodes(s.attrs)...)
	return out
}

// diff returns the minimal escapes transforming state s into target. ok is
// false when either side is untracked, in which case the caller has to
// fall back to emitting codes verbatim.
func (s *sgrState) diff(target *sgrState) ([]string, bool) {
	if !s.known || !target.known {
		return nil, false
	}
	var out []string
	if s.fg != target.fg {
		if target.fg == "" {
			out = append(out, fgResetCode)
		} else {
			out = append(out, target.fg)
		}
	}
	if s.bg != target.bg {
		if target.bg == "" {
			out = append(out, bgResetCode)
		} else {
			out = append(out, target.bg)
		}
	}
	if s.attrs != target.attrs {
		out = append(out, diffAttrs(s.attrs, target.attrs)...)
	}
	return out, true
}

// diffAttrs walks the shared-reset groups. If any member of a group has to
// go off, the group reset is emitted and surviving members are set again;
// otherwise only newly-on members are set.
func diffAttrs(from, to Attr) []string {
	var out []string
	done := Attr(0)
	for i := 0; i < attrCount; i++ {
		bit := Attr(1) << i
		if done&bit != 0 {
			continue
		}
		group := attrBitsByReset(attrResetParams[i])
		done |= group
		fromOn := from & group
		toOn := to & group
		if fromOn == toOn {
			continue
		}
		if fromOn&^toOn != 0 {
			// Something in the group turns off; reset and rebuild.
			out = append(out, csi+attrResetParams[i]+"m")
			out = append(out, attrCodes(toOn)...)
		} else {
			out = append(out, attrCodes(toOn&^fromOn)...)
		}
	}
	return out
}

// ResetCodesFor returns the escapes undoing a set of active codes, with
// shared attribute resets deduplicated. It is the inverse companion of
// [Canvas.ActiveCodesAt].
func ResetCodesFor(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	st := newSGRState()
	for _, c := range codes {
		st.apply(c)
	}
	if !st.known {
		return []string{ResetCode}
	}
	def := newSGRState()
	out, _ := st.diff(&def)
	return out
}
