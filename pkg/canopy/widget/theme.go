// Package widget provides ready-made controls assembled from canopy
// nodes: buttons, line inputs, tab strips, anchored dialogs, spinners,
// and a scrolling console. Each widget owns a small subtree and exposes
// it through Node(); attach that node wherever a child is expected.
package widget

import (
	"image/color"

	"charm.land/lipgloss/v2"
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Theme is the palette and border set the widgets draw with. Nil colors
// leave the terminal default in place.
type Theme struct {
	FG      color.Color
	BG      color.Color
	MutedFG color.Color

	// AccentFG picks out the active element: spinner glyphs, selected
	// tab labels, dialog titles.
	AccentFG color.Color

	HoverBG color.Color
	FocusFG color.Color
	FocusBG color.Color

	Border   lipgloss.Border
	BorderFG color.Color
}

// DefaultTheme returns the stock 256-color palette.
func DefaultTheme() Theme {
	return Theme{
		FG:       lipgloss.Color("252"),
		MutedFG:  lipgloss.Color("243"),
		AccentFG: lipgloss.Color("81"),
		HoverBG:  lipgloss.Color("238"),
		FocusFG:  lipgloss.Color("255"),
		FocusBG:  lipgloss.Color("54"),
		Border:   lipgloss.RoundedBorder(),
		BorderFG: lipgloss.Color("240"),
	}
}

// themeFile is the TOML shape of a theme. Colors are lipgloss color
// strings, either ANSI 256 indexes ("81") or hex ("#5fd7ff"); empty
// fields keep the default.
type themeFile struct {
	FG       string `toml:"fg,omitempty"`
	BG       string `toml:"bg,omitempty"`
	MutedFG  string `toml:"muted-fg,omitempty"`
	AccentFG string `toml:"accent-fg,omitempty"`

	HoverBG string `toml:"hover-bg,omitempty"`
	FocusFG string `toml:"focus-fg,omitempty"`
	FocusBG string `toml:"focus-bg,omitempty"`

	Border   string `toml:"border,omitempty"`
	BorderFG string `toml:"border-fg,omitempty"`
}

var borderSets = map[string]lipgloss.Border{
	"normal":  lipgloss.NormalBorder(),
	"rounded": lipgloss.RoundedBorder(),
	"thick":   lipgloss.ThickBorder(),
	"double":  lipgloss.DoubleBorder(),
}

// LoadTheme reads a TOML theme file and overlays it on the default
// theme.
func LoadTheme(path string) (Theme, error) {
	var f themeFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return Theme{}, errors.Wrapf(err, "parsing %s", path)
	}
	th := DefaultTheme()
	overlayColor(&th.FG, f.FG)
	overlayColor(&th.BG, f.BG)
	overlayColor(&th.MutedFG, f.MutedFG)
	overlayColor(&th.AccentFG, f.AccentFG)
	overlayColor(&th.HoverBG, f.HoverBG)
	overlayColor(&th.FocusFG, f.FocusFG)
	overlayColor(&th.FocusBG, f.FocusBG)
	overlayColor(&th.BorderFG, f.BorderFG)
	if f.Border != "" {
		set, ok := borderSets[f.Border]
		if !ok {
			return Theme{}, errors.Errorf("unknown border style %q", f.Border)
		}
		th.Border = set
	}
	return th, nil
}

func overlayColor(dst *color.Color, s string) {
	if s != "" {
		*dst = lipgloss.Color(s)
	}
}
