package widget

import "github.com/vito/canopy/pkg/canopy"

// refresh asks the owning app to lay n out again, if n is mounted.
// Detached widgets can be mutated freely; they are measured on attach.
func refresh(n *canopy.Node) {
	if app := n.App(); app != nil {
		app.RequestRecompute(n)
	}
}
