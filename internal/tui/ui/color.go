package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// ColorName returns a tview color tag for c.
func ColorName(c tcell.Color) string {
	best := ""
	for name, val := range tcell.ColorNames {
		// Several names alias one colour; pick one stably.
		if val == c && (best == "" || name < best) {
			best = name
		}
	}
	if best != "" {
		return best
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
