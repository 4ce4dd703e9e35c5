// Package colorutil provides the shared net color palette used to render
// layout snapshots (C12 overlay).
package colorutil

import "image/color"

// Common overlay colors, cycled across nets so adjacent bands in a rendered
// snapshot are visually distinguishable.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// Palette is the ordered cycle NetColor indexes into.
var Palette = []color.RGBA{Blue, Green, Magenta, Cyan, Yellow, {R: 255, G: 128, B: 0, A: 255}, {R: 128, G: 0, B: 255, A: 255}}

// NetColor returns a stable color for a given net id, cycling through
// Palette so the palette size doesn't bound the number of distinguishable
// nets in a rendered snapshot (it bounds how soon colors repeat).
func NetColor(netID int) color.RGBA {
	if netID < 0 {
		return Black
	}
	return Palette[netID%len(Palette)]
}
