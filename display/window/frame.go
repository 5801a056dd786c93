// Package window presents an image display in a desktop window.
package window

import (
	"image"

	"github.com/ezrec/eira/display"
)

// Default window geometry before the first mode set.
const (
	DEFAULT_WIDTH  = 640
	DEFAULT_HEIGHT = 480
)

// frame holds the last copy of a display's published pixels.
type frame struct {
	bounds image.Rectangle
	pix    []byte
}

// refresh copies the published frame of source. The buffer is regrown
// when the display geometry changes, reported by resized. ok is false
// if no complete frame could be copied.
func (fr *frame) refresh(source *display.Image) (resized bool, ok bool) {
	bounds := source.Bounds()
	if bounds.Empty() {
		return
	}

	if fr.pix == nil || bounds != fr.bounds {
		fr.bounds = bounds
		fr.pix = make([]byte, 4*bounds.Dx()*bounds.Dy())
		resized = true
	}

	ok = source.CopyTo(fr.pix) == len(fr.pix)
	return
}

// layout returns the logical screen size for source.
func layout(source *display.Image) (width, height int) {
	bounds := source.Bounds()
	if bounds.Empty() {
		return DEFAULT_WIDTH, DEFAULT_HEIGHT
	}
	return bounds.Dx(), bounds.Dy()
}
