package display

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/png"
	"io"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Glyph cell geometry of the text modes.
const (
	GLYPH_WIDTH  = 7
	GLYPH_HEIGHT = 13
)

var (
	imageBackground = color.RGBA{0x10, 0x10, 0x30, 0xff}
	imageForeground = color.RGBA{0xd0, 0xd0, 0xd0, 0xff}
)

// Image renders the display into an RGBA image. Text cells are drawn with
// a fixed 7x13 font; pixel cells index the Plan 9 palette.
type Image struct {
	mu      sync.RWMutex
	cols    int
	rows    int
	pixel   bool
	drawing *image.RGBA
	frame   *image.RGBA
	frames  int
	face    font.Face
}

var _ Sink = (*Image)(nil)

// NewImage creates an image display.
func NewImage() *Image {
	return &Image{face: basicfont.Face7x13}
}

// SetMode allocates the frame for the plane geometry.
func (img *Image) SetMode(cols, rows int, pixel bool) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	bounds := image.Rect(0, 0, cols*GLYPH_WIDTH, rows*GLYPH_HEIGHT)
	if pixel {
		bounds = image.Rect(0, 0, cols, rows)
	}

	img.cols = cols
	img.rows = rows
	img.pixel = pixel
	img.drawing = image.NewRGBA(bounds)
	img.frame = image.NewRGBA(bounds)
	draw.Draw(img.drawing, bounds, image.NewUniform(imageBackground), image.Point{}, draw.Src)
	draw.Draw(img.frame, bounds, image.NewUniform(imageBackground), image.Point{}, draw.Src)

	return nil
}

// Put draws a cell.
func (img *Image) Put(x, y int, value byte) {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.drawing == nil || x < 0 || y < 0 || x >= img.cols || y >= img.rows {
		return
	}

	if img.pixel {
		img.drawing.Set(x, y, palette.Plan9[value])
		return
	}

	cell := image.Rect(x*GLYPH_WIDTH, y*GLYPH_HEIGHT, (x+1)*GLYPH_WIDTH, (y+1)*GLYPH_HEIGHT)
	draw.Draw(img.drawing, cell, image.NewUniform(imageBackground), image.Point{}, draw.Src)
	if value <= ' ' || value > '~' {
		return
	}

	drawer := font.Drawer{
		Dst:  img.drawing,
		Src:  image.NewUniform(imageForeground),
		Face: img.face,
		Dot:  fixed.P(x*GLYPH_WIDTH, y*GLYPH_HEIGHT+basicfont.Face7x13.Ascent),
	}
	drawer.DrawString(string(rune(value)))
}

// Flush publishes the drawn frame.
func (img *Image) Flush() error {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.drawing == nil {
		return ErrNoMode
	}

	copy(img.frame.Pix, img.drawing.Pix)
	img.frames++

	return nil
}

// Frames returns the number of published frames.
func (img *Image) Frames() int {
	img.mu.RLock()
	defer img.mu.RUnlock()

	return img.frames
}

// Bounds returns the size of the frame, or an empty rectangle if no mode
// is set.
func (img *Image) Bounds() image.Rectangle {
	img.mu.RLock()
	defer img.mu.RUnlock()

	if img.frame == nil {
		return image.Rectangle{}
	}
	return img.frame.Bounds()
}

// CopyTo copies the last published frame into pix, in RGBA order.
func (img *Image) CopyTo(pix []byte) (n int) {
	img.mu.RLock()
	defer img.mu.RUnlock()

	if img.frame == nil {
		return
	}
	return copy(pix, img.frame.Pix)
}

// Frame returns a copy of the last published frame.
func (img *Image) Frame() (frame *image.RGBA) {
	img.mu.RLock()
	defer img.mu.RUnlock()

	if img.frame == nil {
		return
	}

	frame = image.NewRGBA(img.frame.Bounds())
	copy(frame.Pix, img.frame.Pix)
	return
}

// WritePNG encodes the last published frame as a PNG.
func (img *Image) WritePNG(w io.Writer) (err error) {
	frame := img.Frame()
	if frame == nil {
		err = ErrNoMode
		return
	}

	return png.Encode(w, frame)
}
