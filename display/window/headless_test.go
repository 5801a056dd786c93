//go:build headless

package window

import (
	"image/color"
	"image/color/palette"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/eira/display"
)

func TestHeadlessWindow(t *testing.T) {
	assert := assert.New(t)

	img := display.NewImage()
	w := New(img, "eira")
	assert.Equal("eira", w.Title)
	assert.Equal(1, w.Scale)
	assert.Same(img, w.Source)

	done := make(chan struct{})
	close(done)
	assert.ErrorIs(w.Run(done), display.ErrUnsupported)
}

func TestFrameRefresh(t *testing.T) {
	assert := assert.New(t)

	img := display.NewImage()
	var fr frame

	resized, ok := fr.refresh(img)
	assert.False(resized)
	assert.False(ok)
	assert.Nil(fr.pix)

	width, height := layout(img)
	assert.Equal(DEFAULT_WIDTH, width)
	assert.Equal(DEFAULT_HEIGHT, height)

	assert.NoError(img.SetMode(4, 3, true))
	img.Put(1, 2, 0xff)
	assert.NoError(img.Flush())

	resized, ok = fr.refresh(img)
	assert.True(resized)
	assert.True(ok)
	assert.Equal(img.Bounds(), fr.bounds)
	assert.Len(fr.pix, 4*4*3)

	want := color.RGBAModel.Convert(palette.Plan9[0xff]).(color.RGBA)
	offset := 4 * (2*4 + 1)
	assert.Equal([]byte{want.R, want.G, want.B, want.A}, fr.pix[offset:offset+4])

	width, height = layout(img)
	assert.Equal(4, width)
	assert.Equal(3, height)

	// Unchanged geometry reuses the buffer and picks up new frames.
	pix := fr.pix
	img.Put(0, 0, 0xff)
	assert.NoError(img.Flush())
	resized, ok = fr.refresh(img)
	assert.False(resized)
	assert.True(ok)
	assert.Same(&pix[0], &fr.pix[0])
	assert.Equal([]byte{want.R, want.G, want.B, want.A}, fr.pix[0:4])

	// A mode change regrows it.
	assert.NoError(img.SetMode(40, 12, false))
	assert.NoError(img.Flush())
	resized, ok = fr.refresh(img)
	assert.True(resized)
	assert.True(ok)
	assert.Len(fr.pix, 4*40*display.GLYPH_WIDTH*12*display.GLYPH_HEIGHT)
}
