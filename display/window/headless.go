//go:build headless

package window

import (
	"github.com/ezrec/eira/display"
)

// Window is unavailable in headless builds.
type Window struct {
	Title   string
	Scale   int
	Source  *display.Image
	OnClose func()
}

// New creates a window presenting source.
func New(source *display.Image, title string) *Window {
	return &Window{Title: title, Scale: 1, Source: source}
}

// Run fails; headless builds have no window system.
func (w *Window) Run(done <-chan struct{}) error {
	return display.ErrUnsupported
}
