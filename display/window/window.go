//go:build !headless

package window

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ezrec/eira/display"
)

// Window shows the frames published by an image display.
type Window struct {
	Title   string         // Window title.
	Scale   int            // Integer window scale, 1 if unset.
	Source  *display.Image // Display to present.
	OnClose func()         // Called when the user closes the window.

	done  <-chan struct{}
	frame frame
	view  *ebiten.Image
}

// New creates a window presenting source.
func New(source *display.Image, title string) *Window {
	return &Window{
		Title:  title,
		Scale:  1,
		Source: source,
	}
}

// Run opens the window and blocks until it is closed or done is closed.
// It must be called from the main goroutine.
func (w *Window) Run(done <-chan struct{}) error {
	w.done = done

	scale := max(w.Scale, 1)
	ebiten.SetWindowSize(DEFAULT_WIDTH*scale, DEFAULT_HEIGHT*scale)
	ebiten.SetWindowTitle(w.Title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetWindowClosingHandled(true)

	return ebiten.RunGame(w)
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	if ebiten.IsWindowBeingClosed() {
		if w.OnClose != nil {
			w.OnClose()
		}
		return ebiten.Termination
	}

	select {
	case <-w.done:
		return ebiten.Termination
	default:
	}

	return nil
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	resized, ok := w.frame.refresh(w.Source)
	if !ok {
		return
	}
	if resized || w.view == nil || w.view.Bounds() != w.frame.bounds {
		w.view = ebiten.NewImage(w.frame.bounds.Dx(), w.frame.bounds.Dy())
	}
	w.view.WritePixels(w.frame.pix)
	screen.DrawImage(w.view, nil)
}

// Layout implements ebiten.Game.
func (w *Window) Layout(_, _ int) (int, int) {
	return layout(w.Source)
}
