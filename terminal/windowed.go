package terminal

import (
	"io"

	"github.com/pkg/errors"

	"github.com/byut/redback/channel"
)

// minRows fits the text view, a separator row and the text box
const minRows = 3

// Windowed splits the screen into a scrolling text view on top and a one-line
// text box at the bottom
//
// Device handles never leave the backend: hosts only see the text box line
// channel and the text view output channel
type Windowed struct {
	base

	screen *Screen
	view   *textView
	box    *textBox
}

// NewWindowed creates an unbound windowed terminal
func NewWindowed(r Reactor, opts ...Option) (*Windowed, error) {
	w := &Windowed{}
	b, err := newBase(r, w, opts)
	if err != nil {
		return nil, err
	}
	w.base = b
	return w, nil
}

// Setup implements Terminal
// out and in are handed to the screen factory; termType selects the terminfo entry
func (w *Windowed) Setup(out io.Writer, in io.Reader, termType string) error {
	if err := w.checkSetup(); err != nil {
		return err
	}

	s, err := w.opts.screen(out, in, termType)
	if err != nil {
		return errors.Wrap(err, "setup: screen")
	}
	sc, err := newScreen(s)
	if err != nil {
		return errors.Wrap(err, "setup: screen")
	}

	cols, rows := sc.Size()
	if rows < minRows || cols < 1 {
		sc.Close()
		return errors.Wrapf(ErrScreenTooSmall, "setup: %dx%d", cols, rows)
	}

	// From here on partial resources are released by Restore
	w.screen = sc
	w.ready = true

	fail := func(err error, step string) error {
		w.screen.Close()
		w.screen = nil
		return errors.Wrap(err, "setup: "+step)
	}

	sc.SetCursorVisible(false)
	if err := w.registerSignal(); err != nil {
		return fail(err, "signal")
	}

	boxRegion, err := sc.NewRegion(1, cols, rows-1, 0)
	if err != nil {
		return fail(err, "text box")
	}
	w.box = &textBox{w: w, region: boxRegion, ch: channel.New()}
	w.box.ev = w.reactor.NewReadEvent(sc.Keys(), true, w.box.onReadable)

	viewRegion, err := sc.NewRegion(rows-2, cols, 0, 0)
	if err != nil {
		return fail(err, "text view")
	}
	viewRegion.ScrollOK(true)
	w.view = &textView{w: w, region: viewRegion, ch: channel.New(channel.NonBlocking())}
	w.view.ev = w.reactor.NewReadEvent(w.view.ch.Reader(), true, w.view.onReadable)
	if err := w.view.ev.Add(); err != nil {
		return fail(err, "text view")
	}

	viewRegion.NoutRefresh()
	boxRegion.NoutRefresh()
	sc.SetCursorVisible(true)
	sc.Update()

	w.opts.log.Debug("terminal: windowed ready", "cols", cols, "rows", rows)
	w.InputEnable()
	return nil
}

// Restore implements Terminal
func (w *Windowed) Restore() error {
	if w.closed {
		return ErrClosed
	}
	if !w.ready {
		return nil
	}

	if w.evSignal != nil {
		w.evSignal.Del()
		w.evSignal = nil
	}
	if w.box != nil {
		w.box.ev.Del()
		w.box.ch.Close()
		w.box = nil
	}
	if w.view != nil {
		w.view.ev.Del()
		w.view.ch.Close()
		w.view = nil
	}
	if w.screen != nil {
		w.screen.Close()
		w.screen = nil
	}

	w.stats.enabled.Store(false)
	w.ready = false
	w.opts.log.Debug("terminal: windowed restored")
	return nil
}

// Close implements Terminal
func (w *Windowed) Close() error {
	if w.closed {
		return nil
	}
	err := w.Restore()
	w.closed = true
	return err
}

// InputEnable implements Terminal
func (w *Windowed) InputEnable() {
	if !w.ready || w.box == nil || w.box.ev.Pending() {
		return
	}
	if err := w.box.ev.Add(); err != nil {
		w.opts.log.Error("terminal: enable input", "err", err)
		return
	}
	w.stats.enabled.Store(true)
}

// InputDisable implements Terminal
// Keys arriving meanwhile stay queued
func (w *Windowed) InputDisable() {
	if !w.ready || w.box == nil || !w.box.ev.Pending() {
		return
	}
	w.box.ev.Del()
	w.stats.enabled.Store(false)
	w.stats.suspended.Add(1)
}

// Input implements Terminal; nil before Setup
func (w *Windowed) Input() *channel.Reader {
	if w.box == nil {
		return nil
	}
	return w.box.ch.Reader()
}

// Output implements Terminal; nil before Setup
func (w *Windowed) Output() *channel.Writer {
	if w.view == nil {
		return nil
	}
	return w.view.ch.Writer()
}

// refocus parks the cursor back in the text box
func (w *Windowed) refocus() {
	w.box.region.NoutRefresh()
}

// relayout fits both regions to the current screen size
func (w *Windowed) relayout() {
	cols, rows := w.screen.Size()
	if rows < minRows || cols < 1 {
		w.opts.log.Debug("terminal: screen too small, layout kept", "cols", cols, "rows", rows)
		return
	}
	if vr, vc := w.view.region.Size(); vr == rows-2 && vc == cols {
		return
	}

	w.view.region.Move(rows-2, cols, 0, 0)
	w.box.region.Move(1, cols, rows-1, 0)
	w.box.redraw()

	w.screen.Clear()
	w.view.region.NoutRefresh()
	w.box.region.NoutRefresh()
	w.screen.Sync()
	w.opts.log.Debug("terminal: resized", "cols", cols, "rows", rows)
}

func (w *Windowed) ring() {
	if w.opts.bell != nil {
		w.opts.bell.Ring()
		return
	}
	w.screen.Beep()
}

var _ Terminal = (*Windowed)(nil)
