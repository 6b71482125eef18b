package terminal

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/terminfo"
	"github.com/pkg/errors"

	"github.com/byut/redback/core"
	"github.com/byut/redback/reactor"
)

// pumpStopTimeout bounds the wait for the event pump after Fini
const pumpStopTimeout = 100 * time.Millisecond

// Screen is a curses-style session over a tcell screen
//
// Regions copy themselves into the virtual screen on NoutRefresh; Update
// commits everything copied since the last Update in one write and parks
// the cursor where the last refreshed region left it
type Screen struct {
	s     tcell.Screen
	style tcell.Style

	cursorX, cursorY int
	cursorVisible    bool

	keys *KeyQueue
	done chan struct{}
}

// openScreen is the default ScreenFactory
func openScreen(out io.Writer, in io.Reader, termType string) (tcell.Screen, error) {
	var (
		ti  *terminfo.Terminfo
		err error
	)
	if termType != "" {
		ti, err = tcell.LookupTerminfo(termType)
		if err != nil {
			return nil, errors.Wrapf(err, "terminal type %q", termType)
		}
	}

	inF, ok := in.(*os.File)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedDevice, "input %T", in)
	}
	tty, err := newStreamTty(inF, out)
	if err != nil {
		return nil, errors.Wrap(err, "open tty")
	}
	return tcell.NewTerminfoScreenFromTtyTerminfo(tty, ti)
}

// newScreen initializes s and starts its event pump
func newScreen(s tcell.Screen) (*Screen, error) {
	if err := s.Init(); err != nil {
		return nil, errors.Wrap(err, "screen init")
	}

	style := tcell.StyleDefault
	if s.Colors() > 0 {
		style = style.Foreground(tcell.ColorWhite).Background(tcell.ColorReset)
	}
	s.SetStyle(style)
	s.Clear()

	sc := &Screen{
		s:     s,
		style: style,
		keys:  &KeyQueue{},
		done:  make(chan struct{}),
	}
	core.Go(func() { s.Fini() }, sc.pump)
	return sc, nil
}

// pump moves tcell events into the key queue until Fini
func (sc *Screen) pump() {
	defer close(sc.done)
	for {
		ev := sc.s.PollEvent()
		if ev == nil {
			return
		}
		sc.keys.push(ev)
	}
}

// Size returns columns and rows
func (sc *Screen) Size() (cols, rows int) {
	return sc.s.Size()
}

// Keys is the input event queue; a read event on it fires while events are queued
func (sc *Screen) Keys() *KeyQueue {
	return sc.keys
}

// NewRegion creates a region of rows x cols at row y, column x
func (sc *Screen) NewRegion(rows, cols, y, x int) (*Region, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.Wrapf(ErrScreenTooSmall, "region %dx%d", rows, cols)
	}
	r := &Region{sc: sc}
	r.resize(rows, cols, y, x)
	return r, nil
}

// SetCursorVisible shows or hides the cursor immediately
func (sc *Screen) SetCursorVisible(visible bool) {
	sc.cursorVisible = visible
	sc.placeCursor()
	sc.s.Show()
}

// Update commits the virtual screen
func (sc *Screen) Update() {
	sc.placeCursor()
	sc.s.Show()
}

// Sync redraws the whole screen, used after a resize
func (sc *Screen) Sync() {
	sc.placeCursor()
	sc.s.Sync()
}

// Clear blanks the virtual screen
func (sc *Screen) Clear() {
	sc.s.Clear()
}

// Beep rings the terminal bell
func (sc *Screen) Beep() {
	sc.s.Beep()
}

// Close ends the session and waits briefly for the event pump
func (sc *Screen) Close() {
	sc.s.Fini()
	select {
	case <-sc.done:
	case <-time.After(pumpStopTimeout):
	}
}

func (sc *Screen) placeCursor() {
	if sc.cursorVisible {
		sc.s.ShowCursor(sc.cursorX, sc.cursorY)
	} else {
		sc.s.HideCursor()
	}
}

// KeyQueue buffers tcell events for the reactor goroutine
// It is a reactor.Notifier fed by the screen event pump
type KeyQueue struct {
	reactor.Trigger

	mu     sync.Mutex
	events []tcell.Event
}

func (q *KeyQueue) push(ev tcell.Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
	q.Fire()
}

func (q *KeyQueue) pop() (tcell.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil, false
	}
	ev := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return ev, true
}

// Len returns the number of queued events
func (q *KeyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Readable implements reactor.Source
func (q *KeyQueue) Readable() bool {
	return q.Len() > 0
}

var _ reactor.Notifier = (*KeyQueue)(nil)
