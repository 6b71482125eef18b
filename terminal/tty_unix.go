//go:build unix

package terminal

import (
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/byut/redback/core"
)

// streamTty is a tcell.Tty that reads keys from a terminal input file and
// writes the screen to the given output stream
// Raw mode is set on the input descriptor; geometry comes from the output
// when it is a terminal, else from the input
type streamTty struct {
	in     *os.File
	out    io.Writer
	fd     int
	sizeFd int

	mu    sync.Mutex
	saved *term.State
	sig   chan os.Signal
	cb    func()
	stop  chan struct{}
	wg    sync.WaitGroup
}

func newStreamTty(in *os.File, out io.Writer) (*streamTty, error) {
	if out == nil {
		return nil, errors.Wrap(ErrUnsupportedDevice, "nil output")
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.Wrapf(ErrUnsupportedDevice, "input %s is not a terminal", in.Name())
	}

	t := &streamTty{
		in:     in,
		out:    out,
		fd:     fd,
		sizeFd: fd,
		sig:    make(chan os.Signal, 1),
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.sizeFd = int(f.Fd())
	}
	return t, nil
}

func (t *streamTty) Read(b []byte) (int, error) {
	return t.in.Read(b)
}

func (t *streamTty) Write(b []byte) (int, error) {
	return t.out.Write(b)
}

// Close leaves both streams open; they belong to the caller
func (t *streamTty) Close() error {
	return nil
}

func (t *streamTty) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_ = t.in.SetReadDeadline(time.Time{})
	saved, err := term.MakeRaw(t.fd)
	if err != nil {
		return errors.Wrap(err, "raw mode")
	}
	t.saved = saved

	stop := make(chan struct{})
	t.stop = stop
	t.wg.Add(1)
	core.Go(nil, func() {
		defer t.wg.Done()
		t.forwardResize(stop)
	})
	signal.Notify(t.sig, unix.SIGWINCH)
	return nil
}

// Drain wakes a reader blocked in Read so tcell's input loop can exit
func (t *streamTty) Drain() error {
	_ = t.in.SetReadDeadline(time.Now())
	_ = unix.SetNonblock(t.fd, true)

	tio, err := unix.IoctlGetTermios(t.fd, ioctlReadTermios)
	if err != nil {
		return errors.Wrap(err, "get termios")
	}
	tio.Cc[unix.VMIN] = 0
	tio.Cc[unix.VTIME] = 0
	return errors.Wrap(unix.IoctlSetTermios(t.fd, ioctlWriteTermios, tio), "set termios")
}

func (t *streamTty) Stop() error {
	t.mu.Lock()
	if err := term.Restore(t.fd, t.saved); err != nil {
		t.mu.Unlock()
		return errors.Wrap(err, "restore mode")
	}
	_ = t.in.SetReadDeadline(time.Now())
	signal.Stop(t.sig)
	close(t.stop)
	t.mu.Unlock()

	t.wg.Wait()
	_ = unix.SetNonblock(t.fd, false)
	return nil
}

func (t *streamTty) WindowSize() (tcell.WindowSize, error) {
	ws, err := unix.IoctlGetWinsize(t.sizeFd, unix.TIOCGWINSZ)
	if err != nil {
		return tcell.WindowSize{}, errors.Wrap(err, "window size")
	}
	w, h := int(ws.Col), int(ws.Row)
	if w == 0 {
		w, _ = strconv.Atoi(os.Getenv("COLUMNS"))
	}
	if w == 0 {
		w = 80
	}
	if h == 0 {
		h, _ = strconv.Atoi(os.Getenv("LINES"))
	}
	if h == 0 {
		h = 25
	}
	return tcell.WindowSize{
		Width:       w,
		Height:      h,
		PixelWidth:  int(ws.Xpixel),
		PixelHeight: int(ws.Ypixel),
	}, nil
}

func (t *streamTty) NotifyResize(cb func()) {
	t.mu.Lock()
	t.cb = cb
	t.mu.Unlock()
}

func (t *streamTty) forwardResize(stop <-chan struct{}) {
	for {
		select {
		case <-t.sig:
			t.mu.Lock()
			cb := t.cb
			t.mu.Unlock()
			if cb != nil {
				cb()
			}
		case <-stop:
			return
		}
	}
}

var _ tcell.Tty = (*streamTty)(nil)
