//go:build unix

package terminal

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ttyMode remembers the termios state replaced by enterCbreak
type ttyMode struct {
	fd    int
	saved unix.Termios
}

// enterCbreak turns off canonical mode and echo on fd, keeping signal
// generation so Ctrl-C still raises SIGINT
// Returns nil, nil when fd is not a terminal
func enterCbreak(fd int) (*ttyMode, error) {
	if !term.IsTerminal(fd) {
		return nil, nil
	}

	t, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, errors.Wrap(err, "get termios")
	}
	m := &ttyMode{fd: fd, saved: *t}

	cbreak := *t
	cbreak.Lflag &^= unix.ICANON | unix.ECHO
	cbreak.Lflag |= unix.ISIG
	cbreak.Cc[unix.VMIN] = 1
	cbreak.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &cbreak); err != nil {
		return nil, errors.Wrap(err, "set termios")
	}
	return m, nil
}

func (m *ttyMode) restore() error {
	if err := unix.IoctlSetTermios(m.fd, ioctlWriteTermios, &m.saved); err != nil {
		return errors.Wrap(err, "restore termios")
	}
	return nil
}

// EmergencyReset writes the sequences leaving any screen mode to w and puts
// the controlling terminal back in cooked mode
// Use in panic recovery, when the session that changed the mode is unusable
func EmergencyReset(w io.Writer) {
	for _, seq := range seqEmergency {
		io.WriteString(w, seq)
	}
	if f, ok := w.(*os.File); ok {
		f.Sync()
	}

	// Escape sequences alone don't restore termios; best-effort, errors ignored
	resetTerminalMode()
}

// resetTerminalMode restores cooked mode through /dev/tty, which works even
// when stdin is redirected
func resetTerminalMode() {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return
	}
	defer tty.Close()

	fd := int(tty.Fd())
	t, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return
	}
	t.Lflag |= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Iflag |= unix.ICRNL
	unix.IoctlSetTermios(fd, ioctlWriteTermios, t)
}
