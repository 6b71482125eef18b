package terminal

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// lockedBuffer collects screen output written from tcell's goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// openPty returns the slave end of a fresh pseudo-terminal sized cols x rows
func openPty(t *testing.T, cols, rows int) *os.File {
	t.Helper()

	master, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Skipf("no pseudo-terminals: %v", err)
	}
	t.Cleanup(func() { unix.Close(master) })

	require.NoError(t, unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0))
	n, err := unix.IoctlGetInt(master, unix.TIOCGPTN)
	require.NoError(t, err)
	require.NoError(t, unix.IoctlSetWinsize(master, unix.TIOCSWINSZ, &unix.Winsize{
		Col: uint16(cols),
		Row: uint16(rows),
	}))

	slave, err := os.OpenFile(fmt.Sprintf("/dev/pts/%d", n), os.O_RDWR|unix.O_NOCTTY, 0)
	require.NoError(t, err)
	t.Cleanup(func() { slave.Close() })
	return slave
}

func TestOpenScreenWritesToGivenOutput(t *testing.T) {
	slave := openPty(t, 40, 10)
	out := &lockedBuffer{}

	s, err := openScreen(out, slave, "xterm")
	require.NoError(t, err)
	sc, err := newScreen(s)
	require.NoError(t, err)
	defer sc.Close()

	cols, rows := sc.Size()
	assert.Equal(t, 40, cols, "geometry from the input terminal")
	assert.Equal(t, 10, rows)

	r, err := sc.NewRegion(1, 10, 0, 0)
	require.NoError(t, err)
	require.NoError(t, r.AddString("hi"))
	r.NoutRefresh()
	sc.Update()

	assert.True(t, strings.Contains(out.String(), "hi"), "screen drawn to out, got %q", out.String())
}

func TestOpenScreenRejectsNonTerminalInput(t *testing.T) {
	_, err := openScreen(&bytes.Buffer{}, strings.NewReader("x"), "xterm")
	assert.ErrorIs(t, err, ErrUnsupportedDevice, "non-file input")

	f, err := os.CreateTemp(t.TempDir(), "input")
	require.NoError(t, err)
	defer f.Close()
	_, err = openScreen(&bytes.Buffer{}, f, "xterm")
	assert.ErrorIs(t, err, ErrUnsupportedDevice, "regular file input")

	slave := openPty(t, 40, 10)
	_, err = openScreen(nil, slave, "xterm")
	assert.ErrorIs(t, err, ErrUnsupportedDevice, "nil output")
}
