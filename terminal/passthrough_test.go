package terminal

import (
	"bytes"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byut/redback/channel"
	"github.com/byut/redback/reactor"
)

// passthroughHarness drives a Passthrough with a channel as keyboard
type passthroughHarness struct {
	t    *testing.T
	loop *reactor.Loop
	term *Passthrough
	keys *channel.Channel
	out  *bytes.Buffer
}

func newPassthroughHarness(t *testing.T, opts ...Option) *passthroughHarness {
	t.Helper()

	loop, err := reactor.New()
	require.NoError(t, err)
	t.Cleanup(func() { loop.Close() })

	p, err := NewPassthrough(loop, opts...)
	require.NoError(t, err)

	h := &passthroughHarness{
		t:    t,
		loop: loop,
		term: p,
		keys: channel.New(),
		out:  &bytes.Buffer{},
	}
	require.NoError(t, p.Setup(h.out, h.keys.Reader(), ""))
	t.Cleanup(func() { p.Close() })
	return h
}

// press queues keystrokes and runs the loop until idle
func (h *passthroughHarness) press(s string) {
	_, err := h.keys.Writer().WriteString(s)
	require.NoError(h.t, err)
	h.settle()
}

// print writes host output and runs the loop until idle
func (h *passthroughHarness) print(s string) {
	_, err := h.term.Output().WriteString(s)
	require.NoError(h.t, err)
	h.settle()
}

func (h *passthroughHarness) settle() {
	for i := 0; i < 4*LineBufferSize && h.loop.Dispatch(); i++ {
	}
}

func (h *passthroughHarness) inputEnabled() bool {
	return h.term.evInput != nil && h.term.evInput.Pending()
}

// readLine reads what the host sees on the input accessor
func (h *passthroughHarness) readLine() string {
	buf := make([]byte, 2*LineBufferSize)
	n, err := h.term.Input().Read(buf)
	require.NoError(h.t, err)
	return string(buf[:n])
}

// TestPassthroughEndToEnd verifies a typed line reaches the host and restore releases everything
func TestPassthroughEndToEnd(t *testing.T) {
	h := newPassthroughHarness(t)
	require.Equal(t, DefaultPrompt, h.out.String(), "initial prompt")

	h.press("hi\n")

	assert.Equal(t, "hi\n", h.readLine())
	assert.Equal(t, "> hi", h.out.String(), "keys echoed, newline not")

	require.NoError(t, h.term.Restore())
	assert.Zero(t, h.loop.Active(), "no interests after restore")
	assert.Nil(t, h.term.Input())
	assert.Nil(t, h.term.Output())
	assert.NoError(t, h.term.Restore(), "second restore is a no-op")
}

// TestPassthroughPartialLineHeld verifies nothing is forwarded before a newline
func TestPassthroughPartialLineHeld(t *testing.T) {
	h := newPassthroughHarness(t)
	h.press("abc\x01\x7f")

	assert.Zero(t, h.term.Input().Buffered())
	assert.Equal(t, "abc", string(h.term.line.Bytes()))
}

// TestPassthroughOutputFlush verifies input is re-enabled only after newline-terminated output
func TestPassthroughOutputFlush(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		enabled bool
	}{
		{name: "Partial output", output: "partial", enabled: false},
		{name: "Complete line", output: "line\n", enabled: true},
		{name: "Ends mid-line", output: "a\nb", enabled: false},
		{name: "Several lines", output: "a\nb\n", enabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newPassthroughHarness(t)
			h.out.Reset()

			h.print(tt.output)

			assert.Equal(t, tt.enabled, h.inputEnabled())
			want := string(seqClearLine) + tt.output
			if tt.enabled {
				want += DefaultPrompt
			}
			assert.Equal(t, want, h.out.String())
		})
	}
}

// TestPassthroughPromptReplay verifies the pending line is redrawn when input resumes
func TestPassthroughPromptReplay(t *testing.T) {
	h := newPassthroughHarness(t)
	h.press("ab")

	h.print("x")
	require.False(t, h.inputEnabled(), "suspended after partial output")

	// Keys typed while suspended stay queued in the device
	h.press("c")
	require.Equal(t, "ab", string(h.term.line.Bytes()))

	h.out.Reset()
	h.print("\n")
	assert.True(t, strings.HasPrefix(h.out.String(), "\n> ab"), "prompt replay, got %q", h.out.String())
	assert.Equal(t, "abc", string(h.term.line.Bytes()), "queued key consumed after resume")
}

// TestPassthroughHostCloseResumesInput verifies closing the output end gives the keyboard back
func TestPassthroughHostCloseResumesInput(t *testing.T) {
	tests := []struct {
		name   string
		before string
	}{
		{name: "Nothing written", before: ""},
		{name: "Partial line written", before: "bye"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newPassthroughHarness(t)
			h.press("ab")

			if tt.before != "" {
				_, err := h.term.Output().WriteString(tt.before)
				require.NoError(t, err)
			}
			require.NoError(t, h.term.Output().Close())
			h.settle()

			assert.True(t, h.inputEnabled(), "input enabled after host close")
			assert.True(t, strings.HasSuffix(h.out.String(), "> ab"), "prompt replayed, got %q", h.out.String())

			h.press("c\n")
			assert.Equal(t, "abc\n", h.readLine())
		})
	}
}

// TestPassthroughLineFull verifies over-long lines ring the bell instead of overflowing
func TestPassthroughLineFull(t *testing.T) {
	rings := 0
	h := newPassthroughHarness(t, WithBell(BellFunc(func() { rings++ })))

	h.press(strings.Repeat("a", LineBufferSize-1) + "bc")
	assert.Equal(t, 2, rings, "rejected keys")

	h.press("\n")
	line := h.readLine()
	assert.Len(t, line, LineBufferSize)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

// TestPassthroughDefaultBell verifies BEL reaches the device without a custom bell
func TestPassthroughDefaultBell(t *testing.T) {
	h := newPassthroughHarness(t, WithPrompt(""))
	h.press(strings.Repeat("a", LineBufferSize))

	assert.True(t, bytes.HasSuffix(h.out.Bytes(), seqBell), "BEL at end of output")
}

// TestPassthroughInputEOF verifies a closed device stops input for good
func TestPassthroughInputEOF(t *testing.T) {
	h := newPassthroughHarness(t)
	require.NoError(t, h.keys.Writer().Close())
	h.settle()
	require.False(t, h.inputEnabled(), "input disabled after EOF")

	h.print("done\n")
	assert.False(t, h.inputEnabled(), "output flush must not re-enable a closed device")
}

// TestPassthroughSignalCallback verifies the interrupt reaches the callback on the loop goroutine
func TestPassthroughSignalCallback(t *testing.T) {
	h := newPassthroughHarness(t, WithInterrupt(syscall.SIGUSR1))

	var (
		gotTerm Terminal
		gotSig  os.Signal
	)
	h.term.SetSignalCallback(func(term Terminal, sig os.Signal) {
		gotTerm, gotSig = term, sig
	})

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
	require.Eventually(t, h.loop.HasPendingSignals, 5*time.Second, time.Millisecond)
	h.loop.Dispatch()

	assert.Equal(t, syscall.SIGUSR1, gotSig)
	assert.Equal(t, Terminal(h.term), gotTerm)
}

// TestPassthroughLifecycle verifies setup and teardown ordering errors
func TestPassthroughLifecycle(t *testing.T) {
	_, err := NewPassthrough(nil)
	assert.ErrorIs(t, err, ErrNilReactor)

	h := newPassthroughHarness(t)
	assert.ErrorIs(t, h.term.Setup(h.out, h.keys.Reader(), ""), ErrAlreadySetup)

	require.NoError(t, h.term.Close())
	assert.NoError(t, h.term.Close(), "second close is a no-op")
	assert.ErrorIs(t, h.term.Setup(h.out, h.keys.Reader(), ""), ErrClosed)
	assert.ErrorIs(t, h.term.Restore(), ErrClosed)

	loop, err := reactor.New()
	require.NoError(t, err)
	defer loop.Close()

	p, err := NewPassthrough(loop)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Setup(&bytes.Buffer{}, strings.NewReader("x"), ""), ErrUnsupportedDevice)
	assert.NoError(t, p.Restore(), "restore before setup is a no-op")
}
