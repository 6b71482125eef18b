package terminal

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/byut/redback/channel"
	"github.com/byut/redback/reactor"
	"github.com/byut/redback/status"
)

// Terminal is one interactive terminal session bound to a reactor
//
// Lifecycle:
//  1. New - allocate, no OS side effects
//  2. Setup(out, in, termType) - terminal mode, channels, reactor interests
//  3. [reactor runs; callbacks drive input and output]
//  4. Restore - undo Setup; a second call is a no-op
//  5. Close - free; restores first if needed
type Terminal interface {
	// Setup binds the session to the real output and input devices
	// termType names a terminal type (e.g. "xterm"), empty for the environment default
	Setup(out io.Writer, in io.Reader, termType string) error

	// Restore deregisters every interest, closes the channels and returns the
	// device to its previous mode
	Restore() error

	// Close releases the session
	Close() error

	// InputEnable resumes keystroke processing
	InputEnable()

	// InputDisable suspends keystroke processing
	InputDisable()

	// Input is the read end carrying lines submitted by the user, newline included
	Input() *channel.Reader

	// Output is the write end whose bytes are rendered on the device
	Output() *channel.Writer

	// SetSignalCallback registers the callback run when the interrupt signal fires
	SetSignalCallback(cb SignalCallback)
}

// SignalCallback runs synchronously on the reactor goroutine
type SignalCallback func(t Terminal, sig os.Signal)

// Reactor is the part of the event loop the terminal registers interests with
// Satisfied by *reactor.Loop
type Reactor interface {
	NewReadEvent(src reactor.Source, persist bool, cb reactor.ReadCallback) *reactor.Event
	NewSignalEvent(sig os.Signal, persist bool, cb reactor.SignalCallback) *reactor.Event
}

// Kind selects a backend
type Kind uint8

const (
	// KindWindowed splits the screen into an output view and an input line
	KindWindowed Kind = iota
	// KindPassthrough writes straight to the device with a line-editing prompt
	KindPassthrough
)

// String returns the name accepted by ParseKind
func (k Kind) String() string {
	switch k {
	case KindWindowed:
		return "windowed"
	case KindPassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// ParseKind resolves a backend name
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windowed", "window", "curses":
		return KindWindowed, nil
	case "passthrough", "raw":
		return KindPassthrough, nil
	default:
		return 0, errors.Errorf("unknown terminal backend %q", name)
	}
}

// New creates a terminal of the given kind on top of r
// The caller keeps ownership of r, which must outlive the terminal
func New(kind Kind, r Reactor, opts ...Option) (Terminal, error) {
	switch kind {
	case KindPassthrough:
		return NewPassthrough(r, opts...)
	case KindWindowed:
		return NewWindowed(r, opts...)
	default:
		return nil, errors.Errorf("unknown terminal backend %d", kind)
	}
}

// base holds the lifecycle state shared by both backends
type base struct {
	reactor Reactor
	opts    settings
	self    Terminal

	onSignal SignalCallback
	evSignal *reactor.Event

	stats stats

	ready  bool
	closed bool
}

// stats caches the registry entries updated from reactor callbacks
type stats struct {
	echoed    *atomic.Int64
	rejected  *atomic.Int64
	lines     *atomic.Int64
	outBytes  *atomic.Int64
	flushes   *atomic.Int64
	suspended *atomic.Int64
	enabled   *atomic.Bool
}

func newStats(r *status.Registry) stats {
	return stats{
		echoed:    r.Counter(status.KeysEchoed),
		rejected:  r.Counter(status.KeysRejected),
		lines:     r.Counter(status.LinesSubmitted),
		outBytes:  r.Counter(status.OutputBytes),
		flushes:   r.Counter(status.OutputFlushes),
		suspended: r.Counter(status.InputSuspended),
		enabled:   r.Flag(status.InputEnabled),
	}
}

func newBase(r Reactor, self Terminal, opts []Option) (base, error) {
	if r == nil {
		return base{}, ErrNilReactor
	}
	o := newSettings(opts)
	return base{
		reactor: r,
		opts:    o,
		self:    self,
		stats:   newStats(o.metrics),
	}, nil
}

// SetSignalCallback implements Terminal
func (b *base) SetSignalCallback(cb SignalCallback) {
	b.onSignal = cb
}

func (b *base) checkSetup() error {
	if b.closed {
		return ErrClosed
	}
	if b.ready {
		return ErrAlreadySetup
	}
	return nil
}

func (b *base) registerSignal() error {
	b.evSignal = b.reactor.NewSignalEvent(b.opts.interrupt, true, func(_ *reactor.Event, sig os.Signal) {
		b.raise(sig)
	})
	return b.evSignal.Add()
}

func (b *base) raise(sig os.Signal) {
	b.opts.log.Debug("terminal: signal", "signal", sig)
	if b.onSignal != nil {
		b.onSignal(b.self, sig)
	}
}

// inputSource resolves the reactor source watched for keystrokes
func inputSource(in io.Reader) (reactor.Source, error) {
	switch v := in.(type) {
	case reactor.Source:
		return v, nil
	case *os.File:
		return reactor.File(v), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedDevice, "input %T", in)
	}
}

// must panics on invariant violations inside reactor callbacks
// The panic is recovered by core.Recover, which restores the terminal
func must(err error, what string) {
	if err != nil {
		panic(errors.Wrap(err, what))
	}
}

func isPrintable(c byte) bool {
	return c >= 32 && c <= 126
}
