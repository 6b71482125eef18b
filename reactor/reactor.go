package reactor

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	// ErrNoEvents is returned by Run when no active event is left to wait on
	ErrNoEvents = errors.New("reactor: no active events")
	// ErrClosed is returned when using a closed loop
	ErrClosed = errors.New("reactor: loop closed")
)

type delivery struct {
	ev  *Event
	gen uint64
	sig os.Signal
}

// Loop is a single-threaded readiness reactor
// All callbacks run sequentially on the goroutine calling Run or Dispatch.
// Only wake-ups cross goroutines: notifier writes, signal forwarding, Break
type Loop struct {
	log *log.Logger

	active []*Event // registration order

	wakeR int
	wakeW int

	mu      sync.Mutex
	signals []delivery

	broken atomic.Bool
	closed atomic.Bool
}

// Option configures a Loop
type Option func(*Loop)

// WithLogger sets the loop logger
func WithLogger(l *log.Logger) Option {
	return func(loop *Loop) {
		if l != nil {
			loop.log = l
		}
	}
}

// New creates a loop with its wake-up pipe
func New(opts ...Option) (*Loop, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, errors.Wrap(err, "reactor: wake pipe")
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, errors.Wrap(err, "reactor: wake pipe")
		}
	}

	l := &Loop{
		log:   log.New(io.Discard),
		wakeR: p[0],
		wakeW: p[1],
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// NewReadEvent creates an inactive interest in src becoming readable
func (l *Loop) NewReadEvent(src Source, persist bool, cb ReadCallback) *Event {
	return &Event{
		loop:    l,
		kind:    kindRead,
		src:     src,
		persist: persist,
		onRead:  cb,
	}
}

// NewSignalEvent creates an inactive interest in delivery of sig
func (l *Loop) NewSignalEvent(sig os.Signal, persist bool, cb SignalCallback) *Event {
	return &Event{
		loop:     l,
		kind:     kindSignal,
		sig:      sig,
		persist:  persist,
		onSignal: cb,
	}
}

// Active returns the number of active events
func (l *Loop) Active() int {
	return len(l.active)
}

// Break stops Run after the callback currently executing returns
// Safe to call from any goroutine
func (l *Loop) Break() {
	l.broken.Store(true)
	l.wake()
}

// Run dispatches events until Break, ctx cancellation, or no event is left
func (l *Loop) Run(ctx context.Context) error {
	if l.closed.Load() {
		return ErrClosed
	}
	l.broken.Store(false)

	stop := context.AfterFunc(ctx, l.Break)
	defer stop()

	l.log.Debug("reactor: run", "events", len(l.active))
	defer l.log.Debug("reactor: stopped")

	for !l.broken.Load() {
		if l.Dispatch() {
			continue
		}
		if l.broken.Load() {
			break
		}
		if len(l.active) == 0 {
			return ErrNoEvents
		}
		if err := l.wait(); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Dispatch runs one non-blocking round: pending signals first, then every
// read event whose source is readable, in registration order
// Returns true if any callback ran
func (l *Loop) Dispatch() bool {
	fired := false

	for _, d := range l.takeSignals() {
		e := d.ev
		if !e.active || e.gen != d.gen {
			continue
		}
		if !e.persist {
			e.Del()
		}
		fired = true
		e.onSignal(e, d.sig)
		if l.broken.Load() {
			return true
		}
	}

	round := make([]*Event, len(l.active))
	copy(round, l.active)

	for _, e := range round {
		// Re-checked per event: an earlier callback may have deleted it
		if e.kind != kindRead || !e.active {
			continue
		}
		if !e.src.Readable() {
			continue
		}
		if !e.persist {
			e.Del()
		}
		fired = true
		e.onRead(e)
		if l.broken.Load() {
			return true
		}
	}

	return fired
}

// Close deletes all events and releases the wake-up pipe
func (l *Loop) Close() error {
	if l.closed.Load() {
		return nil
	}
	for len(l.active) > 0 {
		l.active[len(l.active)-1].Del()
	}
	l.closed.Store(true)

	errR := unix.Close(l.wakeR)
	errW := unix.Close(l.wakeW)
	if errR != nil {
		return errors.Wrap(errR, "reactor: close wake pipe")
	}
	if errW != nil {
		return errors.Wrap(errW, "reactor: close wake pipe")
	}
	return nil
}

func (l *Loop) remove(e *Event) {
	for i, a := range l.active {
		if a == e {
			l.active = append(l.active[:i], l.active[i+1:]...)
			return
		}
	}
}

func (l *Loop) postSignal(d delivery) {
	l.mu.Lock()
	l.signals = append(l.signals, d)
	l.mu.Unlock()
	l.wake()
}

func (l *Loop) takeSignals() []delivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.signals) == 0 {
		return nil
	}
	out := l.signals
	l.signals = nil
	return out
}

// HasPendingSignals reports whether a signal delivery is queued for the next round
func (l *Loop) HasPendingSignals() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.signals) > 0
}

// wake makes a blocked poll return. A full pipe already guarantees that
func (l *Loop) wake() {
	if l.closed.Load() {
		return
	}
	_, _ = unix.Write(l.wakeW, []byte{1})
}

// wait blocks in poll(2) on the wake pipe and every active descriptor source
func (l *Loop) wait() error {
	fds := []unix.PollFd{{Fd: int32(l.wakeR), Events: unix.POLLIN}}
	for _, e := range l.active {
		if e.kind != kindRead {
			continue
		}
		if fs, ok := e.src.(FdSource); ok {
			fds = append(fds, unix.PollFd{Fd: int32(fs.Fd()), Events: unix.POLLIN})
		}
	}

	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			if l.broken.Load() {
				return nil
			}
			continue
		}
		if err != nil {
			return errors.Wrap(err, "reactor: poll")
		}
		break
	}

	l.drainWake()
	return nil
}

func (l *Loop) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(l.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}
