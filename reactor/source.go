package reactor

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Source is anything a read event can watch
// Readiness is level-triggered: Readable is asked once per dispatch round
type Source interface {
	Readable() bool
}

// FdSource is a Source backed by an OS descriptor
// Its descriptor joins the blocking poll(2) while a read event on it is active
type FdSource interface {
	Source
	Fd() uintptr
}

// Notifier is an in-process Source that announces new data
// Subscribe registers wake to be called, from any goroutine, after data becomes
// visible; the returned func cancels the subscription
type Notifier interface {
	Source
	Subscribe(wake func()) (cancel func())
}

// Trigger is an embeddable subscription list implementing the Subscribe half of Notifier
// Zero value is ready to use
type Trigger struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

// Subscribe implements Notifier
func (t *Trigger) Subscribe(wake func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.subs == nil {
		t.subs = make(map[int]func())
	}
	id := t.next
	t.next++
	t.subs[id] = wake

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Fire calls every subscriber. Must not be called with the owner's lock held
// if subscribers can call back into the owner
func (t *Trigger) Fire() {
	t.mu.Lock()
	fns := make([]func(), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// FileSource adapts an open file (tty, pipe, socket) for read events
type FileSource struct {
	f *os.File
}

// File wraps f as an FdSource
func File(f *os.File) *FileSource {
	return &FileSource{f: f}
}

// Fd implements FdSource
func (s *FileSource) Fd() uintptr {
	return s.f.Fd()
}

// Readable reports whether a read would not block, using a zero-timeout poll
// Hang-up counts as readable so the owner observes EOF
func (s *FileSource) Readable() bool {
	fds := []unix.PollFd{{Fd: int32(s.f.Fd()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n == 0 {
			return false
		}
		return fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
	}
}
