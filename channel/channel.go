// Package channel implements an in-process, unidirectional loopback byte stream.
//
// A Channel turns a direct write into a readiness event: the Reader end is a
// reactor.Notifier, so a read event registered on it fires once bytes written
// to the Writer end are visible. Delivery is FIFO and lossless.
package channel

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/byut/redback/reactor"
)

// ErrWouldBlock is returned by a non-blocking Reader when no byte is buffered
var ErrWouldBlock = errors.New("channel: read would block")

// Channel is a loopback byte pipe with a read end and a write end
type Channel struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buf     bytes.Buffer
	rClosed bool
	wClosed bool

	nonBlocking bool
	trigger     reactor.Trigger

	r Reader
	w Writer
}

// Option configures a Channel
type Option func(*Channel)

// NonBlocking makes reads on an empty, open channel fail with ErrWouldBlock
func NonBlocking() Option {
	return func(c *Channel) {
		c.nonBlocking = true
	}
}

// New creates an open Channel
func New(opts ...Option) *Channel {
	c := &Channel{}
	c.cond = sync.NewCond(&c.mu)
	c.r.c = c
	c.w.c = c
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reader returns the read end
func (c *Channel) Reader() *Reader {
	return &c.r
}

// Writer returns the write end
func (c *Channel) Writer() *Writer {
	return &c.w
}

// Close closes both ends
func (c *Channel) Close() error {
	c.mu.Lock()
	c.rClosed = true
	c.wClosed = true
	c.buf.Reset()
	c.cond.Broadcast()
	c.mu.Unlock()

	c.trigger.Fire()
	return nil
}

// Reader is the read end of a Channel
type Reader struct {
	c *Channel
}

// Read reads buffered bytes in FIFO order
// An empty channel blocks until a write or close, or returns ErrWouldBlock in
// non-blocking mode. After the writer closed and the buffer drained, Read returns io.EOF
func (r *Reader) Read(p []byte) (int, error) {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(p) == 0 {
		return 0, nil
	}

	for c.buf.Len() == 0 {
		switch {
		case c.rClosed:
			return 0, io.ErrClosedPipe
		case c.wClosed:
			return 0, io.EOF
		case c.nonBlocking:
			return 0, ErrWouldBlock
		}
		c.cond.Wait()
	}
	if c.rClosed {
		return 0, io.ErrClosedPipe
	}

	return c.buf.Read(p)
}

// Close closes the read end; later writes fail with io.ErrClosedPipe
func (r *Reader) Close() error {
	c := r.c
	c.mu.Lock()
	c.rClosed = true
	c.buf.Reset()
	c.cond.Broadcast()
	c.mu.Unlock()
	return nil
}

// Buffered returns the number of unread bytes
func (r *Reader) Buffered() int {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Len()
}

// Readable implements reactor.Source
// A closed writer counts as readable, as with pipes, so the owner observes EOF
func (r *Reader) Readable() bool {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rClosed {
		return false
	}
	return c.buf.Len() > 0 || c.wClosed
}

// Subscribe implements reactor.Notifier
func (r *Reader) Subscribe(wake func()) func() {
	return r.c.trigger.Subscribe(wake)
}

// Writer is the write end of a Channel
type Writer struct {
	c *Channel
}

// Write appends p; subscribers are woken after the bytes are visible
func (w *Writer) Write(p []byte) (int, error) {
	c := w.c
	c.mu.Lock()
	if c.wClosed || c.rClosed {
		c.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(p) == 0 {
		c.mu.Unlock()
		return 0, nil
	}
	n, _ := c.buf.Write(p)
	c.cond.Broadcast()
	c.mu.Unlock()

	c.trigger.Fire()
	return n, nil
}

// WriteString is the string form of Write
func (w *Writer) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Close closes the write end; the reader drains then sees io.EOF
func (w *Writer) Close() error {
	c := w.c
	c.mu.Lock()
	if c.wClosed {
		c.mu.Unlock()
		return nil
	}
	c.wClosed = true
	c.cond.Broadcast()
	c.mu.Unlock()

	c.trigger.Fire()
	return nil
}

var (
	_ io.ReadCloser    = (*Reader)(nil)
	_ io.WriteCloser   = (*Writer)(nil)
	_ reactor.Notifier = (*Reader)(nil)
)
