package reactor

import (
	"os"
	"os/signal"

	"github.com/pkg/errors"

	"github.com/byut/redback/core"
)

type eventKind uint8

const (
	kindRead eventKind = iota
	kindSignal
)

// ReadCallback runs on the loop goroutine when the watched Source is readable
type ReadCallback func(ev *Event)

// SignalCallback runs on the loop goroutine when the watched signal was delivered
type SignalCallback func(ev *Event, sig os.Signal)

// Event is a registered interest: readability of a Source or delivery of a signal
// Created inactive; Add and Del toggle it. Add/Del must be called on the loop
// goroutine, or before Run
type Event struct {
	loop    *Loop
	kind    eventKind
	src     Source
	sig     os.Signal
	persist bool

	onRead   ReadCallback
	onSignal SignalCallback

	active bool
	gen    uint64 // bumped per Add; stale signal deliveries are dropped

	cancel  func()
	sigCh   chan os.Signal
	sigStop chan struct{}
}

// Add activates the interest. Adding an active event is a no-op
func (e *Event) Add() error {
	l := e.loop
	if l.closed.Load() {
		return ErrClosed
	}
	if e.active {
		return nil
	}

	switch e.kind {
	case kindRead:
		if e.src == nil {
			return errors.New("reactor: read event without source")
		}
		if n, ok := e.src.(Notifier); ok {
			e.cancel = n.Subscribe(l.wake)
		}
	case kindSignal:
		e.sigCh = make(chan os.Signal, 1)
		e.sigStop = make(chan struct{})
		signal.Notify(e.sigCh, e.sig)
		gen, ch, stop := e.gen+1, e.sigCh, e.sigStop
		core.Go(nil, func() { e.forwardSignals(gen, ch, stop) })
	}

	e.gen++
	e.active = true
	l.active = append(l.active, e)
	l.wake()
	return nil
}

// Del deactivates the interest. A pending notification for it will not fire
func (e *Event) Del() {
	if !e.active {
		return
	}
	e.active = false
	e.loop.remove(e)

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.sigCh != nil {
		signal.Stop(e.sigCh)
		close(e.sigStop)
		e.sigCh = nil
		e.sigStop = nil
	}
}

// Pending reports whether the interest is active
func (e *Event) Pending() bool {
	return e.active
}

func (e *Event) forwardSignals(gen uint64, ch <-chan os.Signal, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case sig := <-ch:
			e.loop.postSignal(delivery{ev: e, gen: gen, sig: sig})
		}
	}
}
