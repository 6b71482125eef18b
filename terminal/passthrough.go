package terminal

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/byut/redback/channel"
	"github.com/byut/redback/reactor"
)

const outputChunk = 1024

// Passthrough writes output straight to the device and edits input on a
// prompt line below it
//
// While output is partial (not newline-terminated) the prompt is hidden and
// keystrokes stay queued in the device; a newline-terminated flush restores
// the prompt with the pending line
type Passthrough struct {
	base

	in  io.Reader
	out *bufio.Writer
	tty *ttyMode

	inCh  *channel.Channel // submitted lines, read by the host
	outCh *channel.Channel // host output, drained to the device

	evInput  *reactor.Event
	evOutput *reactor.Event

	line  LineBuffer
	chunk []byte
	eof   bool
}

// NewPassthrough creates an unbound passthrough terminal
func NewPassthrough(r Reactor, opts ...Option) (*Passthrough, error) {
	p := &Passthrough{chunk: make([]byte, outputChunk)}
	b, err := newBase(r, p, opts)
	if err != nil {
		return nil, err
	}
	p.base = b
	return p, nil
}

// Setup implements Terminal
// A terminal input device is switched to cbreak mode; other readers are used as is
// termType is ignored
func (p *Passthrough) Setup(out io.Writer, in io.Reader, termType string) error {
	if err := p.checkSetup(); err != nil {
		return err
	}
	if out == nil {
		return errors.Wrap(ErrUnsupportedDevice, "nil output")
	}
	src, err := inputSource(in)
	if err != nil {
		return err
	}

	if f, ok := in.(*os.File); ok {
		tty, err := enterCbreak(int(f.Fd()))
		if err != nil {
			return errors.Wrap(err, "setup: terminal mode")
		}
		p.tty = tty
	}

	// From here on partial resources are released by Restore
	p.ready = true
	p.in = in
	p.out = bufio.NewWriterSize(out, outputChunk)
	p.inCh = channel.New()
	p.outCh = channel.New(channel.NonBlocking())

	fail := func(err error, step string) error {
		p.restoreMode()
		return errors.Wrap(err, "setup: "+step)
	}

	if err := p.registerSignal(); err != nil {
		return fail(err, "signal")
	}
	p.evOutput = p.reactor.NewReadEvent(p.outCh.Reader(), true, p.onOutput)
	if err := p.evOutput.Add(); err != nil {
		return fail(err, "output")
	}
	p.evInput = p.reactor.NewReadEvent(src, true, p.onInput)

	p.opts.log.Debug("terminal: passthrough ready", "cbreak", p.tty != nil)
	p.InputEnable()
	return nil
}

// Restore implements Terminal
func (p *Passthrough) Restore() error {
	if p.closed {
		return ErrClosed
	}
	if !p.ready {
		return nil
	}

	for _, ev := range []*reactor.Event{p.evInput, p.evOutput, p.evSignal} {
		if ev != nil {
			ev.Del()
		}
	}
	p.evInput, p.evOutput, p.evSignal = nil, nil, nil

	if p.inCh != nil {
		p.inCh.Close()
	}
	if p.outCh != nil {
		p.outCh.Close()
	}
	p.inCh, p.outCh = nil, nil

	var err error
	if ferr := p.out.Flush(); ferr != nil {
		err = errors.Wrap(ferr, "restore: flush")
	}
	if merr := p.restoreMode(); merr != nil {
		err = merr
	}

	p.line.Reset()
	p.eof = false
	p.stats.enabled.Store(false)
	p.ready = false
	p.opts.log.Debug("terminal: passthrough restored")
	return err
}

// Close implements Terminal
func (p *Passthrough) Close() error {
	if p.closed {
		return nil
	}
	err := p.Restore()
	p.closed = true
	return err
}

// InputEnable implements Terminal
// Draws the prompt followed by the pending line
func (p *Passthrough) InputEnable() {
	if !p.ready || p.eof || p.evInput == nil || p.evInput.Pending() {
		return
	}
	p.out.WriteString(p.opts.prompt)
	p.out.Write(p.line.Bytes())
	p.flush()

	if err := p.evInput.Add(); err != nil {
		p.opts.log.Error("terminal: enable input", "err", err)
		return
	}
	p.stats.enabled.Store(true)
}

// InputDisable implements Terminal
// Clears the prompt line; the pending line is kept
func (p *Passthrough) InputDisable() {
	if !p.ready || p.evInput == nil || !p.evInput.Pending() {
		return
	}
	p.evInput.Del()
	p.out.Write(seqClearLine)
	p.flush()
	p.stats.enabled.Store(false)
	p.stats.suspended.Add(1)
}

// Input implements Terminal; nil before Setup
func (p *Passthrough) Input() *channel.Reader {
	if p.inCh == nil {
		return nil
	}
	return p.inCh.Reader()
}

// Output implements Terminal; nil before Setup
func (p *Passthrough) Output() *channel.Writer {
	if p.outCh == nil {
		return nil
	}
	return p.outCh.Writer()
}

// onInput consumes one keystroke
func (p *Passthrough) onInput(*reactor.Event) {
	var b [1]byte
	n, err := p.in.Read(b[:])
	if n != 1 {
		switch {
		case err == nil, errors.Is(err, channel.ErrWouldBlock):
		default:
			// EOF or a device error; stop watching the device
			p.opts.log.Debug("terminal: input closed", "err", err)
			p.InputDisable()
			p.eof = true
		}
		return
	}

	c := b[0]
	switch {
	case c == '\n':
		// The prompt line is left as typed until the host answers with output
		line, err := p.line.Submit()
		must(err, "submit line")
		_, err = p.inCh.Writer().Write(line)
		must(err, "forward line")
		p.stats.lines.Add(1)
	case isPrintable(c):
		if err := p.line.Append(c); err != nil {
			p.stats.rejected.Add(1)
			p.ring()
			return
		}
		p.out.WriteByte(c)
		p.flush()
		p.stats.echoed.Add(1)
	}
}

// onOutput drains host output to the device
func (p *Passthrough) onOutput(*reactor.Event) {
	p.InputDisable()

	r := p.outCh.Reader()
	var last byte
	total := 0
	hostClosed := false
	for {
		n, err := r.Read(p.chunk)
		if n > 0 {
			p.out.Write(p.chunk[:n])
			last = p.chunk[n-1]
			total += n
		}
		if errors.Is(err, io.EOF) {
			// The host closed its end; nothing more will arrive
			p.evOutput.Del()
			hostClosed = true
			break
		}
		if err != nil {
			break
		}
	}
	p.flush()
	p.stats.outBytes.Add(int64(total))
	p.stats.flushes.Add(1)

	// With the host gone no later batch can end the line, so give input back now
	if hostClosed || (total > 0 && last == '\n') {
		p.InputEnable()
	}
}

func (p *Passthrough) ring() {
	if p.opts.bell != nil {
		p.opts.bell.Ring()
		return
	}
	p.out.Write(seqBell)
	p.flush()
}

func (p *Passthrough) flush() {
	if err := p.out.Flush(); err != nil {
		p.opts.log.Debug("terminal: flush", "err", err)
	}
}

func (p *Passthrough) restoreMode() error {
	if p.tty == nil {
		return nil
	}
	err := p.tty.restore()
	p.tty = nil
	if err != nil {
		return errors.Wrap(err, "restore: terminal mode")
	}
	return nil
}

var _ Terminal = (*Passthrough)(nil)
