// Package app runs one interactive redback session: it binds a terminal to a
// reactor and echoes every submitted line back to the display
package app

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/byut/redback/audio"
	"github.com/byut/redback/channel"
	"github.com/byut/redback/config"
	"github.com/byut/redback/reactor"
	"github.com/byut/redback/service"
	"github.com/byut/redback/status"
	"github.com/byut/redback/terminal"
)

// Service names, in start order
const (
	ServiceReactor  = "reactor"
	ServiceBell     = "bell"
	ServiceTerminal = "terminal"
	ServiceEcho     = "echo"
)

// echoChunk bounds one read from the input channel
const echoChunk = terminal.LineBufferSize

// App holds everything one session owns
type App struct {
	cfg     *config.Config
	log     *log.Logger
	metrics *status.Registry
	group   *service.Group

	out      io.Writer
	in       io.Reader
	termOpts []terminal.Option

	loop *reactor.Loop
	bell terminal.Bell
	term terminal.Terminal
	echo *reactor.Event
	buf  []byte
}

// Option configures an App
type Option func(*App)

// WithStreams replaces stdout and stdin as the terminal devices
func WithStreams(out io.Writer, in io.Reader) Option {
	return func(a *App) {
		a.out = out
		a.in = in
	}
}

// WithTerminalOptions appends options passed to the terminal backend
func WithTerminalOptions(opts ...terminal.Option) Option {
	return func(a *App) {
		a.termOpts = append(a.termOpts, opts...)
	}
}

// WithMetrics publishes session counters into r
func WithMetrics(r *status.Registry) Option {
	return func(a *App) {
		if r != nil {
			a.metrics = r
		}
	}
}

// New creates an App; nothing is acquired until Run
func New(cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	a := &App{
		cfg:     cfg,
		log:     logger,
		metrics: status.NewRegistry(),
		group:   service.NewGroup(),
		out:     os.Stdout,
		in:      os.Stdin,
		buf:     make([]byte, echoChunk),
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, svc := range []service.Service{
		&service.Func{ID: ServiceReactor, OnStart: a.startReactor, OnStop: a.stopReactor},
		&service.Func{ID: ServiceBell, OnStart: a.startBell, OnStop: a.stopBell},
		&service.Func{ID: ServiceTerminal, Requires: []string{ServiceReactor, ServiceBell}, OnStart: a.startTerminal, OnStop: a.stopTerminal},
		&service.Func{ID: ServiceEcho, Requires: []string{ServiceTerminal}, OnStart: a.startEcho, OnStop: a.stopEcho},
	} {
		if err := a.group.Register(svc); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Run sets the session up, dispatches until an interrupt or ctx is done, then
// tears down in reverse order
func (a *App) Run(ctx context.Context) (err error) {
	if err := a.group.StartAll(); err != nil {
		a.log.Error("setup failed", "err", err)
		return err
	}
	defer func() {
		if stopErr := a.group.StopAll(); stopErr != nil && err == nil {
			err = stopErr
		}
		a.log.Info("session ended", a.metrics.KeyVals()...)
	}()

	a.logGeometry()

	err = a.loop.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	case errors.Is(err, reactor.ErrNoEvents):
		a.log.Debug("no events left")
		return nil
	}
	return err
}

// Restore gives the device back without stopping the services
// Used by crash recovery before the process exits
func (a *App) Restore() {
	if a.term != nil {
		a.term.Restore()
	}
}

// Metrics returns the session counters
func (a *App) Metrics() *status.Registry {
	return a.metrics
}

func (a *App) startReactor() error {
	loop, err := reactor.New(reactor.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.loop = loop
	return nil
}

func (a *App) stopReactor() error {
	if a.loop == nil {
		return nil
	}
	err := a.loop.Close()
	a.loop = nil
	return err
}

func (a *App) startBell() error {
	switch a.cfg.Bell {
	case config.BellNone:
		a.bell = terminal.BellFunc(func() {})
	case config.BellAudio:
		a.bell = audio.NewBell(terminal.BellFunc(a.deviceBell))
	default:
		a.bell = nil
	}
	return nil
}

func (a *App) stopBell() error {
	if b, ok := a.bell.(*audio.Bell); ok {
		if err := b.Err(); err != nil {
			a.log.Debug("audio bell unavailable", "err", err)
		}
		b.Close()
	}
	a.bell = nil
	return nil
}

// deviceBell is the audio fallback: BEL straight to the output device
func (a *App) deviceBell() {
	io.WriteString(a.out, string(rune(ansi.BEL)))
}

func (a *App) startTerminal() error {
	kind, err := a.cfg.Kind()
	if err != nil {
		return err
	}

	opts := []terminal.Option{
		terminal.WithLogger(a.log),
		terminal.WithPrompt(a.cfg.Prompt),
		terminal.WithMetrics(a.metrics),
	}
	if a.bell != nil {
		opts = append(opts, terminal.WithBell(a.bell))
	}
	opts = append(opts, a.termOpts...)

	t, err := terminal.New(kind, a.loop, opts...)
	if err != nil {
		return err
	}
	if err := t.Setup(a.out, a.in, a.cfg.Terminal); err != nil {
		t.Close()
		return err
	}
	t.SetSignalCallback(a.onSignal)
	a.term = t

	a.log.Debug("terminal ready", "backend", kind)
	return nil
}

func (a *App) stopTerminal() error {
	if a.term == nil {
		return nil
	}
	err := a.term.Close()
	a.term = nil
	return err
}

func (a *App) startEcho() error {
	a.echo = a.loop.NewReadEvent(a.term.Input(), true, a.onLine)
	return a.echo.Add()
}

func (a *App) stopEcho() error {
	if a.echo != nil {
		a.echo.Del()
		a.echo = nil
	}
	return nil
}

func (a *App) onSignal(t terminal.Terminal, sig os.Signal) {
	a.log.Debug("signal", "sig", sig)
	a.loop.Break()
}

// onLine copies submitted lines to the display
func (a *App) onLine(ev *reactor.Event) {
	n, err := a.term.Input().Read(a.buf)
	if n > 0 {
		if _, werr := a.term.Output().Write(a.buf[:n]); werr != nil {
			a.log.Error("echo", "err", werr)
		}
	}
	switch {
	case err == nil, errors.Is(err, channel.ErrWouldBlock):
	case errors.Is(err, io.EOF):
		ev.Del()
	default:
		a.log.Error("read input", "err", err)
		ev.Del()
	}
}

// logGeometry records the device size when the output is a terminal
func (a *App) logGeometry() {
	f, ok := a.out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return
	}
	cols, rows, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return
	}
	a.log.Debug("device geometry", "cols", cols, "rows", rows)
}
