package terminal

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/byut/redback/status"
)

// DefaultPrompt is shown before the pending line by the passthrough backend
const DefaultPrompt = "> "

// Bell signals a rejected keystroke
type Bell interface {
	Ring()
}

// BellFunc adapts a function to Bell
type BellFunc func()

// Ring implements Bell
func (f BellFunc) Ring() { f() }

// ScreenFactory opens the screen model for the windowed backend
type ScreenFactory func(out io.Writer, in io.Reader, termType string) (tcell.Screen, error)

type settings struct {
	log       *log.Logger
	prompt    string
	bell      Bell
	metrics   *status.Registry
	screen    ScreenFactory
	interrupt os.Signal
}

func newSettings(opts []Option) settings {
	s := settings{
		log:       log.New(io.Discard),
		prompt:    DefaultPrompt,
		metrics:   status.NewRegistry(),
		screen:    openScreen,
		interrupt: os.Interrupt,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a terminal
type Option func(*settings)

// WithLogger sets the logger; the backends only log at debug level while a session is active
func WithLogger(l *log.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPrompt sets the passthrough prompt
func WithPrompt(prompt string) Option {
	return func(s *settings) {
		s.prompt = prompt
	}
}

// WithBell overrides the device bell
func WithBell(b Bell) Option {
	return func(s *settings) {
		s.bell = b
	}
}

// WithMetrics publishes session counters into r
func WithMetrics(r *status.Registry) Option {
	return func(s *settings) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithScreen replaces the screen factory of the windowed backend
func WithScreen(f ScreenFactory) Option {
	return func(s *settings) {
		if f != nil {
			s.screen = f
		}
	}
}

// WithInterrupt sets the signal forwarded to the signal callback
func WithInterrupt(sig os.Signal) Option {
	return func(s *settings) {
		if sig != nil {
			s.interrupt = sig
		}
	}
}
