package terminal

import "github.com/pkg/errors"

var (
	// ErrNilReactor is returned by constructors given no reactor
	ErrNilReactor = errors.New("terminal: nil reactor")
	// ErrAlreadySetup is returned by Setup on a session already set up
	ErrAlreadySetup = errors.New("terminal: already set up")
	// ErrClosed is returned by operations on a closed session
	ErrClosed = errors.New("terminal: closed")
	// ErrUnsupportedDevice is returned when a device is neither a file nor a reactor source
	ErrUnsupportedDevice = errors.New("terminal: unsupported device")
	// ErrScreenTooSmall is returned when the screen cannot fit both regions
	ErrScreenTooSmall = errors.New("terminal: screen too small")
	// ErrLineFull is returned when a line buffer has no room left
	ErrLineFull = errors.New("terminal: line buffer full")
	// ErrRegionFull is returned when a non-scrolling region runs out of rows
	ErrRegionFull = errors.New("terminal: region full")
)
