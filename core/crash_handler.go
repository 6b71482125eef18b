// Package core holds process-wide crash handling
package core

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync/atomic"

	"github.com/charmbracelet/x/ansi"
)

// Indirections replaced by tests
var (
	crashOut io.Writer = os.Stderr
	exit               = os.Exit
)

// emergencyReset holds the func() run when no session teardown is usable
var emergencyReset atomic.Value

// SetEmergencyReset installs the terminal reset used when a crash has no
// working restore; nil reinstalls the default
// main installs terminal.EmergencyReset before starting the session
func SetEmergencyReset(fn func()) {
	if fn == nil {
		fn = defaultReset
	}
	emergencyReset.Store(fn)
}

// defaultReset leaves the alternate screen and shows the cursor; it cannot
// restore the tty mode
func defaultReset() {
	io.WriteString(os.Stdout, ansi.ResetAltScreenSaveCursorMode+ansi.ShowCursor+ansi.ResetStyle)
}

func emergencyTerm() {
	if fn, ok := emergencyReset.Load().(func()); ok {
		fn()
		return
	}
	defaultReset()
}

// Recover handles a panic in the calling goroutine
// Use as the first defer: defer core.Recover(restore)
func Recover(restore func()) {
	if r := recover(); r != nil {
		HandleCrash(r, restore)
	}
}

// HandleCrash restores the terminal, prints the panic with its stack trace and exits
// restore is the session teardown; when it is nil or panics itself the
// terminal is reset blindly
func HandleCrash(r any, restore func()) {
	if r == nil {
		return
	}

	if !tryRestore(restore) {
		emergencyTerm()
	}

	// Force flush stdout before printing to stderr
	os.Stdout.Sync()

	// Output post-processing may still be off; use explicit CRLF
	stack := bytes.ReplaceAll(debug.Stack(), []byte("\n"), []byte("\r\n"))
	fmt.Fprintf(crashOut, "\r\n\x1b[31mCRASH DETECTED: %v\x1b[0m\r\n", r)
	fmt.Fprintf(crashOut, "Stack Trace:\r\n%s\r\n", stack)

	if f, ok := crashOut.(*os.File); ok {
		f.Sync()
	}
	exit(1)
}

// Go runs fn in a new goroutine with panic recovery.
// Use this instead of the 'go' keyword to ensure terminal cleanup on crash.
func Go(restore func(), fn func()) {
	go func() {
		defer Recover(restore)
		fn()
	}()
}

func tryRestore(restore func()) (ok bool) {
	if restore == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	restore()
	return true
}
