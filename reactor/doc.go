// Package reactor provides a single-threaded, readiness-driven event loop.
//
// Interests are registered as Events: readability of a Source, or delivery
// of an OS signal. Readiness is level-triggered and every callback runs on
// the goroutine driving the loop, so callbacks never race each other.
//
// Two kinds of sources exist:
//   - FdSource: an OS descriptor, waited on with poll(2)
//   - Notifier: an in-process source that wakes the loop through a self-pipe
//
// A deleted Event never fires, even if its notification was already queued.
package reactor
