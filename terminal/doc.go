// Package terminal binds an interactive terminal to a reactor.
//
// A Terminal exposes two in-process channels to the host: Input carries
// lines the user submitted, Output takes bytes to display. Everything else
// (device readiness, keystroke editing, redraw batching) happens in reactor
// callbacks on the loop goroutine.
//
// Backends:
//   - Passthrough: cbreak mode, output written straight to the device,
//     a prompt line hidden while partial output is on screen
//   - Windowed: tcell screen split into a scrolling text view and a one-line
//     text box
//
// Target environments: Linux, macOS, BSDs.
package terminal
