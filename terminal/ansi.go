package terminal

import (
	"github.com/charmbracelet/x/ansi"
)

// Pre-built sequences written by the passthrough backend
var (
	// Clears the prompt line and returns to column 0
	seqClearLine = []byte(ansi.EraseEntireLine + "\r")
	seqBell      = []byte{ansi.BEL}
)

// seqEmergency leaves any screen mode a crashed session may have entered
var seqEmergency = []string{
	ansi.ResetAnyEventMouseMode,
	ansi.ResetButtonEventMouseMode,
	ansi.ResetNormalMouseMode,
	ansi.ResetSgrExtMouseMode,
	ansi.ShowCursor,
	ansi.ResetAltScreenSaveCursorMode,
	ansi.ResetStyle,
	ansi.SetAutoWrapMode,
}
