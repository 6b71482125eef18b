package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/byut/redback/channel"
	"github.com/byut/redback/reactor"
)

// textBox edits one input line in the bottom region
type textBox struct {
	w      *Windowed
	region *Region
	ch     *channel.Channel
	ev     *reactor.Event
	line   LineBuffer
}

// onReadable handles every queued screen event
func (tb *textBox) onReadable(*reactor.Event) {
	keys := tb.w.screen.Keys()
	for tb.w.ready && tb.ev.Pending() {
		ev, ok := keys.pop()
		if !ok {
			return
		}
		switch e := ev.(type) {
		case *tcell.EventKey:
			tb.key(e)
		case *tcell.EventResize:
			tb.w.relayout()
		}
	}
}

func (tb *textBox) key(e *tcell.EventKey) {
	switch k := e.Key(); {
	case k == tcell.KeyCtrlC, k == tcell.KeyETX:
		// Raw mode swallows ISIG; Ctrl-C arrives as a key
		tb.w.raise(tb.w.opts.interrupt)
	case k == tcell.KeyEnter, k == tcell.KeyLF, k == tcell.KeyCtrlJ:
		tb.submit()
	case k == tcell.KeyRune && e.Modifiers()&(tcell.ModCtrl|tcell.ModAlt) == 0:
		if r := e.Rune(); r < 0x80 && isPrintable(byte(r)) {
			tb.insert(byte(r))
		}
	}
}

func (tb *textBox) insert(c byte) {
	if err := tb.line.Append(c); err != nil {
		tb.w.stats.rejected.Add(1)
		tb.w.ring()
		return
	}

	_, cols := tb.region.Size()
	if tb.line.Len() < cols {
		must(tb.region.AddCh(c), "text box: draw")
	} else {
		tb.redraw()
	}
	tb.region.NoutRefresh()
	tb.w.screen.Update()
	tb.w.stats.echoed.Add(1)
}

// redraw shows the tail of the line, leaving the last column for the cursor
func (tb *textBox) redraw() {
	_, cols := tb.region.Size()
	pending := tb.line.Bytes()
	if n := len(pending) - (cols - 1); n > 0 {
		pending = pending[n:]
	}
	tb.region.Erase()
	must(tb.region.AddString(string(pending)), "text box: draw")
}

func (tb *textBox) submit() {
	tb.region.Erase()
	tb.region.NoutRefresh()
	tb.w.screen.Update()

	line, err := tb.line.Submit()
	must(err, "submit line")
	_, err = tb.ch.Writer().Write(line)
	must(err, "forward line")
	tb.w.stats.lines.Add(1)
}
