package terminal

import (
	"io"

	"github.com/pkg/errors"

	"github.com/byut/redback/channel"
	"github.com/byut/redback/reactor"
)

// textView renders host output in the upper, scrolling region
type textView struct {
	w      *Windowed
	region *Region
	ch     *channel.Channel
	ev     *reactor.Event

	// A trailing '\n' is held back until the next byte so the last row
	// never scrolls up into a blank line
	newline bool
	chunk   []byte
}

func (tv *textView) addch(c byte) error {
	if tv.newline {
		tv.newline = false
		if err := tv.region.AddCh('\n'); err != nil {
			return err
		}
	}
	if c == '\n' {
		tv.newline = true
		return nil
	}
	return tv.region.AddCh(c)
}

// onReadable drains the channel, then commits with the cursor back in the text box
func (tv *textView) onReadable(*reactor.Event) {
	rows, cols := tv.region.Size()
	if len(tv.chunk) != rows*cols {
		tv.chunk = make([]byte, rows*cols)
	}

	r := tv.ch.Reader()
	total := 0
	for {
		n, err := r.Read(tv.chunk)
		for _, c := range tv.chunk[:n] {
			must(tv.addch(c), "text view: draw")
		}
		total += n
		if errors.Is(err, io.EOF) {
			tv.ev.Del()
			break
		}
		if err != nil {
			break
		}
	}

	tv.region.NoutRefresh()
	tv.w.refocus()

	sc := tv.w.screen
	sc.SetCursorVisible(false)
	sc.Update()
	sc.SetCursorVisible(true)

	tv.w.stats.outBytes.Add(int64(total))
	tv.w.stats.flushes.Add(1)
}
