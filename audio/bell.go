// Package audio rings the input bell through the system speaker
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/pkg/errors"
)

const (
	sampleRate = beep.SampleRate(48000)

	toneFrequency = 880
	toneDuration  = 60 * time.Millisecond
	toneVolume    = -1.5 // base-2 exponent, about a third of full scale
)

// Speaker hooks, replaced by tests
var (
	initSpeaker = func() error {
		return speaker.Init(sampleRate, sampleRate.N(time.Millisecond*50))
	}
	playSpeaker  = speaker.Play
	closeSpeaker = speaker.Close
)

// Ringer is satisfied by terminal.Bell
type Ringer interface {
	Ring()
}

// Bell plays a short sine tone per Ring
// The speaker is opened on the first Ring; when that fails every Ring goes
// to the fallback instead
type Bell struct {
	mu       sync.Mutex
	fallback Ringer
	mixer    *beep.Mixer
	ready    bool
	failed   error
}

// NewBell creates a bell; fallback may be nil
func NewBell(fallback Ringer) *Bell {
	return &Bell{
		fallback: fallback,
		mixer:    &beep.Mixer{},
	}
}

// Ring plays the tone without blocking
func (b *Bell) Ring() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.initLocked(); err != nil {
		if b.fallback != nil {
			b.fallback.Ring()
		}
		return
	}

	tone, err := generators.SineTone(sampleRate, toneFrequency)
	if err != nil {
		return
	}
	speaker.Lock()
	b.mixer.Add(&effects.Volume{
		Streamer: beep.Take(sampleRate.N(toneDuration), tone),
		Base:     2,
		Volume:   toneVolume,
	})
	speaker.Unlock()
}

// Err returns the speaker initialization error, if any
func (b *Bell) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

// Close stops playback and releases the speaker
func (b *Bell) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return nil
	}
	speaker.Lock()
	b.mixer.Clear()
	speaker.Unlock()
	closeSpeaker()
	b.ready = false
	return nil
}

func (b *Bell) initLocked() error {
	if b.ready {
		return nil
	}
	if b.failed != nil {
		return b.failed
	}
	if err := initSpeaker(); err != nil {
		b.failed = errors.Wrap(err, "audio: speaker init")
		return b.failed
	}
	playSpeaker(b.mixer)
	b.ready = true
	return nil
}
