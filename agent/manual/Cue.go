package manual

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate beep.SampleRate = 44100

	// Tones played when a goal is reached and when an episode ends
	GoalTone    float64 = 880
	SuccessTone float64 = 1320
	FailureTone float64 = 220
)

// Cue plays short tones through the speaker. A Cue whose speaker
// could not be initialised stays silent.
type Cue struct {
	enabled bool
}

// NewCue initialises the speaker and returns a new Cue. If the speaker
// cannot be initialised, the returned Cue is silent and the error is
// returned alongside it.
func NewCue() (*Cue, error) {
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	return &Cue{enabled: err == nil}, err
}

// Enabled returns whether the Cue can play sound
func (c *Cue) Enabled() bool {
	return c != nil && c.enabled
}

// Play plays a sine tone of frequency freq for duration d
func (c *Cue) Play(freq float64, d time.Duration) {
	if !c.Enabled() {
		return
	}

	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(d), sine))
}

// Close closes the speaker
func (c *Cue) Close() {
	if c.Enabled() {
		speaker.Close()
		c.enabled = false
	}
}
