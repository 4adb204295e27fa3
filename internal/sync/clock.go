// ABOUTME: Playback clock defining the authoritative media position
// ABOUTME: Integrates wall-clock time at the current speed while playing
package sync

import (
	"time"
)

const (
	// MinSpeed and MaxSpeed bound the playback rate
	MinSpeed = 0.25
	MaxSpeed = 5.0

	// SpeedStep is the rate change per transport keypress
	SpeedStep = 0.25

	// VolumeStep is the volume change per transport keypress
	VolumeStep = 0.05

	// TimeStep is the seek distance per transport keypress, in seconds
	TimeStep = 5.0
)

// Clock holds the shared playback state: playing, speed, volume and the
// nominal media position. The position advances with wall-clock time
// scaled by speed while playing.
//
// Clock has no lock of its own. It lives inside the player timeline and
// every access happens under the timeline lock.
type Clock struct {
	playing    bool
	speed      float64
	volume     float64
	position   float64   // media seconds at lastUpdate
	lastUpdate time.Time // wall clock when position was last folded
	startTime  time.Time // wall clock when playback started
	now        func() time.Time
}

// NewClock creates a stopped clock at position 0
func NewClock() *Clock {
	return newClockWithNow(time.Now)
}

func newClockWithNow(now func() time.Time) *Clock {
	t := now()
	return &Clock{
		speed:      1.0,
		volume:     1.0,
		lastUpdate: t,
		now:        now,
	}
}

// Start begins playback and records the wall-clock start time
func (c *Clock) Start() {
	c.fold()
	c.startTime = c.lastUpdate
	c.playing = true
}

// Time returns the current media position in seconds
func (c *Clock) Time() float64 {
	if !c.playing {
		return c.position
	}
	elapsed := c.now().Sub(c.lastUpdate).Seconds()
	return c.position + elapsed*c.speed
}

// fold moves elapsed playing time into position so that speed or state
// changes only affect the future
func (c *Clock) fold() {
	now := c.now()
	if c.playing {
		c.position += now.Sub(c.lastUpdate).Seconds() * c.speed
	}
	c.lastUpdate = now
}

// Playing reports whether the clock is advancing
func (c *Clock) Playing() bool {
	return c.playing
}

// SetPlaying starts or pauses the clock
func (c *Clock) SetPlaying(playing bool) {
	if playing == c.playing {
		return
	}
	c.fold()
	c.playing = playing
}

// TogglePlaying flips between playing and paused
func (c *Clock) TogglePlaying() bool {
	c.SetPlaying(!c.playing)
	return c.playing
}

// Speed returns the playback rate
func (c *Clock) Speed() float64 {
	return c.speed
}

// SetSpeed changes the playback rate, clamped to [MinSpeed, MaxSpeed]
func (c *Clock) SetSpeed(speed float64) {
	c.fold()
	c.speed = clamp(speed, MinSpeed, MaxSpeed)
}

// Volume returns the output gain in [0, 1]
func (c *Clock) Volume() float64 {
	return c.volume
}

// SetVolume changes the output gain, clamped to [0, 1]
func (c *Clock) SetVolume(volume float64) {
	c.volume = clamp(volume, 0, 1)
}

// Seek moves the media position; negative targets clamp to 0
func (c *Clock) Seek(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	c.lastUpdate = c.now()
	c.position = seconds
}

// StartTime returns the wall-clock time playback started
func (c *Clock) StartTime() time.Time {
	return c.startTime
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
