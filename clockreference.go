package tsdemux

import "time"

// clockHz is the 27 MHz system clock PCR/OPCR samples are expressed
// against; PTS/DTS use the 90 kHz reduction of it (clockHz / 300).
const clockHz = 27000000

// ClockReference is a 42-bit Program Clock Reference value: a 33-bit
// base running at 90 kHz plus a 9-bit extension running at 27 MHz,
// reconstructed as base*300+extension ticks of the 27 MHz clock. PTS
// and DTS values reuse this type with extension always zero.
type ClockReference struct {
	base      int64
	extension int64
}

func newClockReference(base, extension int64) ClockReference {
	return ClockReference{base: base, extension: extension}
}

// Base returns the 33-bit, 90 kHz base value.
func (c ClockReference) Base() int64 { return c.base }

// Extension returns the 9-bit, 27 MHz extension value.
func (c ClockReference) Extension() int64 { return c.extension }

// ticks27MHz returns the clock reference as a count of 27 MHz ticks.
func (c ClockReference) ticks27MHz() int64 {
	return c.base*300 + c.extension
}

// Duration reports the clock reference as a time.Duration since clock
// zero, per spec §8's PCR time-base invariant: floor((B*300+E) * 1e9 / 27_000_000).
func (c ClockReference) Duration() time.Duration {
	t := c.ticks27MHz()
	return time.Duration((t/clockHz)*1e9 + (t%clockHz)*1e9/clockHz)
}

// Time reports the clock reference as a time.Time relative to the Unix
// epoch, treating the clock reference as an elapsed offset from it.
func (c ClockReference) Time() time.Time {
	return time.Unix(0, 0).Add(c.Duration())
}

// Nanoseconds returns the clock reference in nanoseconds, the unit
// PTS/DTS values are exposed in (spec §4.3, §8).
func (c ClockReference) Nanoseconds() int64 {
	return int64(c.Duration())
}
