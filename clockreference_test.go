package tsdemux

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockReferenceBaseAndExtension(t *testing.T) {
	cr := newClockReference(12345, 17)
	assert.Equal(t, int64(12345), cr.Base())
	assert.Equal(t, int64(17), cr.Extension())
}

func TestClockReferenceDuration(t *testing.T) {
	// base*300+extension ticks of a 27MHz clock: one second of PTS-only
	// (90kHz) base with no extension is base=90000, 300*90000=27e6 ticks,
	// i.e. exactly one second.
	cr := newClockReference(90000, 0)
	assert.Equal(t, time.Second, cr.Duration())
}

func TestClockReferenceZero(t *testing.T) {
	cr := newClockReference(0, 0)
	assert.Equal(t, time.Duration(0), cr.Duration())
	assert.Equal(t, time.Unix(0, 0), cr.Time())
}

func TestClockReferenceNanoseconds(t *testing.T) {
	cr := newClockReference(90000, 0)
	assert.Equal(t, int64(time.Second), cr.Nanoseconds())
}
