package tsdemux

// esAccumulator is a PES access-unit-in-progress for one elementary PID
// (spec §3). Created as soon as a PMT lists the PID; payload bytes
// arriving before the first PUSI are discarded per the started flag
// below, matching spec §3's accumulator description verbatim.
type esAccumulator struct {
	PID        uint16
	StreamType StreamType

	offset  int64
	pts     *ClockReference
	dts     *ClockReference
	buf     []byte
	started bool
}

func newESAccumulator(pid uint16, streamType StreamType) *esAccumulator {
	return &esAccumulator{PID: pid, StreamType: streamType}
}

// reset starts a fresh access unit, called once a new PES header has
// been parsed off a PUSI-flagged packet (spec §4.3). offset is the
// stream's global byte position (spec §3) at which this access unit's
// first byte was recorded, per spec §4.3(d)'s offset formula.
func (a *esAccumulator) reset(pts, dts *ClockReference, offset int64) {
	a.pts = pts
	a.dts = dts
	a.offset = offset
	a.buf = a.buf[:0]
	a.started = true
}

// append adds payload bytes to the in-progress access unit; a no-op
// before the first PUSI has been observed (spec §3).
func (a *esAccumulator) append(p []byte) {
	if !a.started {
		return
	}
	a.buf = append(a.buf, p...)
}

// drop discards the in-progress access unit without emitting it, used
// when a continuity counter gap is observed on the PID (spec §9's
// continuity-counter-driven discontinuity handling).
func (a *esAccumulator) drop() {
	a.started = false
	a.buf = a.buf[:0]
}

// empty reports whether the accumulator has no buffered payload yet,
// used to suppress emitting a spurious empty access unit for the very
// first PUSI seen after creation.
func (a *esAccumulator) empty() bool {
	return len(a.buf) == 0
}
